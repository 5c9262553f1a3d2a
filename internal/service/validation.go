// validation.go — валидация входных данных (go-playground/validator)
// и правила для имён файлов и URL розничных файлов.
package service

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/AvivSela/product-watch-il/internal/domain/model"
)

// SupportedFileExtensions — допустимые расширения розничных файлов.
var SupportedFileExtensions = []string{"pdf", "csv", "xlsx", "xls", "json", "xml", "txt"}

// blockedHosts — хосты, на которые нельзя ссылаться в file_url.
var blockedHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"0.0.0.0":   true,
	"::1":       true,
}

// int4Message — сообщение для чисел вне диапазона PostgreSQL INTEGER.
var int4Message = fmt.Sprintf("must be between %d and %d", math.MinInt32, math.MaxInt32)

// fitsInt4 сообщает, помещается ли n в колонку INTEGER.
func fitsInt4(n int64) bool {
	return n >= math.MinInt32 && n <= math.MaxInt32
}

// IsSupportedFileType сообщает, входит ли расширение имени файла в белый список.
// Расширение — часть после последней точки, без учёта регистра.
func IsSupportedFileType(fileName string) bool {
	i := strings.LastIndex(fileName, ".")
	if i < 0 {
		return false
	}
	ext := strings.ToLower(fileName[i+1:])
	for _, supported := range SupportedFileExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// CheckFileURL проверяет, что URL пригоден для регистрации файла:
// схема http/https, хост не loopback и не из частных диапазонов.
// Проверка строковая, без разрешения DNS.
func CheckFileURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return errors.New("invalid URL format")
	}
	if !strings.EqualFold(u.Scheme, "http") && !strings.EqualFold(u.Scheme, "https") {
		return errors.New("protocol must be HTTP or HTTPS")
	}

	host := strings.ToLower(u.Hostname())
	if blockedHosts[host] {
		return errors.New("cannot use localhost or loopback addresses")
	}
	if isPrivateHost(host) {
		return errors.New("cannot use private IP addresses")
	}
	return nil
}

// isPrivateHost — 10.*, 192.168.*, 172.16.* – 172.31.*.
func isPrivateHost(host string) bool {
	if strings.HasPrefix(host, "10.") || strings.HasPrefix(host, "192.168.") {
		return true
	}
	parts := strings.SplitN(host, ".", 3)
	if len(parts) < 3 || parts[0] != "172" {
		return false
	}
	second, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}
	return second >= 16 && second <= 31
}

// ValidationError — ошибка валидации с описанием по полям.
// errors.Is(err, ErrValidation) == true.
type ValidationError struct {
	// Details — имя поля (как в JSON) → сообщение
	Details map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Details))
	for f := range e.Details {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e.Details[f])
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// newFieldError возвращает ValidationError для одного поля.
func newFieldError(field, message string) *ValidationError {
	return &ValidationError{Details: map[string]string{field: message}}
}

// Validator — обёртка над validator.Validate с тегами предметной области:
//   - file_type — расширение из SupportedFileExtensions
//   - safe_url — CheckFileURL
//   - file_status — один из model.FileStatuses
//   - int4 — число помещается в колонку INTEGER
type Validator struct {
	v *validator.Validate
}

// NewValidator создаёт валидатор и регистрирует пользовательские теги.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Имена полей в ошибках — как в JSON
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Ошибки регистрации возможны только при пустом имени тега
	_ = v.RegisterValidation("file_type", func(fl validator.FieldLevel) bool {
		return IsSupportedFileType(fl.Field().String())
	})
	_ = v.RegisterValidation("safe_url", func(fl validator.FieldLevel) bool {
		return CheckFileURL(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("file_status", func(fl validator.FieldLevel) bool {
		return model.FileStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("int4", func(fl validator.FieldLevel) bool {
		return fitsInt4(fl.Field().Int())
	})

	return &Validator{v: v}
}

// Struct проверяет структуру по тегам validate.
// Возвращает *ValidationError или nil.
func (val *Validator) Struct(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = fieldMessage(fe)
	}
	return &ValidationError{Details: details}
}

// fieldMessage формирует сообщение об ошибке поля.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("cannot exceed %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "gt":
		return "must be positive"
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "file_type":
		return "unsupported file type, allowed: " + strings.Join(SupportedFileExtensions, ", ")
	case "safe_url":
		var raw string
		switch v := fe.Value().(type) {
		case string:
			raw = v
		case *string:
			if v != nil {
				raw = *v
			}
		}
		if err := CheckFileURL(raw); err != nil {
			return err.Error()
		}
		return "invalid URL"
	case "int4":
		return int4Message
	case "file_status":
		return "invalid status, allowed: PENDING, PROCESSING, COMPLETED, FAILED, ARCHIVED"
	default:
		return fmt.Sprintf("failed on %q", fe.Tag())
	}
}
