// auth.go — JWT middleware для аутентификации и авторизации.
// RS256 + JWKS; claims: sub и scopes (строка "scope" или массив "scopes").
// Требуемые scopes операции кладёт в контекст роутер API (ContextKeyRequiredScopes),
// проверяет их RequireScopes.
package middleware

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/AvivSela/product-watch-il/internal/api/errors"
)

type contextKey string

// Ключи контекста запроса.
const (
	ContextKeySubject contextKey = "jwt_subject"
	ContextKeyScopes  contextKey = "jwt_scopes"
	// ContextKeyRequiredScopes — например stores:write для POST /api/v1/stores
	ContextKeyRequiredScopes contextKey = "required_scopes"
)

// Claims — claims токена сервис-аккаунта. scopes приходят либо строкой
// через пробел ("scope"), либо массивом ("scopes").
type Claims struct {
	jwt.RegisteredClaims
	ScopeString string   `json:"scope,omitempty"`
	ScopeArray  []string `json:"scopes,omitempty"`
}

// Scopes объединяет оба представления. Не nil.
func (c *Claims) Scopes() []string {
	result := make([]string, 0, len(c.ScopeArray))
	result = append(result, strings.Fields(c.ScopeString)...)
	result = append(result, c.ScopeArray...)
	return result
}

// JWTAuth проверяет Bearer-токены вызывающих сервисов по ключам JWKS.
type JWTAuth struct {
	jwks      keyfunc.Keyfunc
	jwtLeeway time.Duration
	logger    *slog.Logger
}

// JWTAuthConfig заполняется из конфигурации сервиса (префиксы SS_ и RF_).
type JWTAuthConfig struct {
	JWKSURL         string
	CACertPath      string
	TLSSkipVerify   bool
	ClientTimeout   time.Duration
	RefreshInterval time.Duration
	JWTLeeway       time.Duration
}

// NewJWTAuth загружает ключи из JWKSURL и периодически их обновляет.
func NewJWTAuth(authCfg JWTAuthConfig, logger *slog.Logger) (*JWTAuth, error) {
	httpClient, err := buildHTTPClient(authCfg)
	if err != nil {
		return nil, err
	}

	if authCfg.CACertPath != "" {
		logger.Info("CA-сертификат добавлен в пул доверия",
			slog.String("ca_cert", authCfg.CACertPath),
		)
	}

	// Сервис стартует и при недоступном JWKS: ключи подтянутся при обновлении
	storage, err := jwkset.NewStorageFromHTTP(authCfg.JWKSURL, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           authCfg.RefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", authCfg.JWKSURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return &JWTAuth{
		jwks:      k,
		jwtLeeway: authCfg.JWTLeeway,
		logger:    logger.With(slog.String("component", "jwt_auth")),
	}, nil
}

// buildHTTPClient создаёт HTTP-клиент с настроенным TLS и таймаутом.
func buildHTTPClient(authCfg JWTAuthConfig) (*http.Client, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: authCfg.TLSSkipVerify, //nolint:gosec // настраивается через *_TLS_SKIP_VERIFY
	}

	if authCfg.CACertPath != "" {
		caCert, err := os.ReadFile(authCfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата %s: %w", authCfg.CACertPath, err)
		}

		caCertPool, err := x509.SystemCertPool()
		if err != nil {
			caCertPool = x509.NewCertPool()
		}
		caCertPool.AppendCertsFromPEM(caCert)
		tlsConfig.RootCAs = caCertPool
	}

	return &http.Client{
		Timeout: authCfg.ClientTimeout,
		Transport: &http.Transport{
			TLSClientConfig: tlsConfig,
		},
	}, nil
}

// NewJWTAuthWithKeyfunc создаёт JWTAuth с готовой keyfunc.
func NewJWTAuthWithKeyfunc(kf keyfunc.Keyfunc, jwtLeeway time.Duration, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		jwks:      kf,
		jwtLeeway: jwtLeeway,
		logger:    logger.With(slog.String("component", "jwt_auth")),
	}
}

// Middleware отвечает 401 на запрос без валидного RS256-токена с exp и sub.
// sub и scopes токена кладутся в контекст.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.Unauthorized(w, "Missing Authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				apierrors.Unauthorized(w, "Invalid Authorization format, expected Bearer <token>")
				return
			}

			tokenString := parts[1]
			if tokenString == "" {
				apierrors.Unauthorized(w, "Empty Bearer token")
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, j.jwks.KeyfuncCtx(r.Context()),
				jwt.WithValidMethods([]string{"RS256"}),
				jwt.WithExpirationRequired(),
				jwt.WithLeeway(j.jwtLeeway),
			)
			if err != nil {
				j.logger.Debug("JWT валидация не пройдена",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Invalid or expired token")
				return
			}

			if !token.Valid {
				apierrors.Unauthorized(w, "Invalid token")
				return
			}

			subject, err := claims.GetSubject()
			if err != nil || subject == "" {
				apierrors.Unauthorized(w, "Token has no subject")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySubject, subject)
			ctx = context.WithValue(ctx, ContextKeyScopes, claims.Scopes())

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScopes — middleware операции storeapi/fileapi: 403, если в токене нет
// хотя бы одного scope из ContextKeyRequiredScopes. Работает после Middleware().
func RequireScopes() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			required, _ := r.Context().Value(ContextKeyRequiredScopes).([]string)
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			scopes, ok := r.Context().Value(ContextKeyScopes).([]string)
			if !ok {
				apierrors.Forbidden(w, "Token has no scopes")
				return
			}

			for _, scope := range required {
				if !slices.Contains(scopes, scope) {
					apierrors.Forbidden(w, "Insufficient scope: "+scope+" required")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WithRequiredScopes помещает требуемые scopes операции в контекст.
func WithRequiredScopes(ctx context.Context, scopes ...string) context.Context {
	return context.WithValue(ctx, ContextKeyRequiredScopes, scopes)
}

// SubjectFromContext возвращает sub токена или "".
func SubjectFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(ContextKeySubject).(string)
	return subject
}

// ScopesFromContext возвращает scopes токена.
func ScopesFromContext(ctx context.Context) []string {
	scopes, _ := ctx.Value(ContextKeyScopes).([]string)
	return scopes
}
