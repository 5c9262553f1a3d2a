package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	apierrors "github.com/AvivSela/product-watch-il/internal/api/errors"
	"github.com/AvivSela/product-watch-il/internal/api/fileapi"
	"github.com/AvivSela/product-watch-il/internal/domain/model"
	"github.com/AvivSela/product-watch-il/internal/repository"
	"github.com/AvivSela/product-watch-il/internal/service"
)

// mockRetailFileService — мок RetailFileService с настраиваемыми функциями.
type mockRetailFileService struct {
	createFn        func(ctx context.Context, in service.CreateRetailFileInput) (*model.RetailFile, error)
	getFn           func(ctx context.Context, id uuid.UUID) (*model.RetailFile, error)
	updateFn        func(ctx context.Context, id uuid.UUID, in service.UpdateRetailFileInput) (*model.RetailFile, error)
	updateStatusFn  func(ctx context.Context, id uuid.UUID, status model.FileStatus) (*model.RetailFile, error)
	markProcessedFn func(ctx context.Context, id uuid.UUID) (*model.RetailFile, error)
	deleteFn        func(ctx context.Context, id uuid.UUID) (bool, error)
	isDuplicateFn   func(ctx context.Context, checksum string) (bool, error)
	listFn          func(ctx context.Context, filters service.RetailFileListFilters, page, limit int) (*service.RetailFilePage, error)
}

func (m *mockRetailFileService) Create(ctx context.Context, in service.CreateRetailFileInput) (*model.RetailFile, error) {
	return m.createFn(ctx, in)
}

func (m *mockRetailFileService) Get(ctx context.Context, id uuid.UUID) (*model.RetailFile, error) {
	return m.getFn(ctx, id)
}

func (m *mockRetailFileService) Update(ctx context.Context, id uuid.UUID, in service.UpdateRetailFileInput) (*model.RetailFile, error) {
	return m.updateFn(ctx, id, in)
}

func (m *mockRetailFileService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.FileStatus) (*model.RetailFile, error) {
	return m.updateStatusFn(ctx, id, status)
}

func (m *mockRetailFileService) MarkAsProcessed(ctx context.Context, id uuid.UUID) (*model.RetailFile, error) {
	return m.markProcessedFn(ctx, id)
}

func (m *mockRetailFileService) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.deleteFn(ctx, id)
}

func (m *mockRetailFileService) IsDuplicateByChecksum(ctx context.Context, checksum string) (bool, error) {
	return m.isDuplicateFn(ctx, checksum)
}

func (m *mockRetailFileService) List(ctx context.Context, filters service.RetailFileListFilters, page, limit int) (*service.RetailFilePage, error) {
	return m.listFn(ctx, filters, page, limit)
}

func newRetailFileRouter(t *testing.T, svc RetailFileService) http.Handler {
	t.Helper()
	openapi, err := NewOpenAPIHandler(fileapi.GetSwagger)
	if err != nil {
		t.Fatalf("NewOpenAPIHandler: %v", err)
	}
	h := NewRetailFileHandler(svc, NewHealthHandler("retail-file-service", nil), openapi, testLogger())
	return fileapi.Handler(h)
}

func sampleRetailFile() *model.RetailFile {
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	size := int64(2048)
	return &model.RetailFile{
		ID:         uuid.New(),
		FileName:   "PriceFull7290027600007-042.xml",
		FileURL:    "https://prices.example.com/PriceFull7290027600007-042.xml",
		FileSize:   &size,
		UploadDate: ts,
		Status:     model.FileStatusPending,
		Checksum:   "5d41402abc4b2a76b9719d911017c592",
		StoreID:    uuid.New(),
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
}

const validFileBody = `{"chain_id":"7290027600007","store_number":42,"file_name":"prices.xml","file_url":"https://prices.example.com/prices.xml","file_size":2048}`

func TestCreateRetailFile(t *testing.T) {
	var got service.CreateRetailFileInput
	f := sampleRetailFile()
	svc := &mockRetailFileService{
		createFn: func(_ context.Context, in service.CreateRetailFileInput) (*model.RetailFile, error) {
			got = in
			return f, nil
		},
	}

	rec := do(newRetailFileRouter(t, svc), http.MethodPost, "/api/v1/retail-files", validFileBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("статус = %d, ожидался 201: %s", rec.Code, rec.Body.String())
	}
	if got.ChainID != "7290027600007" || got.StoreNumber == nil || *got.StoreNumber != 42 {
		t.Errorf("вход = %+v", got)
	}
	if got.FileSize == nil || *got.FileSize != 2048 {
		t.Errorf("file_size = %v", got.FileSize)
	}

	var resp fileapi.RetailFile
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("декодирование ответа: %v", err)
	}
	if resp.Id != f.ID || resp.StoreId != f.StoreID || resp.Status != "PENDING" {
		t.Errorf("ответ = %+v", resp)
	}
}

func TestCreateRetailFile_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"ошибка валидации", &service.ValidationError{Details: map[string]string{"file_name": "unsupported file type"}},
			http.StatusBadRequest, apierrors.CodeValidationFailed},
		{"дубликат", fmt.Errorf("%w: checksum abc", service.ErrDuplicate),
			http.StatusConflict, apierrors.CodeDuplicateFile},
		{"store-service недоступен", fmt.Errorf("%w: connection refused", service.ErrStoreUnavailable),
			http.StatusBadGateway, apierrors.CodeStoreServiceUnavailable},
		{"внутренняя ошибка", errors.New("db down"),
			http.StatusInternalServerError, apierrors.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockRetailFileService{
				createFn: func(context.Context, service.CreateRetailFileInput) (*model.RetailFile, error) {
					return nil, tt.err
				},
			}

			rec := do(newRetailFileRouter(t, svc), http.MethodPost, "/api/v1/retail-files", validFileBody)
			if rec.Code != tt.wantStatus {
				t.Fatalf("статус = %d, ожидался %d", rec.Code, tt.wantStatus)
			}
			body := decodeError(t, rec)
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, ожидался %q", body.Code, tt.wantCode)
			}
			if strings.Contains(body.Message, "connection refused") || strings.Contains(body.Message, "db down") {
				t.Errorf("сообщение раскрывает детали: %q", body.Message)
			}
		})
	}
}

// unreachableResolver — StoreResolver, который не должен вызываться.
type unreachableResolver struct {
	t *testing.T
}

func (r unreachableResolver) GetOrCreateStoreID(context.Context, string, int) (uuid.UUID, error) {
	r.t.Error("store-service не должен вызываться при невалидном store_number")
	return uuid.Nil, errors.New("unexpected call")
}

func TestCreateRetailFile_StoreNumberOutOfRange(t *testing.T) {
	svc := service.NewRetailFileService(
		struct{ repository.RetailFileRepository }{},
		unreachableResolver{t: t},
		service.NewValidator(),
		nil,
		testLogger(),
	)
	body := strings.Replace(validFileBody, `"store_number":42`, `"store_number":3000000000`, 1)

	rec := do(newRetailFileRouter(t, svc), http.MethodPost, "/api/v1/retail-files", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("статус = %d, ожидался 400", rec.Code)
	}
	got := decodeError(t, rec)
	if got.Code != apierrors.CodeValidationFailed {
		t.Errorf("code = %q, ожидался %q", got.Code, apierrors.CodeValidationFailed)
	}
	if _, ok := got.Details["store_number"]; !ok {
		t.Errorf("details = %v, ожидалось поле store_number", got.Details)
	}
}

func TestGetRetailFile_NotFound(t *testing.T) {
	id := uuid.New()
	svc := &mockRetailFileService{
		getFn: func(context.Context, uuid.UUID) (*model.RetailFile, error) {
			return nil, service.ErrNotFound
		},
	}

	rec := do(newRetailFileRouter(t, svc), http.MethodGet, "/api/v1/retail-files/"+id.String(), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("статус = %d, ожидался 404", rec.Code)
	}
	body := decodeError(t, rec)
	if body.Code != apierrors.CodeRetailFileNotFound || !strings.Contains(body.Message, id.String()) {
		t.Errorf("ответ = %+v", body)
	}
}

func TestListRetailFiles(t *testing.T) {
	var (
		gotFilters service.RetailFileListFilters
		gotPage    int
		gotLimit   int
	)
	svc := &mockRetailFileService{
		listFn: func(_ context.Context, filters service.RetailFileListFilters, page, limit int) (*service.RetailFilePage, error) {
			gotFilters, gotPage, gotLimit = filters, page, limit
			return &service.RetailFilePage{
				Items: []*model.RetailFile{sampleRetailFile()},
				Page:  page,
				Limit: limit,
				Total: 1,
				Pages: 1,
			}, nil
		},
	}
	router := newRetailFileRouter(t, svc)

	t.Run("значения по умолчанию", func(t *testing.T) {
		rec := do(router, http.MethodGet, "/api/v1/retail-files", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("статус = %d, ожидался 200", rec.Code)
		}
		if gotPage != 1 || gotLimit != service.DefaultFileLimit {
			t.Errorf("page/limit = %d/%d", gotPage, gotLimit)
		}
		if gotFilters.Status != nil || gotFilters.StoreID != nil {
			t.Errorf("фильтры = %+v, ожидались пустые", gotFilters)
		}

		var resp fileapi.RetailFileListResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("декодирование ответа: %v", err)
		}
		want := fileapi.RetailFilePagination{Page: 1, Limit: service.DefaultFileLimit, Total: 1, Pages: 1}
		if len(resp.Data) != 1 || resp.Pagination != want {
			t.Errorf("ответ = %+v", resp)
		}
	})

	t.Run("статус без учёта регистра", func(t *testing.T) {
		storeID := uuid.New()
		rec := do(router, http.MethodGet, "/api/v1/retail-files?status=failed&store_id="+storeID.String()+"&page=2&limit=50", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("статус = %d, ожидался 200", rec.Code)
		}
		if gotFilters.Status == nil || *gotFilters.Status != model.FileStatusFailed {
			t.Errorf("status = %v", gotFilters.Status)
		}
		if gotFilters.StoreID == nil || *gotFilters.StoreID != storeID {
			t.Errorf("store_id = %v", gotFilters.StoreID)
		}
		if gotPage != 2 || gotLimit != 50 {
			t.Errorf("page/limit = %d/%d", gotPage, gotLimit)
		}
	})

	t.Run("недопустимый статус", func(t *testing.T) {
		rec := do(router, http.MethodGet, "/api/v1/retail-files?status=DONE", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("статус = %d, ожидался 400", rec.Code)
		}
		body := decodeError(t, rec)
		if body.Code != apierrors.CodeValidationFailed || body.Details["status"] == "" {
			t.Errorf("ответ = %+v", body)
		}
	})
}

func TestUpdateRetailFile(t *testing.T) {
	id := uuid.New()
	var got service.UpdateRetailFileInput
	svc := &mockRetailFileService{
		updateFn: func(_ context.Context, _ uuid.UUID, in service.UpdateRetailFileInput) (*model.RetailFile, error) {
			got = in
			f := sampleRetailFile()
			f.ID = id
			f.Status = *in.Status
			return f, nil
		},
	}

	rec := do(newRetailFileRouter(t, svc), http.MethodPut, "/api/v1/retail-files/"+id.String(), `{"status":"PROCESSING","checksum":"abc"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200: %s", rec.Code, rec.Body.String())
	}
	if got.Status == nil || *got.Status != model.FileStatusProcessing {
		t.Errorf("status = %v", got.Status)
	}
	if got.Checksum == nil || *got.Checksum != "abc" || got.FileName != nil {
		t.Errorf("вход = %+v", got)
	}
}

func TestUpdateRetailFileStatus(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name       string
		query      string
		err        error
		wantStatus int
		wantCode   string
		wantCalled bool
	}{
		{"успех", "?status=archived", nil, http.StatusOK, "", true},
		{"недопустимый статус", "?status=DONE", nil, http.StatusBadRequest, apierrors.CodeValidationFailed, false},
		{"нет статуса", "", nil, http.StatusBadRequest, apierrors.CodeMissingParameter, false},
		{"файл не найден", "?status=FAILED", service.ErrNotFound, http.StatusNotFound, apierrors.CodeRetailFileNotFound, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockRetailFileService{
				updateStatusFn: func(_ context.Context, _ uuid.UUID, status model.FileStatus) (*model.RetailFile, error) {
					called = true
					if tt.err != nil {
						return nil, tt.err
					}
					f := sampleRetailFile()
					f.Status = status
					return f, nil
				},
			}

			rec := do(newRetailFileRouter(t, svc), http.MethodPatch, "/api/v1/retail-files/"+id.String()+"/status"+tt.query, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("статус = %d, ожидался %d", rec.Code, tt.wantStatus)
			}
			if called != tt.wantCalled {
				t.Errorf("вызов сервиса = %v, ожидался %v", called, tt.wantCalled)
			}
			if tt.wantCode != "" {
				if body := decodeError(t, rec); body.Code != tt.wantCode {
					t.Errorf("code = %q, ожидался %q", body.Code, tt.wantCode)
				}
				return
			}

			var resp fileapi.RetailFile
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("декодирование ответа: %v", err)
			}
			if resp.Status != "ARCHIVED" {
				t.Errorf("status = %q, ожидался ARCHIVED", resp.Status)
			}
		})
	}
}

func TestMarkRetailFileProcessed(t *testing.T) {
	id := uuid.New()
	svc := &mockRetailFileService{
		markProcessedFn: func(_ context.Context, gotID uuid.UUID) (*model.RetailFile, error) {
			if gotID != id {
				return nil, service.ErrNotFound
			}
			f := sampleRetailFile()
			f.ID = id
			f.Status = model.FileStatusCompleted
			return f, nil
		},
	}
	router := newRetailFileRouter(t, svc)

	rec := do(router, http.MethodPatch, "/api/v1/retail-files/"+id.String()+"/process", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидался 200", rec.Code)
	}
	var resp fileapi.RetailFile
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("декодирование ответа: %v", err)
	}
	if resp.Status != "COMPLETED" {
		t.Errorf("status = %q, ожидался COMPLETED", resp.Status)
	}

	rec = do(router, http.MethodPatch, "/api/v1/retail-files/"+uuid.NewString()+"/process", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("статус = %d, ожидался 404", rec.Code)
	}
}

func TestDeleteRetailFile(t *testing.T) {
	tests := []struct {
		name       string
		deleted    bool
		wantStatus int
	}{
		{"удалён", true, http.StatusNoContent},
		{"отсутствует", false, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockRetailFileService{
				deleteFn: func(context.Context, uuid.UUID) (bool, error) { return tt.deleted, nil },
			}
			rec := do(newRetailFileRouter(t, svc), http.MethodDelete, "/api/v1/retail-files/"+uuid.NewString(), "")
			if rec.Code != tt.wantStatus {
				t.Errorf("статус = %d, ожидался %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestCheckDuplicate(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		dup        bool
		wantCalled bool
		want       bool
	}{
		{"дубликат", "?checksum=abc", true, true, true},
		{"не дубликат", "?checksum=abc", false, true, false},
		{"без checksum", "", true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockRetailFileService{
				isDuplicateFn: func(_ context.Context, checksum string) (bool, error) {
					called = true
					if checksum != "abc" {
						t.Errorf("checksum = %q", checksum)
					}
					return tt.dup, nil
				},
			}

			rec := do(newRetailFileRouter(t, svc), http.MethodGet, "/api/v1/retail-files/duplicates/check"+tt.query, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("статус = %d, ожидался 200", rec.Code)
			}
			if called != tt.wantCalled {
				t.Errorf("вызов сервиса = %v, ожидался %v", called, tt.wantCalled)
			}

			var resp fileapi.DuplicateCheckResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("декодирование ответа: %v", err)
			}
			if resp.IsDuplicate != tt.want || resp.DuplicateByChecksum != tt.want {
				t.Errorf("ответ = %+v, ожидалось %v", resp, tt.want)
			}
		})
	}
}
