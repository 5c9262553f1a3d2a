// Пакет fileapi — маршруты retail-file-service: интерфейс обработчиков,
// привязка параметров запроса и OpenAPI документ.
// Структура повторяет chi-server из oapi-codegen.
package fileapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/AvivSela/product-watch-il/internal/api/errors"
	"github.com/AvivSela/product-watch-il/internal/api/middleware"
)

// ServerInterface — обработчики всех операций retail-file-service.
type ServerInterface interface {
	// (GET /api/v1/retail-files)
	ListRetailFiles(w http.ResponseWriter, r *http.Request, params ListRetailFilesParams)
	// (POST /api/v1/retail-files)
	CreateRetailFile(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/retail-files/duplicates/check)
	CheckDuplicate(w http.ResponseWriter, r *http.Request, params CheckDuplicateParams)
	// (GET /api/v1/retail-files/{id})
	GetRetailFile(w http.ResponseWriter, r *http.Request, id RetailFileId)
	// (PUT /api/v1/retail-files/{id})
	UpdateRetailFile(w http.ResponseWriter, r *http.Request, id RetailFileId)
	// (DELETE /api/v1/retail-files/{id})
	DeleteRetailFile(w http.ResponseWriter, r *http.Request, id RetailFileId)
	// (PATCH /api/v1/retail-files/{id}/status)
	UpdateRetailFileStatus(w http.ResponseWriter, r *http.Request, id RetailFileId, params UpdateRetailFileStatusParams)
	// (PATCH /api/v1/retail-files/{id}/process)
	MarkRetailFileProcessed(w http.ResponseWriter, r *http.Request, id RetailFileId)
	// (GET /health/live)
	HealthLive(w http.ResponseWriter, r *http.Request)
	// (GET /health/ready)
	HealthReady(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	GetMetrics(w http.ResponseWriter, r *http.Request)
	// (GET /openapi.json)
	GetOpenAPI(w http.ResponseWriter, r *http.Request)
}

// MiddlewareFunc — middleware уровня операции (выполняется после привязки параметров).
type MiddlewareFunc func(http.Handler) http.Handler

// ServerInterfaceWrapper разбирает параметры запроса и вызывает обработчик.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

// ListRetailFiles operation middleware
func (siw *ServerInterfaceWrapper) ListRetailFiles(w http.ResponseWriter, r *http.Request) {
	r = r.WithContext(middleware.WithRequiredScopes(r.Context(), ScopeFilesRead))

	var params ListRetailFilesParams

	for _, q := range []struct {
		name string
		dest any
	}{
		{"status", &params.Status},
		{"store_id", &params.StoreId},
		{"page", &params.Page},
		{"limit", &params.Limit},
	} {
		err := runtime.BindQueryParameter("form", true, false, q.name, r.URL.Query(), q.dest)
		if err != nil {
			siw.ErrorHandlerFunc(w, r, &apierrors.InvalidParamFormatError{ParamName: q.name, Err: err})
			return
		}
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.ListRetailFiles(w, r, params)
	})
}

// CreateRetailFile operation middleware
func (siw *ServerInterfaceWrapper) CreateRetailFile(w http.ResponseWriter, r *http.Request) {
	r = r.WithContext(middleware.WithRequiredScopes(r.Context(), ScopeFilesWrite))

	siw.serve(w, r, siw.Handler.CreateRetailFile)
}

// CheckDuplicate operation middleware
func (siw *ServerInterfaceWrapper) CheckDuplicate(w http.ResponseWriter, r *http.Request) {
	r = r.WithContext(middleware.WithRequiredScopes(r.Context(), ScopeFilesRead))

	var params CheckDuplicateParams

	err := runtime.BindQueryParameter("form", true, false, "checksum", r.URL.Query(), &params.Checksum)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &apierrors.InvalidParamFormatError{ParamName: "checksum", Err: err})
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.CheckDuplicate(w, r, params)
	})
}

// GetRetailFile operation middleware
func (siw *ServerInterfaceWrapper) GetRetailFile(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindRetailFileID(w, r)
	if !ok {
		return
	}

	r = r.WithContext(middleware.WithRequiredScopes(r.Context(), ScopeFilesRead))

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetRetailFile(w, r, id)
	})
}

// UpdateRetailFile operation middleware
func (siw *ServerInterfaceWrapper) UpdateRetailFile(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindRetailFileID(w, r)
	if !ok {
		return
	}

	r = r.WithContext(middleware.WithRequiredScopes(r.Context(), ScopeFilesWrite))

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.UpdateRetailFile(w, r, id)
	})
}

// DeleteRetailFile operation middleware
func (siw *ServerInterfaceWrapper) DeleteRetailFile(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindRetailFileID(w, r)
	if !ok {
		return
	}

	r = r.WithContext(middleware.WithRequiredScopes(r.Context(), ScopeFilesWrite))

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.DeleteRetailFile(w, r, id)
	})
}

// UpdateRetailFileStatus operation middleware
func (siw *ServerInterfaceWrapper) UpdateRetailFileStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindRetailFileID(w, r)
	if !ok {
		return
	}

	r = r.WithContext(middleware.WithRequiredScopes(r.Context(), ScopeFilesWrite))

	var params UpdateRetailFileStatusParams

	// ------------- Required query parameter "status" -------------

	if r.URL.Query().Get("status") == "" {
		siw.ErrorHandlerFunc(w, r, &apierrors.RequiredParamError{ParamName: "status"})
		return
	}

	err := runtime.BindQueryParameter("form", true, true, "status", r.URL.Query(), &params.Status)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &apierrors.InvalidParamFormatError{ParamName: "status", Err: err})
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.UpdateRetailFileStatus(w, r, id, params)
	})
}

// MarkRetailFileProcessed operation middleware
func (siw *ServerInterfaceWrapper) MarkRetailFileProcessed(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindRetailFileID(w, r)
	if !ok {
		return
	}

	r = r.WithContext(middleware.WithRequiredScopes(r.Context(), ScopeFilesWrite))

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.MarkRetailFileProcessed(w, r, id)
	})
}

// HealthLive operation middleware
func (siw *ServerInterfaceWrapper) HealthLive(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.HealthLive)
}

// HealthReady operation middleware
func (siw *ServerInterfaceWrapper) HealthReady(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.HealthReady)
}

// GetMetrics operation middleware
func (siw *ServerInterfaceWrapper) GetMetrics(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetMetrics)
}

// GetOpenAPI operation middleware
func (siw *ServerInterfaceWrapper) GetOpenAPI(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetOpenAPI)
}

// bindRetailFileID разбирает path-параметр id.
func (siw *ServerInterfaceWrapper) bindRetailFileID(w http.ResponseWriter, r *http.Request) (RetailFileId, bool) {
	var id RetailFileId

	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &apierrors.InvalidParamFormatError{ParamName: "id", Err: err})
		return id, false
	}
	return id, true
}

// serve оборачивает обработчик операции в HandlerMiddlewares.
func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, fn http.HandlerFunc) {
	handler := http.Handler(fn)
	for _, mw := range siw.HandlerMiddlewares {
		handler = mw(handler)
	}
	handler.ServeHTTP(w, r)
}

// ChiServerOptions — параметры монтирования маршрутов.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// Handler создаёт http.Handler со всеми маршрутами retail-file-service.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

// HandlerWithOptions монтирует маршруты с указанными параметрами.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter

	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = apierrors.ParamErrorHandler
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/api/v1/retail-files", wrapper.ListRetailFiles)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/api/v1/retail-files", wrapper.CreateRetailFile)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/api/v1/retail-files/duplicates/check", wrapper.CheckDuplicate)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/api/v1/retail-files/{id}", wrapper.GetRetailFile)
	})
	r.Group(func(r chi.Router) {
		r.Put(options.BaseURL+"/api/v1/retail-files/{id}", wrapper.UpdateRetailFile)
	})
	r.Group(func(r chi.Router) {
		r.Delete(options.BaseURL+"/api/v1/retail-files/{id}", wrapper.DeleteRetailFile)
	})
	r.Group(func(r chi.Router) {
		r.Patch(options.BaseURL+"/api/v1/retail-files/{id}/status", wrapper.UpdateRetailFileStatus)
	})
	r.Group(func(r chi.Router) {
		r.Patch(options.BaseURL+"/api/v1/retail-files/{id}/process", wrapper.MarkRetailFileProcessed)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/health/live", wrapper.HealthLive)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/health/ready", wrapper.HealthReady)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/metrics", wrapper.GetMetrics)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/openapi.json", wrapper.GetOpenAPI)
	})

	return r
}
