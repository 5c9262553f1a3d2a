// Пакет storeapi — маршруты store-service: интерфейс обработчиков,
// привязка параметров запроса и OpenAPI документ.
// Структура повторяет chi-server из oapi-codegen.
package storeapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/AvivSela/product-watch-il/internal/api/errors"
	"github.com/AvivSela/product-watch-il/internal/api/middleware"
)

// ServerInterface — обработчики всех операций store-service.
type ServerInterface interface {
	// (GET /api/v1/stores)
	ListStores(w http.ResponseWriter, r *http.Request, params ListStoresParams)
	// (POST /api/v1/stores)
	CreateStore(w http.ResponseWriter, r *http.Request, params CreateStoreParams)
	// (GET /api/v1/stores/by-natural-key)
	GetStoreByNaturalKey(w http.ResponseWriter, r *http.Request, params GetStoreByNaturalKeyParams)
	// (GET /api/v1/stores/{id})
	GetStore(w http.ResponseWriter, r *http.Request, id StoreId)
	// (PUT /api/v1/stores/{id})
	UpdateStore(w http.ResponseWriter, r *http.Request, id StoreId)
	// (DELETE /api/v1/stores/{id})
	DeleteStore(w http.ResponseWriter, r *http.Request, id StoreId)
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

// ListStores operation middleware
func (siw *ServerInterfaceWrapper) ListStores(w http.ResponseWriter, r *http.Request) {
	var err error

	r = r.WithContext(middleware.WithRequiredScopes(r.Context(), ScopeStoresRead))

	var params ListStoresParams

	for _, q := range []struct {
		name string
		dest any
	}{
		{"chain_id", &params.ChainId},
		{"store_type", &params.StoreType},
		{"sub_chain_id", &params.SubChainId},
		{"page", &params.Page},
		{"size", &params.Size},
	} {
		err = runtime.BindQueryParameter("form", true, false, q.name, r.URL.Query(), q.dest)
		if err != nil {
			siw.ErrorHandlerFunc(w, r, &apierrors.InvalidParamFormatError{ParamName: q.name, Err: err})
			return
		}
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.ListStores(w, r, params)
	})
}

// CreateStore operation middleware
func (siw *ServerInterfaceWrapper) CreateStore(w http.ResponseWriter, r *http.Request) {
	var err error

	r = r.WithContext(middleware.WithRequiredScopes(r.Context(), ScopeStoresWrite))

	var params CreateStoreParams

	if valueList, found := r.Header[http.CanonicalHeaderKey("X-Service-Name")]; found {
		if n := len(valueList); n != 1 {
			siw.ErrorHandlerFunc(w, r, &apierrors.InvalidParamFormatError{
				ParamName: "X-Service-Name",
				Err:       fmt.Errorf("expected one value, got %d", n),
			})
			return
		}

		var XServiceName string
		err = runtime.BindStyledParameterWithOptions("simple", "X-Service-Name", valueList[0], &XServiceName,
			runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationHeader, Explode: false, Required: false})
		if err != nil {
			siw.ErrorHandlerFunc(w, r, &apierrors.InvalidParamFormatError{ParamName: "X-Service-Name", Err: err})
			return
		}
		params.XServiceName = &XServiceName
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.CreateStore(w, r, params)
	})
}

// GetStoreByNaturalKey operation middleware
func (siw *ServerInterfaceWrapper) GetStoreByNaturalKey(w http.ResponseWriter, r *http.Request) {
	var err error

	r = r.WithContext(middleware.WithRequiredScopes(r.Context(), ScopeStoresRead))

	var params GetStoreByNaturalKeyParams

	// ------------- Required query parameter "chain_id" -------------

	if r.URL.Query().Get("chain_id") == "" {
		siw.ErrorHandlerFunc(w, r, &apierrors.RequiredParamError{ParamName: "chain_id"})
		return
	}

	err = runtime.BindQueryParameter("form", true, true, "chain_id", r.URL.Query(), &params.ChainId)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &apierrors.InvalidParamFormatError{ParamName: "chain_id", Err: err})
		return
	}

	// ------------- Required query parameter "store_number" -------------

	if r.URL.Query().Get("store_number") == "" {
		siw.ErrorHandlerFunc(w, r, &apierrors.RequiredParamError{ParamName: "store_number"})
		return
	}

	err = runtime.BindQueryParameter("form", true, true, "store_number", r.URL.Query(), &params.StoreNumber)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &apierrors.InvalidParamFormatError{ParamName: "store_number", Err: err})
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetStoreByNaturalKey(w, r, params)
	})
}

// GetStore operation middleware
func (siw *ServerInterfaceWrapper) GetStore(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindStoreID(w, r)
	if !ok {
		return
	}

	r = r.WithContext(middleware.WithRequiredScopes(r.Context(), ScopeStoresRead))

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetStore(w, r, id)
	})
}

// UpdateStore operation middleware
func (siw *ServerInterfaceWrapper) UpdateStore(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindStoreID(w, r)
	if !ok {
		return
	}

	r = r.WithContext(middleware.WithRequiredScopes(r.Context(), ScopeStoresWrite))

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.UpdateStore(w, r, id)
	})
}

// DeleteStore operation middleware
func (siw *ServerInterfaceWrapper) DeleteStore(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindStoreID(w, r)
	if !ok {
		return
	}

	r = r.WithContext(middleware.WithRequiredScopes(r.Context(), ScopeStoresWrite))

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.DeleteStore(w, r, id)
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

// bindStoreID разбирает path-параметр id.
func (siw *ServerInterfaceWrapper) bindStoreID(w http.ResponseWriter, r *http.Request) (StoreId, bool) {
	var id StoreId

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

// Handler создаёт http.Handler со всеми маршрутами store-service.
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
		r.Get(options.BaseURL+"/api/v1/stores", wrapper.ListStores)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/api/v1/stores", wrapper.CreateStore)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/api/v1/stores/by-natural-key", wrapper.GetStoreByNaturalKey)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/api/v1/stores/{id}", wrapper.GetStore)
	})
	r.Group(func(r chi.Router) {
		r.Put(options.BaseURL+"/api/v1/stores/{id}", wrapper.UpdateStore)
	})
	r.Group(func(r chi.Router) {
		r.Delete(options.BaseURL+"/api/v1/stores/{id}", wrapper.DeleteStore)
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
