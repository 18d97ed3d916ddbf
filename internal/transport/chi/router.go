package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface lists the HTTP operations of the API.
type ServerInterface interface {
	// (POST /upload/content)
	UploadContent(w http.ResponseWriter, r *http.Request)
	// (POST /upload/pdf)
	UploadPDF(w http.ResponseWriter, r *http.Request)
	// (POST /upload/url)
	UploadURL(w http.ResponseWriter, r *http.Request)
	// (POST /upload/vtt)
	UploadVTT(w http.ResponseWriter, r *http.Request)
	// (POST /chat)
	Chat(w http.ResponseWriter, r *http.Request)
	// (GET /collections)
	ListCollections(w http.ResponseWriter, r *http.Request)
	// (DELETE /collection/{name})
	DeleteCollection(w http.ResponseWriter, r *http.Request, name string)
	// (GET /health)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
}

// InvalidParamFormatError reports a path parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// Handler mounts si on a fresh chi router.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

// HandlerWithOptions mounts si on options.BaseRouter (a fresh router when nil).
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	errorHandler := options.ErrorHandlerFunc
	if errorHandler == nil {
		errorHandler = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := &serverInterfaceWrapper{handler: si, errorHandler: errorHandler}

	r.Post("/upload/content", si.UploadContent)
	r.Post("/upload/pdf", si.UploadPDF)
	r.Post("/upload/url", si.UploadURL)
	r.Post("/upload/vtt", si.UploadVTT)
	r.Post("/chat", si.Chat)
	r.Get("/collections", si.ListCollections)
	r.Delete("/collection/{name}", wrapper.DeleteCollection)
	r.Get("/health", si.HealthCheck)
	r.Get("/metrics", si.Metrics)
	return r
}

type serverInterfaceWrapper struct {
	handler      ServerInterface
	errorHandler func(w http.ResponseWriter, r *http.Request, err error)
}

// DeleteCollection binds the percent-decoded {name} path parameter.
func (siw *serverInterfaceWrapper) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	var name string
	err := runtime.BindStyledParameterWithOptions("simple", "name", chi.URLParam(r, "name"), &name,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.errorHandler(w, r, &InvalidParamFormatError{ParamName: "name", Err: err})
		return
	}
	siw.handler.DeleteCollection(w, r, name)
}
