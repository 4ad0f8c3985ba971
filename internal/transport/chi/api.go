package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// GET /health
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// GET /metrics
	Metrics(w http.ResponseWriter, r *http.Request)
	// GET /api/stars/cone-search
	ConeSearch(w http.ResponseWriter, r *http.Request, params ConeSearchParams)
	// GET /api/stars/lookup/{source_id}
	LookupStar(w http.ResponseWriter, r *http.Request, sourceID string)
	// GET /api/stars/nearby/{source_id}
	NearbyStars(w http.ResponseWriter, r *http.Request, sourceID string, params NearbyStarsParams)
	// GET /api/stars/count
	CountStars(w http.ResponseWriter, r *http.Request, params CountStarsParams)
	// GET /api/papers/search
	SearchPapers(w http.ResponseWriter, r *http.Request, params SearchPapersParams)
	// GET /api/papers/by-star/{source_id}
	PapersByStar(w http.ResponseWriter, r *http.Request, sourceID string)
	// GET /api/papers/topic/{keyword}
	PapersByTopic(w http.ResponseWriter, r *http.Request, keyword string, params PapersByTopicParams)
	// GET /api/search/hybrid
	HybridSearch(w http.ResponseWriter, r *http.Request, params HybridSearchParams)
	// GET /api/search/cone-with-context
	ConeWithContext(w http.ResponseWriter, r *http.Request, params ConeWithContextParams)
	// GET /api/search/semantic-with-sources
	SemanticWithSources(w http.ResponseWriter, r *http.Request, params SemanticWithSourcesParams)
	// GET /api/search/stats
	SystemStats(w http.ResponseWriter, r *http.Request)
	// POST /api/agent/ask
	AskAgent(w http.ResponseWriter, r *http.Request)
	// GET /api/agent/ask
	AskAgentGet(w http.ResponseWriter, r *http.Request, params AskAgentGetParams)
}

// ConeSearchParams defines parameters for ConeSearch.
type ConeSearchParams struct {
	RA          float64  `form:"ra" json:"ra"`
	Dec         float64  `form:"dec" json:"dec"`
	Radius      float64  `form:"radius" json:"radius"`
	Limit       *int     `form:"limit,omitempty" json:"limit,omitempty"`
	MagLimit    *float64 `form:"mag_limit,omitempty" json:"mag_limit,omitempty"`
	MinParallax *float64 `form:"min_parallax,omitempty" json:"min_parallax,omitempty"`
}

// NearbyStarsParams defines parameters for NearbyStars.
type NearbyStarsParams struct {
	Radius *float64 `form:"radius,omitempty" json:"radius,omitempty"`
	Limit  *int     `form:"limit,omitempty" json:"limit,omitempty"`
}

// CountStarsParams defines parameters for CountStars.
type CountStarsParams struct {
	RA     float64 `form:"ra" json:"ra"`
	Dec    float64 `form:"dec" json:"dec"`
	Radius float64 `form:"radius" json:"radius"`
}

// SearchPapersParams defines parameters for SearchPapers.
type SearchPapersParams struct {
	Q     string `form:"q" json:"q"`
	Limit *int   `form:"limit,omitempty" json:"limit,omitempty"`
}

// PapersByTopicParams defines parameters for PapersByTopic.
type PapersByTopicParams struct {
	Limit *int `form:"limit,omitempty" json:"limit,omitempty"`
}

// HybridSearchParams defines parameters for HybridSearch.
type HybridSearchParams struct {
	Q        *string  `form:"q,omitempty" json:"q,omitempty"`
	RA       *float64 `form:"ra,omitempty" json:"ra,omitempty"`
	Dec      *float64 `form:"dec,omitempty" json:"dec,omitempty"`
	Radius   *float64 `form:"radius,omitempty" json:"radius,omitempty"`
	SourceID *string  `form:"source_id,omitempty" json:"source_id,omitempty"`
	Limit    *int     `form:"limit,omitempty" json:"limit,omitempty"`
}

// ConeWithContextParams defines parameters for ConeWithContext.
type ConeWithContextParams struct {
	RA     float64 `form:"ra" json:"ra"`
	Dec    float64 `form:"dec" json:"dec"`
	Radius float64 `form:"radius" json:"radius"`
	Limit  *int    `form:"limit,omitempty" json:"limit,omitempty"`
	Enrich *bool   `form:"enrich,omitempty" json:"enrich,omitempty"`
}

// SemanticWithSourcesParams defines parameters for SemanticWithSources.
type SemanticWithSourcesParams struct {
	Q     string `form:"q" json:"q"`
	Limit *int   `form:"limit,omitempty" json:"limit,omitempty"`
}

// AskAgentGetParams defines parameters for AskAgentGet.
type AskAgentGetParams struct {
	Q string `form:"q" json:"q"`
}

// InvalidParamFormatError reports a parameter that could not be bound.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// MiddlewareFunc wraps a single route handler.
type MiddlewareFunc func(http.Handler) http.Handler

// ServerInterfaceWrapper converts raw requests into typed handler calls.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, h http.Handler) {
	for _, middleware := range siw.HandlerMiddlewares {
		h = middleware(h)
	}
	h.ServeHTTP(w, r)
}

// bindQuery binds each named query parameter into its destination, stopping at the first failure.
func (siw *ServerInterfaceWrapper) bindQuery(w http.ResponseWriter, r *http.Request, binds ...queryBind) bool {
	q := r.URL.Query()
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", true, b.required, b.name, q, b.dest); err != nil {
			siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: b.name, Err: err})
			return false
		}
	}
	return true
}

func (siw *ServerInterfaceWrapper) bindPath(w http.ResponseWriter, r *http.Request, name string, dest *string) bool {
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), dest,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: name, Err: err})
		return false
	}
	return true
}

type queryBind struct {
	name     string
	required bool
	dest     any
}

func required(name string, dest any) queryBind {
	return queryBind{name: name, required: true, dest: dest}
}
func optional(name string, dest any) queryBind { return queryBind{name: name, dest: dest} }

// HealthCheck operation middleware
func (siw *ServerInterfaceWrapper) HealthCheck(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.HealthCheck))
}

// Metrics operation middleware
func (siw *ServerInterfaceWrapper) Metrics(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.Metrics))
}

// ConeSearch operation middleware
func (siw *ServerInterfaceWrapper) ConeSearch(w http.ResponseWriter, r *http.Request) {
	var params ConeSearchParams
	if !siw.bindQuery(w, r,
		required("ra", &params.RA),
		required("dec", &params.Dec),
		required("radius", &params.Radius),
		optional("limit", &params.Limit),
		optional("mag_limit", &params.MagLimit),
		optional("min_parallax", &params.MinParallax),
	) {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.ConeSearch(w, r, params)
	}))
}

// LookupStar operation middleware
func (siw *ServerInterfaceWrapper) LookupStar(w http.ResponseWriter, r *http.Request) {
	var sourceID string
	if !siw.bindPath(w, r, "source_id", &sourceID) {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.LookupStar(w, r, sourceID)
	}))
}

// NearbyStars operation middleware
func (siw *ServerInterfaceWrapper) NearbyStars(w http.ResponseWriter, r *http.Request) {
	var sourceID string
	if !siw.bindPath(w, r, "source_id", &sourceID) {
		return
	}
	var params NearbyStarsParams
	if !siw.bindQuery(w, r,
		optional("radius", &params.Radius),
		optional("limit", &params.Limit),
	) {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.NearbyStars(w, r, sourceID, params)
	}))
}

// CountStars operation middleware
func (siw *ServerInterfaceWrapper) CountStars(w http.ResponseWriter, r *http.Request) {
	var params CountStarsParams
	if !siw.bindQuery(w, r,
		required("ra", &params.RA),
		required("dec", &params.Dec),
		required("radius", &params.Radius),
	) {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.CountStars(w, r, params)
	}))
}

// SearchPapers operation middleware
func (siw *ServerInterfaceWrapper) SearchPapers(w http.ResponseWriter, r *http.Request) {
	var params SearchPapersParams
	if !siw.bindQuery(w, r,
		required("q", &params.Q),
		optional("limit", &params.Limit),
	) {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.SearchPapers(w, r, params)
	}))
}

// PapersByStar operation middleware
func (siw *ServerInterfaceWrapper) PapersByStar(w http.ResponseWriter, r *http.Request) {
	var sourceID string
	if !siw.bindPath(w, r, "source_id", &sourceID) {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.PapersByStar(w, r, sourceID)
	}))
}

// PapersByTopic operation middleware
func (siw *ServerInterfaceWrapper) PapersByTopic(w http.ResponseWriter, r *http.Request) {
	var keyword string
	if !siw.bindPath(w, r, "keyword", &keyword) {
		return
	}
	var params PapersByTopicParams
	if !siw.bindQuery(w, r, optional("limit", &params.Limit)) {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.PapersByTopic(w, r, keyword, params)
	}))
}

// HybridSearch operation middleware
func (siw *ServerInterfaceWrapper) HybridSearch(w http.ResponseWriter, r *http.Request) {
	var params HybridSearchParams
	if !siw.bindQuery(w, r,
		optional("q", &params.Q),
		optional("ra", &params.RA),
		optional("dec", &params.Dec),
		optional("radius", &params.Radius),
		optional("source_id", &params.SourceID),
		optional("limit", &params.Limit),
	) {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.HybridSearch(w, r, params)
	}))
}

// ConeWithContext operation middleware
func (siw *ServerInterfaceWrapper) ConeWithContext(w http.ResponseWriter, r *http.Request) {
	var params ConeWithContextParams
	if !siw.bindQuery(w, r,
		required("ra", &params.RA),
		required("dec", &params.Dec),
		required("radius", &params.Radius),
		optional("limit", &params.Limit),
		optional("enrich", &params.Enrich),
	) {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.ConeWithContext(w, r, params)
	}))
}

// SemanticWithSources operation middleware
func (siw *ServerInterfaceWrapper) SemanticWithSources(w http.ResponseWriter, r *http.Request) {
	var params SemanticWithSourcesParams
	if !siw.bindQuery(w, r,
		required("q", &params.Q),
		optional("limit", &params.Limit),
	) {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.SemanticWithSources(w, r, params)
	}))
}

// SystemStats operation middleware
func (siw *ServerInterfaceWrapper) SystemStats(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.SystemStats))
}

// AskAgent operation middleware
func (siw *ServerInterfaceWrapper) AskAgent(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.AskAgent))
}

// AskAgentGet operation middleware
func (siw *ServerInterfaceWrapper) AskAgentGet(w http.ResponseWriter, r *http.Request) {
	var params AskAgentGetParams
	if !siw.bindQuery(w, r, required("q", &params.Q)) {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.AskAgentGet(w, r, params)
	}))
}

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerWithOptions mounts every route of si on a chi router.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	base := options.BaseURL
	r.Get(base+"/health", wrapper.HealthCheck)
	r.Get(base+"/metrics", wrapper.Metrics)
	r.Get(base+"/api/stars/cone-search", wrapper.ConeSearch)
	r.Get(base+"/api/stars/lookup/{source_id}", wrapper.LookupStar)
	r.Get(base+"/api/stars/nearby/{source_id}", wrapper.NearbyStars)
	r.Get(base+"/api/stars/count", wrapper.CountStars)
	r.Get(base+"/api/papers/search", wrapper.SearchPapers)
	r.Get(base+"/api/papers/by-star/{source_id}", wrapper.PapersByStar)
	r.Get(base+"/api/papers/topic/{keyword}", wrapper.PapersByTopic)
	r.Get(base+"/api/search/hybrid", wrapper.HybridSearch)
	r.Get(base+"/api/search/cone-with-context", wrapper.ConeWithContext)
	r.Get(base+"/api/search/semantic-with-sources", wrapper.SemanticWithSources)
	r.Get(base+"/api/search/stats", wrapper.SystemStats)
	r.Post(base+"/api/agent/ask", wrapper.AskAgent)
	r.Get(base+"/api/agent/ask", wrapper.AskAgentGet)
	return r
}
