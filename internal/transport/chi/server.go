package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/taarya/internal/domain"
	"github.com/kailas-cloud/taarya/internal/domain/agent"
	domcat "github.com/kailas-cloud/taarya/internal/domain/catalog"
	domgraph "github.com/kailas-cloud/taarya/internal/domain/graph"
	"github.com/kailas-cloud/taarya/internal/domain/search"
	domsim "github.com/kailas-cloud/taarya/internal/domain/similarity"
	"github.com/kailas-cloud/taarya/internal/domain/sky"
	"github.com/kailas-cloud/taarya/internal/logger"
	"github.com/kailas-cloud/taarya/internal/usecase/health"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest             = "bad_request"
	CodeUnauthorized           = "unauthorized"
	CodeInvalidParameter       = "invalid_parameter"
	CodeNotFound               = "not_found"
	CodeSchemaConflict         = "schema_conflict"
	CodeInsufficientSignal     = "insufficient_signal"
	CodeBackendUnavailable     = "backend_unavailable"
	CodeEmbeddingProviderError = "embedding_provider_error"
	CodeInternalError          = "internal_error"
)

// Per-endpoint limits and defaults enforced before the core re-validates.
const (
	maxConeLimit       = 1000
	maxNeighborLimit   = 500
	maxPaperLimit      = 50
	defaultPaperLimit  = 10
	maxTopicLimit      = 100
	defaultTopicLimit  = 20
	maxHybridLimit     = 100
	maxContextLimit    = 500
	defaultContextLim  = 50
	minQueryLength     = 3
	minKeywordLength   = 2
	maxAskHistoryTurns = 20
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements ServerInterface on top of the query router and the reasoner.
type Server struct {
	router        Router
	asker         Asker
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server.
func NewServer(router Router, asker Asker, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		router: router,
		asker:  asker,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidParameter, http.StatusBadRequest, CodeInvalidParameter),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrSchemaConflict, http.StatusConflict, CodeSchemaConflict),
		sentinelHandler(domain.ErrUnclassifiable, http.StatusUnprocessableEntity, CodeInsufficientSignal),
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusServiceUnavailable, CodeBackendUnavailable),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
	}
	return s
}

// --- stars ---

type coneEcho struct {
	RA        float64 `json:"ra"`
	Dec       float64 `json:"dec"`
	RadiusDeg float64 `json:"radius_deg"`
}

// ConeSearchResponse is the body of GET /api/stars/cone-search.
type ConeSearchResponse struct {
	Query coneEcho     `json:"query"`
	Count int          `json:"count"`
	Stars []domcat.Hit `json:"stars"`
}

// ConeSearch handles GET /api/stars/cone-search.
func (s *Server) ConeSearch(w http.ResponseWriter, r *http.Request, params ConeSearchParams) {
	limit := intOr(params.Limit, domcat.DefaultConeLimit)
	if err := firstErr(
		checkCone(params.RA, params.Dec, params.Radius, sky.MaxConeRadius),
		checkLimit(limit, maxConeLimit),
	); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	var (
		stars []domcat.Hit
		err   error
	)
	filters := domcat.Filters{MagnitudeCeiling: params.MagLimit, ParallaxFloor: params.MinParallax}
	if filters.IsEmpty() {
		stars, err = s.router.ConeSearch(r.Context(), params.RA, params.Dec, params.Radius, limit)
	} else {
		stars, err = s.router.RadialSearch(r.Context(), params.RA, params.Dec, params.Radius, filters, limit)
	}
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ConeSearchResponse{
		Query: coneEcho{RA: params.RA, Dec: params.Dec, RadiusDeg: params.Radius},
		Count: len(stars),
		Stars: stars,
	})
}

// LookupStar handles GET /api/stars/lookup/{source_id}.
func (s *Server) LookupStar(w http.ResponseWriter, r *http.Request, sourceID string) {
	rec, err := s.router.Lookup(r.Context(), sourceID)
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found", "id": sourceID})
		return
	}
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// NearbyResponse is the body of GET /api/stars/nearby/{source_id}.
type NearbyResponse struct {
	SourceID  string       `json:"source_id"`
	RadiusDeg float64      `json:"radius_deg"`
	Count     int          `json:"count"`
	Neighbors []domcat.Hit `json:"neighbors"`
}

// NearbyStars handles GET /api/stars/nearby/{source_id}.
func (s *Server) NearbyStars(w http.ResponseWriter, r *http.Request, sourceID string, params NearbyStarsParams) {
	radius := floatOr(params.Radius, domcat.DefaultNeighborRadius)
	limit := intOr(params.Limit, domcat.DefaultNeighborLimit)
	if err := firstErr(
		checkRadius(radius, sky.MaxNeighborRadius),
		checkLimit(limit, maxNeighborLimit),
	); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	hits, err := s.router.NeighborsOf(r.Context(), sourceID, radius, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NearbyResponse{
		SourceID:  sourceID,
		RadiusDeg: radius,
		Count:     len(hits),
		Neighbors: hits,
	})
}

// CountResponse is the body of GET /api/stars/count.
type CountResponse struct {
	RA        float64 `json:"ra"`
	Dec       float64 `json:"dec"`
	RadiusDeg float64 `json:"radius_deg"`
	Count     int     `json:"count"`
}

// CountStars handles GET /api/stars/count.
func (s *Server) CountStars(w http.ResponseWriter, r *http.Request, params CountStarsParams) {
	if err := checkCone(params.RA, params.Dec, params.Radius, sky.MaxConeRadius); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	n, err := s.router.CountInRegion(r.Context(), params.RA, params.Dec, params.Radius)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{RA: params.RA, Dec: params.Dec, RadiusDeg: params.Radius, Count: n})
}

// --- papers ---

// PaperSearchResponse is the body of GET /api/papers/search.
type PaperSearchResponse struct {
	Query   string       `json:"query"`
	Count   int          `json:"count"`
	Results []domsim.Hit `json:"results"`
}

// SearchPapers handles GET /api/papers/search.
func (s *Server) SearchPapers(w http.ResponseWriter, r *http.Request, params SearchPapersParams) {
	limit := intOr(params.Limit, defaultPaperLimit)
	if err := firstErr(
		checkText("q", params.Q, minQueryLength),
		checkLimit(limit, maxPaperLimit),
	); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	hits, err := s.router.SemanticSearch(r.Context(), params.Q, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PaperSearchResponse{Query: params.Q, Count: len(hits), Results: hits})
}

// PapersForStarResponse is the body of GET /api/papers/by-star/{source_id}.
type PapersForStarResponse struct {
	SourceID string           `json:"source_id"`
	Count    int              `json:"count"`
	Papers   []domgraph.Paper `json:"papers"`
}

// PapersByStar handles GET /api/papers/by-star/{source_id}.
func (s *Server) PapersByStar(w http.ResponseWriter, r *http.Request, sourceID string) {
	papers, err := s.router.PapersForStar(r.Context(), sourceID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PapersForStarResponse{SourceID: sourceID, Count: len(papers), Papers: papers})
}

// TopicResponse is the body of GET /api/papers/topic/{keyword}.
type TopicResponse struct {
	Keyword string           `json:"keyword"`
	Count   int              `json:"count"`
	Papers  []domgraph.Paper `json:"papers"`
}

// PapersByTopic handles GET /api/papers/topic/{keyword}.
func (s *Server) PapersByTopic(w http.ResponseWriter, r *http.Request, keyword string, params PapersByTopicParams) {
	limit := intOr(params.Limit, defaultTopicLimit)
	if err := firstErr(
		checkText("keyword", keyword, minKeywordLength),
		checkLimit(limit, maxTopicLimit),
	); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	papers, err := s.router.PapersByTopic(r.Context(), keyword, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TopicResponse{Keyword: keyword, Count: len(papers), Papers: papers})
}

// --- search ---

// HybridSearch handles GET /api/search/hybrid.
func (s *Server) HybridSearch(w http.ResponseWriter, r *http.Request, params HybridSearchParams) {
	limit := intOr(params.Limit, search.DefaultLimit)
	if err := checkLimit(limit, maxHybridLimit); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	req, err := search.New(search.Params{
		Text:     params.Q,
		RA:       params.RA,
		Dec:      params.Dec,
		Radius:   params.Radius,
		SourceID: params.SourceID,
		Limit:    limit,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp, err := s.router.MultiSearch(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ConeWithContext handles GET /api/search/cone-with-context.
func (s *Server) ConeWithContext(w http.ResponseWriter, r *http.Request, params ConeWithContextParams) {
	limit := intOr(params.Limit, defaultContextLim)
	if err := firstErr(
		checkCone(params.RA, params.Dec, params.Radius, sky.MaxConeRadius),
		checkLimit(limit, maxContextLimit),
	); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	enrich := params.Enrich == nil || *params.Enrich

	out, err := s.router.ConeSearchWithContext(r.Context(), params.RA, params.Dec, params.Radius, limit, enrich)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// SemanticWithSources handles GET /api/search/semantic-with-sources.
func (s *Server) SemanticWithSources(w http.ResponseWriter, r *http.Request, params SemanticWithSourcesParams) {
	limit := intOr(params.Limit, defaultPaperLimit)
	if err := firstErr(
		checkText("q", params.Q, minQueryLength),
		checkLimit(limit, maxPaperLimit),
	); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	out, err := s.router.SemanticSearchWithSources(r.Context(), params.Q, "", limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// SystemStats handles GET /api/search/stats. Backend failures are part of the report, not an HTTP error.
func (s *Server) SystemStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.router.SystemStats(r.Context()))
}

// --- agent ---

// AskRequest is the body of POST /api/agent/ask.
type AskRequest struct {
	Query   string       `json:"query"`
	History []agent.Turn `json:"history,omitempty"`
}

// AskAgent handles POST /api/agent/ask.
func (s *Server) AskAgent(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.History) > maxAskHistoryTurns {
		req.History = req.History[len(req.History)-maxAskHistoryTurns:]
	}
	s.ask(w, r, req.Query, req.History)
}

// AskAgentGet handles GET /api/agent/ask.
func (s *Server) AskAgentGet(w http.ResponseWriter, r *http.Request, params AskAgentGetParams) {
	if err := checkText("q", params.Q, minQueryLength); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.ask(w, r, params.Q, nil)
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request, query string, history []agent.Turn) {
	ans, err := s.asker.Ask(r.Context(), query, history)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

// --- service ---

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != health.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// BindErrorHandler answers parameter binding failures.
func BindErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	msg := "invalid request"
	var pe *InvalidParamFormatError
	if errors.As(err, &pe) {
		msg = fmt.Sprintf("invalid value for parameter %s", pe.ParamName)
	}
	writeError(w, http.StatusBadRequest, CodeInvalidParameter, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-safe message. Invalid-parameter details describe
// the caller's own input; backend failures name the backend but not its internals.
func safeDomainMessage(err error) string {
	var be *domain.BackendError
	switch {
	case errors.Is(err, domain.ErrInvalidParameter):
		return err.Error()
	case errors.As(err, &be):
		return be.Backend + " " + domain.ErrBackendUnavailable.Error()
	}

	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrSchemaConflict,
		domain.ErrUnclassifiable,
		domain.ErrBackendUnavailable,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.String("path", r.URL.Path), zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

// --- boundary validation ---

func checkCone(ra, dec, radius, maxRadius float64) error {
	if ra < 0 || ra > 360 {
		return fmt.Errorf("%w: ra must be in [0,360]", domain.ErrInvalidParameter)
	}
	if dec < -90 || dec > 90 {
		return fmt.Errorf("%w: dec must be in [-90,90]", domain.ErrInvalidParameter)
	}
	return checkRadius(radius, maxRadius)
}

func checkRadius(radius, maxRadius float64) error {
	if radius <= 0 || radius > maxRadius {
		return fmt.Errorf("%w: radius must be in (0,%g]", domain.ErrInvalidParameter, maxRadius)
	}
	return nil
}

func checkLimit(limit, maxLimit int) error {
	if limit < 1 || limit > maxLimit {
		return fmt.Errorf("%w: limit must be in [1,%d]", domain.ErrInvalidParameter, maxLimit)
	}
	return nil
}

func checkText(name, v string, minLen int) error {
	if len([]rune(strings.TrimSpace(v))) < minLen {
		return fmt.Errorf("%w: %s must be at least %d characters", domain.ErrInvalidParameter, name, minLen)
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
