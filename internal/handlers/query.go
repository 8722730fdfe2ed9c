package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/example/chainbadge/internal/logger"
	"github.com/example/chainbadge/internal/query"
	"github.com/example/chainbadge/internal/source"
	"github.com/example/chainbadge/internal/types"
	"github.com/example/chainbadge/pkg/jsonutil"
)

const defaultTimeout = 30 * time.Second

// Balances answers parsed queries, reporting whether the answer came from
// cache or rpc. *cache.Cache implements it.
type Balances interface {
	GetOrFetch(ctx context.Context, q query.Query) (*source.Response, string, error)
}

// Scanner builds explorer links. *source.Source implements it.
type Scanner interface {
	ScannerLink(ctx context.Context, q query.Query) (string, error)
}

// Deps bundles dependencies needed by the handlers.
type Deps struct {
	Balances       Balances
	Scanner        Scanner
	Timeout        time.Duration
	MaxConcurrency int
}

type Handler struct{ Deps Deps }

func New(deps Deps) *Handler {
	if deps.Timeout <= 0 {
		deps.Timeout = defaultTimeout
	}
	return &Handler{Deps: deps}
}

// Health reports liveness.
func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Ok"))
}

// StatusFor maps a query error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case source.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, source.ErrChainNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (h *Handler) fetch(r *http.Request) (*source.Response, string, error) {
	q, err := query.Parse(chi.URLParam(r, "*"))
	if err != nil {
		return nil, "", err
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.Deps.Timeout)
	defer cancel()
	return h.Deps.Balances.GetOrFetch(ctx, q)
}

// Query serves GET /api/query/*.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	resp, src, err := h.fetch(r)
	if err != nil {
		logger.WithContext(r.Context()).Warn("query failed",
			zap.String("path", chi.URLParam(r, "*")), zap.Error(err))
		jsonutil.JSON(w, StatusFor(err), types.ErrorResponse{Error: err.Error()})
		return
	}
	jsonutil.JSON(w, http.StatusOK, types.NewQueryResponse(resp, src, time.Now()))
}

// Scanner serves GET /scanner/* as a redirect to the block explorer.
func (h *Handler) Scanner(w http.ResponseWriter, r *http.Request) {
	q, err := query.Parse(chi.URLParam(r, "*"))
	if err == nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.Deps.Timeout)
		defer cancel()
		var link string
		if link, err = h.Deps.Scanner.ScannerLink(ctx, q); err == nil {
			http.Redirect(w, r, link, http.StatusTemporaryRedirect)
			return
		}
	}
	logger.WithContext(r.Context()).Warn("scanner link failed",
		zap.String("path", chi.URLParam(r, "*")), zap.Error(err))
	status := StatusFor(err)
	if errors.Is(err, source.ErrNoExplorer) {
		status = http.StatusNotFound
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte("Redirect Failure"))
}
