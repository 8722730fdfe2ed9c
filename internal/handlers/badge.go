package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/chainbadge/internal/badge"
	"github.com/example/chainbadge/internal/logger"
	"github.com/example/chainbadge/pkg/jsonutil"
)

// build returns the badge for the request, or the failure badge.
func (h *Handler) build(r *http.Request) badge.Badge {
	log := logger.WithContext(r.Context())
	opts, err := badge.ParseOptions(r.URL.Query())
	if err != nil {
		log.Info("bad badge options", zap.Error(err))
		return badge.Failed()
	}
	resp, src, err := h.fetch(r)
	if err != nil {
		log.Warn("badge query failed", zap.String("path", chi.URLParam(r, "*")), zap.Error(err))
		return badge.Failed()
	}
	log.Debug("badge", zap.String("path", chi.URLParam(r, "*")), zap.String("source", src))
	return badge.Apply(resp, opts)
}

// Badge serves GET /badge/* as a redirect to a shields.io image. Failures
// still redirect, to the red failure badge.
func (h *Handler) Badge(w http.ResponseWriter, r *http.Request) {
	b := h.build(r)
	w.Header().Set("Cache-Control", "no-cache, max-age=0")
	http.Redirect(w, r, badge.ShieldsURL(b), http.StatusTemporaryRedirect)
}

// Endpoint serves GET /endpoint/* as shields.io endpoint JSON. shields expects
// 200 even for errors; isError carries the failure.
func (h *Handler) Endpoint(w http.ResponseWriter, r *http.Request) {
	b := h.build(r)
	w.Header().Set("Cache-Control", "no-cache, max-age=0")
	jsonutil.JSON(w, http.StatusOK, badge.Endpoint(b))
}
