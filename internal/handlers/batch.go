package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/chainbadge/internal/logger"
	"github.com/example/chainbadge/internal/query"
	"github.com/example/chainbadge/internal/types"
	"github.com/example/chainbadge/pkg/jsonutil"
)

const (
	maxBatch              = 100
	defaultMaxConcurrency = 16
)

func dedupe(in []string) []string {
	m := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, p := range in {
		if _, ok := m[p]; ok {
			continue
		}
		m[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Batch serves POST /api/batch: independent lookups for up to 100 query
// paths. Per-path failures are reported alongside the successes.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	var req types.BatchRequest
	if err := jsonutil.Decode(w, r, &req, 1<<20); err != nil {
		jsonutil.JSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "bad request"})
		return
	}
	if len(req.Queries) == 0 {
		jsonutil.JSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "queries required"})
		return
	}
	if len(req.Queries) > maxBatch {
		jsonutil.JSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "too many queries"})
		return
	}

	paths := dedupe(req.Queries)
	resp := types.BatchResponse{Results: make([]types.BatchEntry, 0, len(paths))}

	// parse & collect invalids
	type parsed struct {
		path string
		q    query.Query
	}
	valid := make([]parsed, 0, len(paths))
	for _, p := range paths {
		q, err := query.Parse(p)
		if err != nil {
			resp.Errors = append(resp.Errors, types.BatchError{Query: p, Error: err.Error(), Status: StatusFor(err)})
			continue
		}
		valid = append(valid, parsed{path: p, q: q})
	}

	maxConc := h.Deps.MaxConcurrency
	if maxConc <= 0 {
		maxConc = defaultMaxConcurrency
	}
	// concurrency control
	sem := make(chan struct{}, maxConc)
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, p := range valid {
		p := p
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer func() { <-sem; wg.Done() }()
			ctx, cancel := context.WithTimeout(r.Context(), h.Deps.Timeout)
			defer cancel()
			res, src, err := h.Deps.Balances.GetOrFetch(ctx, p.q)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				resp.Errors = append(resp.Errors, types.BatchError{Query: p.path, Error: err.Error(), Status: StatusFor(err)})
				return
			}
			resp.Results = append(resp.Results, types.BatchEntry{Query: p.path, QueryResponse: types.NewQueryResponse(res, src, time.Now())})
		}()
	}
	wg.Wait()

	// sort by query for deterministic output
	sort.Slice(resp.Results, func(i, j int) bool { return resp.Results[i].Query < resp.Results[j].Query })
	sort.Slice(resp.Errors, func(i, j int) bool { return resp.Errors[i].Query < resp.Errors[j].Query })

	logger.WithContext(r.Context()).Debug("batch",
		zap.Int("queries", len(paths)), zap.Int("ok", len(resp.Results)), zap.Int("failed", len(resp.Errors)))
	jsonutil.JSON(w, http.StatusOK, resp)
}
