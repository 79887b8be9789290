package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/itempager/pkg/logging"
	"github.com/Sternrassler/itempager/pkg/metrics"
	"github.com/Sternrassler/itempager/pkg/pager"
	"github.com/Sternrassler/itempager/pkg/pagination"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// positionTimeout bounds how long a position request waits for the cache.
const positionTimeout = 60 * time.Second

// statusResponse is returned by /status and the mutating endpoints.
type statusResponse struct {
	Position      *int  `json:"position"`
	NumPages      int   `json:"num_pages"`
	ItemCount     int   `json:"item_count"`
	ResidentPages []int `json:"resident_pages"`
	ResidentItems int   `json:"resident_items"`
}

// paginationRequest is the body of PUT /pagination.
type paginationRequest struct {
	Boundaries []int `json:"boundaries"`
}

type server struct {
	cache  *pager.Cache
	redis  *redis.Client // nil without a shared store
	logger zerolog.Logger
}

func newServer(cache *pager.Cache, redisClient *redis.Client) *server {
	return &server{
		cache:  cache,
		redis:  redisClient,
		logger: logging.NewLogger(logging.ComponentServer),
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", s.readyHandler)
	mux.HandleFunc("GET /status", s.statusHandler)
	mux.HandleFunc("PUT /position", s.positionHandler)
	mux.HandleFunc("PUT /pagination", s.paginationHandler)
	mux.HandleFunc("GET /items/{index}", s.itemHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (s *server) statusHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.status())
}

func (s *server) positionHandler(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		http.Error(w, "page must be an integer", http.StatusBadRequest)
		return
	}
	if !s.cache.Pagination().ValidPage(page) {
		http.Error(w, fmt.Sprintf("page %d out of range", page), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), positionTimeout)
	defer cancel()

	if err := s.cache.SetPosition(ctx, page); err != nil {
		switch {
		case errors.Is(err, pager.ErrClosed):
			http.Error(w, "cache closed", http.StatusServiceUnavailable)
		case errors.Is(err, context.DeadlineExceeded):
			http.Error(w, "position update still running", http.StatusGatewayTimeout)
		default:
			s.logger.Debug().Err(err).Int("page", page).Msg("Position request abandoned")
		}
		return
	}
	s.writeJSON(w, http.StatusOK, s.status())
}

func (s *server) paginationHandler(w http.ResponseWriter, r *http.Request) {
	var req paginationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	p, err := pagination.New(req.Boundaries, s.cache.ItemCount())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.cache.SetPagination(p)
	s.writeJSON(w, http.StatusOK, s.status())
}

func (s *server) itemHandler(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 || index >= s.cache.ItemCount() {
		http.NotFound(w, r)
		return
	}

	payload, ok := s.cache.Payload(index)
	if !ok {
		http.Error(w, fmt.Sprintf("item %d not loaded", index), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		s.logger.Warn().Err(err).Int("index", index).Msg("Failed to write response")
	}
}

func (s *server) status() statusResponse {
	resp := statusResponse{
		NumPages:      s.cache.Pagination().NumPages(),
		ItemCount:     s.cache.ItemCount(),
		ResidentPages: s.cache.ResidentPages(),
		ResidentItems: s.cache.ResidentItems(),
	}
	if pos, ok := s.cache.Position(); ok {
		resp.Position = &pos
	}
	return resp
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to encode response")
	}
}
