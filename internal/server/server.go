// Package server exposes the persisted snapshot as a read-only JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"CatalogWatcher/internal/identity"
	"CatalogWatcher/internal/logger"
	"CatalogWatcher/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	defaultLimit = 20
	maxLimit     = 500
)

// Loader is the read side of a snapshot store.
type Loader interface {
	Load(ctx context.Context) (models.Snapshot, error)
}

// NewRouter returns the API routes backed by store.
func NewRouter(store Loader, log logger.Logger) http.Handler {
	h := &handler{store: store, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Get("/snapshot", h.list)
	r.Get("/snapshot/{id}", h.get)
	return r
}

// Start serves the API on addr until ctx is cancelled.
func Start(ctx context.Context, addr string, store Loader, log logger.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(store, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting snapshot API server", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Stopping snapshot API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type handler struct {
	store Loader
	log   logger.Logger
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	var filter models.Availability
	if v := q.Get("availability"); v != "" {
		a, err := models.ParseAvailability(strings.ToUpper(v))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter = a
	}

	snap, ok := h.load(w, r)
	if !ok {
		return
	}

	items := make([]models.SnapshotItem, 0, len(snap))
	for id, e := range snap {
		if filter != "" && e.Availability != filter {
			continue
		}
		items = append(items, models.SnapshotItem{ID: string(id), Name: e.Name, URL: e.URL, Availability: e.Availability})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].ID < items[j].ID
	})

	total := len(items)
	start, end := total, total
	if page-1 <= total/limit {
		start = (page - 1) * limit
		end = min(start+limit, total)
	}

	writeJSON(w, http.StatusOK, models.SnapshotResponse{
		Data: items[start:end],
		Pagination: models.Pagination{
			TotalItems:  total,
			TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
			CurrentPage: page,
		},
	})
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !identity.Valid(id) {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	snap, ok := h.load(w, r)
	if !ok {
		return
	}
	e, found := snap[identity.ID(id)]
	if !found {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, models.SnapshotItem{ID: id, Name: e.Name, URL: e.URL, Availability: e.Availability})
}

func (h *handler) load(w http.ResponseWriter, r *http.Request) (models.Snapshot, bool) {
	snap, err := h.store.Load(r.Context())
	if err != nil {
		h.log.Error("Failed to load snapshot", logger.Error(err))
		http.Error(w, "failed to load snapshot", http.StatusInternalServerError)
		return nil, false
	}
	return snap, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
