package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ingluisfelipemunoz/turnqueue/custom_errors"
	"github.com/ingluisfelipemunoz/turnqueue/internal/state"
	"github.com/ingluisfelipemunoz/turnqueue/types"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	PageSize = 15
)

type PlayerSubmitter interface {
	Submit(ctx context.Context, input types.PlayerInput) (int64, error)
}

type ActionAttacher interface {
	AttachAction(ctx context.Context, playerName, action string) (int64, error)
}

type StatusReader interface {
	GetStatus(ctx context.Context, jobID int64) (types.JobStatus, error)
	ListJobs(ctx context.Context, page, pageSize int, states ...state.JobState) (types.PaginationResult[types.JobStatus], error)
	Stats(ctx context.Context) (map[state.JobState]int, error)
}

// Pinger is a dependency checked by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HttpRouteHandler struct {
	submissions PlayerSubmitter
	actions     ActionAttacher
	statuses    StatusReader
	health      map[string]Pinger
	metrics     http.Handler
	Addr        string
}

func NewRouteHandler(
	submissions PlayerSubmitter,
	actions ActionAttacher,
	statuses StatusReader,
	metrics http.Handler,
	health map[string]Pinger,
	addr string,
) *HttpRouteHandler {
	return &HttpRouteHandler{
		submissions: submissions,
		actions:     actions,
		statuses:    statuses,
		health:      health,
		metrics:     metrics,
		Addr:        addr,
	}
}

func (handler *HttpRouteHandler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.RequestSize(1 << 20))
	r.Use(middleware.Recoverer)

	r.Post("/addPlayer", handler.handleAddPlayer)
	r.Post("/performAction", handler.handlePerformAction)
	r.Get("/jobStatus/{jobId}", handler.handleJobStatus)

	r.Get("/jobs", handler.handleJobs)
	r.Get("/stats", handler.handleStats)
	r.Get("/healthz", handler.handleHealth)
	if handler.metrics != nil {
		r.Handle("/metrics", handler.metrics)
	}
	return r
}

// Serve listens until ctx is done, then shuts the server down gracefully.
func (handler *HttpRouteHandler) Serve(ctx context.Context) error {
	addr := handler.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		printBanner(addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	}
}

type addPlayerRequest struct {
	Name string `json:"name"`
}

type performActionRequest struct {
	PlayerName string `json:"playerName"`
	Action     string `json:"action"`
}

type messageResponse struct {
	Message string `json:"message"`
	JobID   int64  `json:"jobId"`
}

func (handler *HttpRouteHandler) handleAddPlayer(w http.ResponseWriter, r *http.Request) {
	var req addPlayerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobID, err := handler.submissions.Submit(r.Context(), types.PlayerInput{Name: req.Name})
	if err != nil {
		writeServiceError(w, err, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("Player %s added to the queue.", strings.TrimSpace(req.Name)),
		JobID:   jobID,
	})
}

func (handler *HttpRouteHandler) handlePerformAction(w http.ResponseWriter, r *http.Request) {
	var req performActionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobID, err := handler.actions.AttachAction(r.Context(), req.PlayerName, req.Action)
	if err != nil {
		writeServiceError(w, err, fmt.Sprintf("Player %s not found in the queue.", req.PlayerName))
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("Action %s added for player %s.", req.Action, req.PlayerName),
		JobID:   jobID,
	})
}

func (handler *HttpRouteHandler) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "jobId")
	notFound := fmt.Sprintf("Job with ID %s not found.", raw)

	jobID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, notFound)
		return
	}

	status, err := handler.statuses.GetStatus(r.Context(), jobID)
	if err != nil {
		writeServiceError(w, err, notFound)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (handler *HttpRouteHandler) handleJobs(w http.ResponseWriter, r *http.Request) {
	var states []state.JobState
	for _, v := range r.URL.Query()["state"] {
		st, err := state.ParseJobState(strings.TrimSpace(v))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		states = append(states, st)
	}

	page, err := handler.statuses.ListJobs(r.Context(), getPageNumber(r), PageSize, states...)
	if err != nil {
		writeServiceError(w, err, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (handler *HttpRouteHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := handler.statuses.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (handler *HttpRouteHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(handler.health))
	healthy := true
	for name, p := range handler.health {
		if err := p.Ping(ctx); err != nil {
			log.Printf("health check %s error: %s", name, err.Error())
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"healthy": healthy, "checks": checks})
}

// writeServiceError maps service errors to status codes. notFound is the
// message sent for ErrNotFound.
func writeServiceError(w http.ResponseWriter, err error, notFound string) {
	switch {
	case errors.Is(err, custom_errors.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, custom_errors.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, custom_errors.ErrInvalidStateTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, custom_errors.ErrQueueUnavailable):
		writeError(w, http.StatusServiceUnavailable, "queue unavailable")
	case errors.Is(err, custom_errors.ErrPersistence):
		writeError(w, http.StatusInternalServerError, "persistence error")
	default:
		log.Printf("unexpected error: %s", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
