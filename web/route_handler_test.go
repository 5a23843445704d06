package web

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/ingluisfelipemunoz/turnqueue/client"
	"github.com/ingluisfelipemunoz/turnqueue/internal/monitor"
	"github.com/ingluisfelipemunoz/turnqueue/internal/state"
	"github.com/ingluisfelipemunoz/turnqueue/internal/store/memory"
	"github.com/ingluisfelipemunoz/turnqueue/internal/store/mocks"
	"github.com/ingluisfelipemunoz/turnqueue/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type testServer struct {
	jobs    *memory.JobStore
	players *memory.PlayerStore
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	jobs := memory.NewJobStore()
	players := memory.NewPlayerStore()
	h := NewRouteHandler(
		client.NewSubmissionService(jobs, players),
		client.NewActionService(jobs, players),
		client.NewStatusService(jobs),
		monitor.NewMetrics().Handler(),
		map[string]Pinger{"jobs": jobs, "players": players},
		":0",
	)
	return &testServer{jobs: jobs, players: players, handler: h.Router()}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestAddPlayer(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/addPlayer", `{"name":"felipe"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Player felipe added to the queue.", body["message"])
	assert.Equal(t, 1.0, body["jobId"])

	rec, body = s.do(t, http.MethodGet, "/jobStatus/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "waiting", body["state"])
	assert.Equal(t, 0.0, body["progress"])
	player := body["player"].(map[string]any)
	assert.Equal(t, "felipe", player["name"])
}

func TestAddPlayer_Validation(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/addPlayer", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, body["error"])

	rec, _ = s.do(t, http.MethodPost, "/addPlayer", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPerformAction(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/addPlayer", `{"name":"felipe"}`)

	rec, body := s.do(t, http.MethodPost, "/performAction", `{"playerName":"felipe","action":"jump"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Action jump added for player felipe.", body["message"])
	assert.Equal(t, 1.0, body["jobId"])

	_, body = s.do(t, http.MethodGet, "/jobStatus/1", "")
	player := body["player"].(map[string]any)
	assert.Equal(t, "jump", player["action"])
}

func TestPerformAction_UnknownPlayer(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/performAction", `{"playerName":"ghost","action":"jump"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Player ghost not found in the queue.", body["error"])
}

func TestJobStatus_NotFound(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/jobStatus/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Job with ID 42 not found.", body["error"])

	rec, body = s.do(t, http.MethodGet, "/jobStatus/abc", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Job with ID abc not found.", body["error"])
}

func TestJobsAndStats(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/addPlayer", `{"name":"felipe"}`)
	s.do(t, http.MethodPost, "/addPlayer", `{"name":"ana"}`)
	_, err := s.jobs.DequeueNext(context.Background())
	require.NoError(t, err)

	rec, body := s.do(t, http.MethodGet, "/jobs?state=waiting", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body["total_items"])

	rec, _ = s.do(t, http.MethodGet, "/jobs?state=sleeping", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = s.do(t, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body[string(state.StateWaiting)])
	assert.Equal(t, 1.0, body[string(state.StateActive)])
	assert.Equal(t, 0.0, body[string(state.StateCompleted)])
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["healthy"])

	require.NoError(t, s.jobs.Close())
	rec, body = s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, false, body["healthy"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "turnqueue_turns_total")
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"persistence", errors.New("x"), http.StatusInternalServerError},
		{"queue", errors.New("y"), http.StatusServiceUnavailable},
	}
	players := &mocks.MockPlayerStore{}
	jobs := &mocks.MockJobStore{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failing := tt
			players.InsertPlayerFunc = func(ctx context.Context, name string) (int64, error) {
				if failing.name == "persistence" {
					return 0, failing.err
				}
				return 1, nil
			}
			jobs.EnqueueFunc = func(ctx context.Context, player types.Player) (int64, error) {
				return 0, failing.err
			}
			h := NewRouteHandler(client.NewSubmissionService(jobs, players), nil, nil, nil, nil, ":0")
			rec := httptest.NewRecorder()
			h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/addPlayer", strings.NewReader(`{"name":"felipe"}`)))
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}
