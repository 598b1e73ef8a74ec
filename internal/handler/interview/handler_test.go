package interview

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	interviewModel "github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/model/report"
	interviewService "github.com/zhouzirui/z-interview/backend/internal/service/interview"
)

type fakeHistory struct {
	records []report.Record
	err     error
	limit   int
}

func (f *fakeHistory) List(_ context.Context, limit int) ([]report.Record, error) {
	f.limit = limit
	return f.records, f.err
}

func setupRouter(history History) (*chi.Mux, *interviewService.Manager) {
	manager := interviewService.NewManager(interviewService.Options{}, interviewModel.Settings{Language: interviewModel.English})
	r := chi.NewRouter()
	New(manager, history, nil).RegisterRoutes(r)
	return r, manager
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func createSession(t *testing.T, r http.Handler, body any) interviewService.State {
	t.Helper()
	resp := do(t, r, http.MethodPost, "/sessions", body)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var state interviewService.State
	if err := json.Unmarshal(resp.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return state
}

func TestCreateSessionAppliesSettings(t *testing.T) {
	r, _ := setupRouter(nil)

	state := createSession(t, r, map[string]any{"questionCount": 3, "scenario": "objection", "background": "retail banking"})
	if state.Phase != interviewModel.PhaseWelcome {
		t.Fatalf("expected welcome phase, got %s", state.Phase)
	}
	want := interviewModel.Settings{QuestionCount: 3, Scenario: interviewModel.ScenarioAdvanced, Language: interviewModel.English, Background: "retail banking"}
	if state.Settings != want {
		t.Fatalf("unexpected settings %+v", state.Settings)
	}

	resp := do(t, r, http.MethodPost, "/sessions", map[string]any{"questionCount": 0})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid count, got %d", resp.Code)
	}
}

func TestInterviewLifecycle(t *testing.T) {
	r, _ := setupRouter(nil)
	id := createSession(t, r, nil).ID
	base := "/sessions/" + id

	resp := do(t, r, http.MethodPost, base+"/answers", map[string]string{"text": "too early"})
	if resp.Code != http.StatusConflict {
		t.Fatalf("submit before start: expected 409, got %d", resp.Code)
	}

	resp = do(t, r, http.MethodPost, base+"/start", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var started turnResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode start: %v", err)
	}
	if started.Turn.Speaker != interviewModel.Interviewer || started.State.Phase != interviewModel.PhaseActive {
		t.Fatalf("unexpected start response %+v", started)
	}

	resp = do(t, r, http.MethodPost, base+"/answers", map[string]string{"text": "   "})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("empty answer: expected 400, got %d", resp.Code)
	}

	resp = do(t, r, http.MethodPost, base+"/answers", map[string]string{"text": "I enjoy meeting people."})
	if resp.Code != http.StatusOK {
		t.Fatalf("answer: expected 200, got %d", resp.Code)
	}

	resp = do(t, r, http.MethodPost, base+"/coaching/hints", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("coaching: expected 200, got %d", resp.Code)
	}
	var art interviewService.Artifact
	if err := json.Unmarshal(resp.Body.Bytes(), &art); err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	if art.Kind != interviewService.KindHint || len(art.Items) == 0 {
		t.Fatalf("unexpected artifact %+v", art)
	}

	resp = do(t, r, http.MethodPost, base+"/edit", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("edit: expected 200, got %d", resp.Code)
	}

	resp = do(t, r, http.MethodPost, base+"/end", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("end: expected 200, got %d", resp.Code)
	}
	resp = do(t, r, http.MethodPost, base+"/end", nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("second end: expected 409, got %d", resp.Code)
	}

	resp = do(t, r, http.MethodGet, base+"/report", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("report before generation: expected 404, got %d", resp.Code)
	}
	resp = do(t, r, http.MethodPost, base+"/report", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("generate report: expected 200, got %d", resp.Code)
	}
	var rep reportResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Report.OverallScore != 65 || rep.Band != report.BandFor(65) {
		t.Fatalf("expected placeholder report, got %+v", rep)
	}

	resp = do(t, r, http.MethodPost, base+"/restart", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("restart: expected 200, got %d", resp.Code)
	}
	var state interviewService.State
	if err := json.Unmarshal(resp.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode restart: %v", err)
	}
	if state.Phase != interviewModel.PhaseWelcome || state.Report != nil {
		t.Fatalf("unexpected state after restart %+v", state)
	}
}

func TestUpdateSettingsKeepsUnsetFields(t *testing.T) {
	r, _ := setupRouter(nil)
	id := createSession(t, r, map[string]any{"questionCount": 4}).ID

	resp := do(t, r, http.MethodPut, "/sessions/"+id+"/settings", map[string]any{"language": "zh-HK"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var state interviewService.State
	if err := json.Unmarshal(resp.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.Settings.Language != interviewModel.Cantonese || state.Settings.QuestionCount != 4 {
		t.Fatalf("unexpected settings %+v", state.Settings)
	}
}

func TestUnknownSessionAndKind(t *testing.T) {
	r, _ := setupRouter(nil)

	if resp := do(t, r, http.MethodGet, "/sessions/missing", nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}

	id := createSession(t, r, nil).ID
	if resp := do(t, r, http.MethodPost, "/sessions/"+id+"/coaching/essay", nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown kind, got %d", resp.Code)
	}

	if resp := do(t, r, http.MethodDelete, "/sessions/"+id, nil); resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if resp := do(t, r, http.MethodGet, "/sessions/"+id, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.Code)
	}
}

func TestHistory(t *testing.T) {
	history := &fakeHistory{records: []report.Record{{SessionID: "a", Band: report.BandHire}}}
	r, _ := setupRouter(history)

	resp := do(t, r, http.MethodGet, "/history?limit=5", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if history.limit != 5 {
		t.Fatalf("limit not forwarded, got %d", history.limit)
	}
	var records []report.Record
	if err := json.Unmarshal(resp.Body.Bytes(), &records); err != nil || len(records) != 1 {
		t.Fatalf("unexpected records %v (%v)", records, err)
	}

	if resp := do(t, r, http.MethodGet, "/history?limit=x", nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", resp.Code)
	}

	history.err = errors.New("disk full")
	if resp := do(t, r, http.MethodGet, "/history", nil); resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}

	r, _ = setupRouter(nil)
	if resp := do(t, r, http.MethodGet, "/history", nil); resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without history, got %d", resp.Code)
	}
}

func TestEventsStreamsStateAndTurns(t *testing.T) {
	r, _ := setupRouter(nil)
	id := createSession(t, r, nil).ID

	server := httptest.NewServer(r)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/sessions/"+id+"/events", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("events request: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	lines := bufio.NewScanner(resp.Body)
	nextEvent := func() string {
		for lines.Scan() {
			if name, ok := strings.CutPrefix(lines.Text(), "event: "); ok {
				return name
			}
		}
		t.Fatalf("stream ended: %v", lines.Err())
		return ""
	}

	if first := nextEvent(); first != "state" {
		t.Fatalf("expected initial state event, got %q", first)
	}

	startResp, err := http.Post(server.URL+"/sessions/"+id+"/start", "application/json", nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	startResp.Body.Close()

	for {
		if nextEvent() == string(interviewService.EventTurn) {
			return
		}
	}
}
