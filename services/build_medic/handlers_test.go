package build_medic

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AleutianAI/BuildMedic/services/llm"
	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T, svc *Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	v1 := router.Group("/v1")
	RegisterRoutes(v1, NewHandlers(svc))
	return router
}

func TestHandleFixSuccess(t *testing.T) {
	dir := newFakeProject(t)
	client := &llm.MockClient{Responses: []string{"```rust\nfn main() { fixed }\n```"}}
	svc := newTestService(t, dir, client, newTestHistory(t))
	router := newTestRouter(t, svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/medic/fix", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp FixResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Outcome != "success" {
		t.Errorf("outcome = %q, want success", resp.Outcome)
	}
	if resp.RunID == "" {
		t.Error("run ID missing from response")
	}
	if len(resp.Attempts) != 2 {
		t.Errorf("attempts = %d, want 2", len(resp.Attempts))
	}
}

func TestHandleFixRejectsMalformedBody(t *testing.T) {
	dir := newFakeProject(t)
	svc := newTestService(t, dir, &llm.MockClient{}, nil)
	router := newTestRouter(t, svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/medic/fix",
		strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleHistoryListsRuns(t *testing.T) {
	dir := newFakeProject(t)
	client := &llm.MockClient{Responses: []string{"```rust\nfn main() { fixed }\n```"}}
	svc := newTestService(t, dir, client, newTestHistory(t))
	router := newTestRouter(t, svc)

	// Produce one run.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/medic/fix", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("fix status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/medic/history", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d", w.Code)
	}

	var resp HistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(resp.Runs))
	}

	// Detail endpoint returns the attempt trail.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/v1/medic/history/"+resp.Runs[0].ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("detail status = %d", w.Code)
	}
	var detail RunDetailResponse
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(detail.Attempts) == 0 {
		t.Error("detail response has no attempts")
	}
}

func TestHandleHistoryDisabled(t *testing.T) {
	dir := newFakeProject(t)
	svc := newTestService(t, dir, &llm.MockClient{}, nil)
	router := newTestRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/medic/history", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHandleRunDetailUnknownID(t *testing.T) {
	dir := newFakeProject(t)
	svc := newTestService(t, dir, &llm.MockClient{}, newTestHistory(t))
	router := newTestRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/medic/history/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	dir := newFakeProject(t)
	svc := newTestService(t, dir, &llm.MockClient{}, nil)
	router := newTestRouter(t, svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/medic/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "healthy" || resp.Busy {
		t.Errorf("health = %+v", resp)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}
