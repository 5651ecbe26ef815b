package pipeline_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hireflow/pipeline-service/internal/domain"
	"hireflow/pipeline-service/internal/pipeline"
	"hireflow/pipeline-service/internal/testsupport"
)

func newTestServer(repo *testsupport.MemRepo) *httptest.Server {
	svc := pipeline.NewService(pipeline.DefaultCatalog(), repo, nil)
	mux := http.NewServeMux()
	pipeline.NewHandler(svc).RegisterRoutes(mux)
	return httptest.NewServer(mux)
}

func doJSON(t *testing.T, method, url, actor, body string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if actor != "" {
		req.Header.Set("x-user-id", actor)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func TestHandler_Transition(t *testing.T) {
	repo := testsupport.NewMemRepo()
	srv := newTestServer(repo)
	defer srv.Close()
	cand := testsupport.NewCandidate(t, repo, domain.StageApplied)

	resp, body := doJSON(t, http.MethodPost,
		srv.URL+"/candidates/"+cand.ID+"/transition", "u1",
		`{"toStage":"screening","notes":"looks strong"}`)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %v)", resp.StatusCode, body)
	}
	if body["currentStage"] != "screening" {
		t.Errorf("currentStage = %v, want screening", body["currentStage"])
	}
	history, ok := body["stageHistory"].([]any)
	if !ok || len(history) != 2 {
		t.Fatalf("stageHistory = %v, want 2 entries", body["stageHistory"])
	}
}

func TestHandler_Transition_ErrorStatuses(t *testing.T) {
	repo := testsupport.NewMemRepo()
	srv := newTestServer(repo)
	defer srv.Close()

	applied := testsupport.NewCandidate(t, repo, domain.StageApplied)
	hired := testsupport.NewCandidate(t, repo, domain.StageHired)

	cases := []struct {
		name   string
		id     string
		body   string
		actor  string
		status int
	}{
		{"missing actor", applied.ID, `{"toStage":"screening"}`, "", http.StatusUnauthorized},
		{"unknown candidate", "missing", `{"toStage":"screening"}`, "u1", http.StatusNotFound},
		{"unknown stage", applied.ID, `{"toStage":"bogus"}`, "u1", http.StatusUnprocessableEntity},
		{"terminal move", hired.ID, `{"toStage":"rejected"}`, "u1", http.StatusUnprocessableEntity},
		{"empty body", applied.ID, `{}`, "u1", http.StatusBadRequest},
	}
	for _, tc := range cases {
		resp, _ := doJSON(t, http.MethodPost,
			srv.URL+"/candidates/"+tc.id+"/transition", tc.actor, tc.body)
		if resp.StatusCode != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.name, resp.StatusCode, tc.status)
		}
	}
}

func TestHandler_BulkTransition(t *testing.T) {
	repo := testsupport.NewMemRepo()
	srv := newTestServer(repo)
	defer srv.Close()

	a := testsupport.NewCandidate(t, repo, domain.StageScreening)
	b := testsupport.NewCandidate(t, repo, domain.StageApplied)

	payload := fmt.Sprintf(
		`{"requests":[{"candidateId":%q,"toStage":"interview"},{"candidateId":%q,"toStage":"bogus"}]}`,
		a.ID, b.ID)
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/candidates/bulk-transition", "u1", payload)

	// Item failures surface in the body, not the HTTP status.
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	successful, _ := body["successful"].([]any)
	failed, _ := body["failed"].([]any)
	if len(successful) != 1 || len(failed) != 1 {
		t.Fatalf("got %d successful / %d failed, want 1 / 1", len(successful), len(failed))
	}
	failure, _ := failed[0].(map[string]any)
	if failure["candidateId"] != b.ID || failure["code"] != pipeline.CodeInvalidTransition {
		t.Errorf("failure = %v, want candidate %s with code %s", failure, b.ID, pipeline.CodeInvalidTransition)
	}
}

func TestHandler_GetHistory(t *testing.T) {
	repo := testsupport.NewMemRepo()
	srv := newTestServer(repo)
	defer srv.Close()
	cand := testsupport.NewCandidate(t, repo, domain.StageOffer)

	resp, err := http.Get(srv.URL + "/candidates/" + cand.ID + "/history")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var history []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("history length = %d, want 4", len(history))
	}
	if history[0]["toStage"] != "applied" {
		t.Errorf("first entry toStage = %v, want applied", history[0]["toStage"])
	}
}

func TestHandler_PipelineStats(t *testing.T) {
	repo := testsupport.NewMemRepo()
	srv := newTestServer(repo)
	defer srv.Close()
	testsupport.NewCandidate(t, repo, domain.StageHired)
	testsupport.NewCandidate(t, repo, domain.StageApplied)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/pipeline/stats", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["totalCandidates"] != float64(2) {
		t.Errorf("totalCandidates = %v, want 2", body["totalCandidates"])
	}
	if body["hireRate"] != float64(50) {
		t.Errorf("hireRate = %v, want 50", body["hireRate"])
	}
	dist, _ := body["stageDistribution"].(map[string]any)
	if len(dist) != len(allStages) {
		t.Errorf("stageDistribution has %d keys, want %d", len(dist), len(allStages))
	}
}

func TestHandler_StatsRejectsBadDate(t *testing.T) {
	srv := newTestServer(testsupport.NewMemRepo())
	defer srv.Close()

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/pipeline/stats?appliedAfter=yesterday", "", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandler_StageTransitions(t *testing.T) {
	srv := newTestServer(testsupport.NewMemRepo())
	defer srv.Close()

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/stages/offer/transitions", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	transitions, _ := body["transitions"].([]any)
	if len(transitions) != 2 {
		t.Fatalf("transitions = %v, want [hired rejected]", body["transitions"])
	}
	if transitions[0] != "hired" || transitions[1] != "rejected" {
		t.Errorf("transitions = %v, want [hired rejected]", transitions)
	}

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/stages/bogus/transitions", "", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown stage status = %d, want 400", resp.StatusCode)
	}
}

func TestHandler_CreateCandidate(t *testing.T) {
	srv := newTestServer(testsupport.NewMemRepo())
	defer srv.Close()

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/candidates", "recruiter-1",
		`{"fullName":"Ada Lovelace","email":"ada@example.com","skills":["go"]}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %v)", resp.StatusCode, body)
	}
	if body["currentStage"] != "applied" {
		t.Errorf("currentStage = %v, want applied", body["currentStage"])
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/candidates", "recruiter-1", `{"email":"x@example.com"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing name status = %d, want 400", resp.StatusCode)
	}
}
