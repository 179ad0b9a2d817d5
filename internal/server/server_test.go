package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"teamload/internal/app"
	"teamload/internal/config"
	"teamload/internal/domain"
	"teamload/internal/engine"
	"teamload/internal/logging"
	"teamload/internal/migrate"
	"teamload/internal/timeline"
	"teamload/internal/view"
)

type testServer struct {
	URL     string
	Session *app.Session
	client  *http.Client
	close   func()
}

func (s *testServer) Client() *http.Client { return s.client }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	session, err := app.Open(context.Background(), t.TempDir(), config.Default(), logging.Discard())
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	handler, err := New(Config{Session: session, BasePath: "/v0"})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:     "http://" + ln.Addr().String() + "/v0",
		Session: session,
		client:  &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			session.Close()
		},
	}
	t.Cleanup(ts.close)
	return ts
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	reader := bytes.NewReader(nil)
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func mustJSON(t *testing.T, client *http.Client, method, url string, body any, want int, out any) {
	t.Helper()
	res, data := doJSON(t, client, method, url, body)
	if res.StatusCode != want {
		t.Fatalf("%s %s: status %d, want %d: %s", method, url, res.StatusCode, want, string(data))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("unmarshal %s: %v", string(data), err)
		}
	}
}

type fixture struct {
	skill   domain.Skill
	member  domain.Member
	project domain.Project
	task    domain.Task
}

// seed creates one SQL skill, a member holding it at level 2, and a task
// in a fresh project requiring it at requiredLevel.
func seed(t *testing.T, ts *testServer, requiredLevel int) fixture {
	t.Helper()
	c := ts.Client()
	var f fixture
	mustJSON(t, c, http.MethodPost, ts.URL+"/skills", map[string]any{"name": "SQL"}, http.StatusCreated, &f.skill)
	mustJSON(t, c, http.MethodPost, ts.URL+"/members", map[string]any{
		"name":                "Ada",
		"email":               "ada@example.com",
		"weekly_availability": 40,
		"skills":              []map[string]any{{"skill_id": f.skill.ID, "level": 2}},
	}, http.StatusCreated, &f.member)
	mustJSON(t, c, http.MethodPost, ts.URL+"/projects", map[string]any{
		"name":       "Billing",
		"start_date": "2024-01-01",
		"deadline":   "2024-01-11",
	}, http.StatusCreated, &f.project)
	mustJSON(t, c, http.MethodPost, ts.URL+"/tasks", map[string]any{
		"project_id":      f.project.ID,
		"title":           "Schema",
		"estimated_hours": 8,
		"priority":        "HIGH",
		"start_date":      "2024-01-03",
		"deadline":        "2024-01-05",
		"required_skills": []map[string]any{{"skill_id": f.skill.ID, "required_level": requiredLevel}},
	}, http.StatusCreated, &f.task)
	return f
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	var body healthResponse
	mustJSON(t, ts.Client(), http.MethodGet, ts.URL+"/health", nil, http.StatusOK, &body)
	latest, err := migrate.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" || body.SchemaVersion != latest {
		t.Fatalf("unexpected health body %+v, want schema %d", body, latest)
	}
}

func TestIncompetentAssignmentReturnsDetails(t *testing.T) {
	ts := newTestServer(t)
	f := seed(t, ts, 4)
	res, data := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/tasks/"+f.task.ID+"/assign", map[string]any{"member_id": f.member.ID})
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", res.StatusCode, string(data))
	}
	var body apiError
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if body.Body.Code != "incompetent_assignment" {
		t.Fatalf("unexpected code %q", body.Body.Code)
	}
	if body.Body.Details["skill_id"] != f.skill.ID || body.Body.Details["required"] != float64(4) || body.Body.Details["actual"] != float64(2) {
		t.Fatalf("unexpected details %v", body.Body.Details)
	}

	var task domain.Task
	mustJSON(t, ts.Client(), http.MethodGet, ts.URL+"/tasks/"+f.task.ID, nil, http.StatusOK, &task)
	if task.Assigned() {
		t.Fatalf("task must stay unassigned")
	}
}

func TestTaskLifecycleCompletesProject(t *testing.T) {
	ts := newTestServer(t)
	c := ts.Client()
	f := seed(t, ts, 2)

	res, data := doJSON(t, c, http.MethodPost, ts.URL+"/tasks/"+f.task.ID+"/start", nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("start without assignee: expected 409, got %d: %s", res.StatusCode, string(data))
	}

	var assigned domain.Task
	mustJSON(t, c, http.MethodPost, ts.URL+"/tasks/"+f.task.ID+"/assign", map[string]any{"member_id": f.member.ID}, http.StatusOK, &assigned)
	if !assigned.Assigned() || *assigned.AssigneeID != f.member.ID {
		t.Fatalf("expected assignee %s", f.member.ID)
	}

	var started engine.TransitionResult
	mustJSON(t, c, http.MethodPost, ts.URL+"/tasks/"+f.task.ID+"/start", nil, http.StatusOK, &started)
	if started.ProjectStatus != domain.ProjectInProgress || !started.ProjectStatusChanged {
		t.Fatalf("expected project IN_PROGRESS, got %+v", started)
	}

	var completed engine.TransitionResult
	mustJSON(t, c, http.MethodPost, ts.URL+"/tasks/"+f.task.ID+"/complete", nil, http.StatusOK, &completed)
	if completed.ProjectStatus != domain.ProjectCompleted {
		t.Fatalf("expected project COMPLETED, got %s", completed.ProjectStatus)
	}

	res, data = doJSON(t, c, http.MethodPost, ts.URL+"/tasks/"+f.task.ID+"/complete", nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("repeat complete: expected 409, got %d: %s", res.StatusCode, string(data))
	}

	var detail view.ProjectDetail
	mustJSON(t, c, http.MethodGet, ts.URL+"/projects/"+f.project.ID, nil, http.StatusOK, &detail)
	if detail.Summary.CompletionPercent != 100 {
		t.Fatalf("expected 100%% completion, got %v", detail.Summary.CompletionPercent)
	}
}

func TestAllocateAndTimeline(t *testing.T) {
	ts := newTestServer(t)
	c := ts.Client()
	f := seed(t, ts, 1)

	var res domain.AllocationResult
	mustJSON(t, c, http.MethodPost, ts.URL+"/projects/"+f.project.ID+"/allocate", nil, http.StatusOK, &res)
	if res.AssignedCount != 1 || res.FailedCount != 0 || !res.Success {
		t.Fatalf("unexpected allocation %+v", res)
	}

	var layout timeline.Layout
	mustJSON(t, c, http.MethodGet, ts.URL+"/projects/"+f.project.ID+"/timeline", nil, http.StatusOK, &layout)
	if len(layout.Rows) != 1 || layout.Rows[0].MemberID != f.member.ID {
		t.Fatalf("expected one member row, got %+v", layout.Rows)
	}
	bar := layout.Rows[0].Bars[0]
	if bar.LeftPercent != 20 || bar.WidthPercent != 20 {
		t.Fatalf("unexpected bar geometry %+v", bar)
	}
}

func TestNotFoundAndBadRequest(t *testing.T) {
	ts := newTestServer(t)
	c := ts.Client()

	res, data := doJSON(t, c, http.MethodGet, ts.URL+"/members/missing", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, c, http.MethodPost, ts.URL+"/projects", map[string]any{
		"name":       "Bad",
		"start_date": "01/02/2024",
		"deadline":   "2024-01-11",
	})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, c, http.MethodPost, ts.URL+"/projects", map[string]any{
		"name":       "Backwards",
		"start_date": "2024-02-01",
		"deadline":   "2024-01-01",
	})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for deadline before start, got %d: %s", res.StatusCode, string(data))
	}
}

func TestAlertEndpoints(t *testing.T) {
	ts := newTestServer(t)
	c := ts.Client()
	f := seed(t, ts, 1)
	// a 60h task overloads a 40h member
	var big domain.Task
	mustJSON(t, c, http.MethodPost, ts.URL+"/tasks", map[string]any{
		"project_id":      f.project.ID,
		"title":           "Migration",
		"estimated_hours": 60,
	}, http.StatusCreated, &big)
	mustJSON(t, c, http.MethodPost, ts.URL+"/tasks/"+big.ID+"/assign", map[string]any{"member_id": f.member.ID}, http.StatusOK, nil)

	var count AlertCountResponse
	mustJSON(t, c, http.MethodGet, ts.URL+"/alerts/count?fresh=true", nil, http.StatusOK, &count)
	if count.Unread != 1 {
		t.Fatalf("expected 1 unread alert, got %d", count.Unread)
	}
	var list []domain.Alert
	mustJSON(t, c, http.MethodGet, ts.URL+"/alerts?unread=true", nil, http.StatusOK, &list)
	if len(list) != 1 || list[0].Type != domain.AlertOverload {
		t.Fatalf("unexpected alerts %+v", list)
	}
	mustJSON(t, c, http.MethodPost, ts.URL+"/alerts/"+list[0].ID+"/read", nil, http.StatusOK, &count)
	if count.Unread != 0 {
		t.Fatalf("expected 0 unread after read, got %d", count.Unread)
	}
	res, _ := doJSON(t, c, http.MethodDelete, ts.URL+"/alerts/"+list[0].ID, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 on delete, got %d", res.StatusCode)
	}
}

func TestOpenAPIServed(t *testing.T) {
	ts := newTestServer(t)
	var doc map[string]any
	mustJSON(t, ts.Client(), http.MethodGet, ts.URL+"/openapi.json", nil, http.StatusOK, &doc)
	if _, ok := doc["paths"]; !ok {
		t.Fatalf("expected paths in openapi document")
	}
}
