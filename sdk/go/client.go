package teamloadsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// Client is a minimal teamload HTTP API client. Calls go through a circuit
// breaker that opens after consecutive transport or 5xx failures.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	// OnStateChange, when set before the first call, observes breaker transitions.
	OnStateChange func(name string, from, to gobreaker.State)

	breaker *gobreaker.CircuitBreaker
}

// New creates a client with sane defaults. baseURL includes the API base
// path, e.g. http://127.0.0.1:8080/v0.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]any
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = gobreaker.ErrOpenState

// Skill is the API skill model.
type Skill struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SkillLevel struct {
	SkillID   string `json:"skill_id"`
	SkillName string `json:"skill_name,omitempty"`
	Level     int    `json:"level"`
}

// Member represents the API member model (partial).
type Member struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	Email              string       `json:"email"`
	WeeklyAvailability float64      `json:"weekly_availability"`
	CurrentWorkload    float64      `json:"current_workload"`
	Skills             []SkillLevel `json:"skills"`
}

type Load struct {
	CurrentWorkload float64 `json:"current_workload"`
	AvailableHours  float64 `json:"available_hours"`
	Percentage      float64 `json:"workload_percentage"`
	Band            string  `json:"band"`
	TaskCount       int     `json:"task_count"`
}

// MemberRow is a member with its computed workload.
type MemberRow struct {
	Member
	Load Load `json:"load"`
}

// Project represents the API project model (partial).
type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	StartDate string `json:"start_date"`
	Deadline  string `json:"deadline"`
}

// ProjectRow is a project listing entry with completion.
type ProjectRow struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Status            string  `json:"status"`
	TaskCount         int     `json:"task_count"`
	CompletedCount    int     `json:"completed_count"`
	CompletionPercent float64 `json:"completion_percent"`
}

type RequiredSkill struct {
	SkillID       string `json:"skill_id"`
	RequiredLevel int    `json:"required_level"`
}

// Task represents the API task model (partial).
type Task struct {
	ID             string          `json:"id"`
	ProjectID      string          `json:"project_id"`
	Title          string          `json:"title"`
	EstimatedHours float64         `json:"estimated_hours"`
	Priority       string          `json:"priority"`
	Status         string          `json:"status"`
	AssigneeID     *string         `json:"assignee_id,omitempty"`
	RequiredSkills []RequiredSkill `json:"required_skills"`
}

// NewTask is the payload of CreateTask. Dates use YYYY-MM-DD.
type NewTask struct {
	ProjectID      string          `json:"project_id"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	EstimatedHours float64         `json:"estimated_hours"`
	Priority       string          `json:"priority,omitempty"`
	StartDate      string          `json:"start_date,omitempty"`
	Deadline       string          `json:"deadline,omitempty"`
	AssigneeID     string          `json:"assignee_id,omitempty"`
	RequiredSkills []RequiredSkill `json:"required_skills,omitempty"`
}

// Transition is the result of starting or completing a task.
type Transition struct {
	Task                 Task   `json:"task"`
	ProjectStatus        string `json:"project_status"`
	ProjectStatusChanged bool   `json:"project_status_changed"`
}

type Allocation struct {
	AssignedCount int    `json:"assigned_count"`
	FailedCount   int    `json:"failed_count"`
	Success       bool   `json:"success"`
	Message       string `json:"message"`
}

type Alert struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Severity  string `json:"severity"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"`
}

type AlertCount struct {
	Unread      int       `json:"unread"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Dashboard represents the API dashboard model (partial).
type Dashboard struct {
	Totals struct {
		Projects       int `json:"projects"`
		Members        int `json:"members"`
		Tasks          int `json:"tasks"`
		CompletedTasks int `json:"completed_tasks"`
	} `json:"totals"`
	OverloadedMembers int          `json:"overloaded_members"`
	RecentProjects    []ProjectRow `json:"recent_projects"`
	TopWorkloads      []MemberRow  `json:"top_workloads"`
	UnreadAlerts      int          `json:"unread_alerts"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	ProjectID  string `json:"project_id"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	Payload    string `json:"payload_json"`
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "health", nil, nil)
}

func (c *Client) ListSkills(ctx context.Context) ([]Skill, error) {
	var resp []Skill
	err := c.do(ctx, http.MethodGet, "skills", nil, &resp)
	return resp, err
}

func (c *Client) CreateSkill(ctx context.Context, name string) (Skill, error) {
	var resp Skill
	err := c.do(ctx, http.MethodPost, "skills", map[string]any{"name": name}, &resp)
	return resp, err
}

// ListMembers returns members with their workload.
func (c *Client) ListMembers(ctx context.Context) ([]MemberRow, error) {
	var resp []MemberRow
	err := c.do(ctx, http.MethodGet, "members", nil, &resp)
	return resp, err
}

func (c *Client) CreateMember(ctx context.Context, name, email string, weeklyHours float64, skills []SkillLevel) (Member, error) {
	body := map[string]any{
		"name":                name,
		"email":               email,
		"weekly_availability": weeklyHours,
		"skills":              skills,
	}
	var resp Member
	err := c.do(ctx, http.MethodPost, "members", body, &resp)
	return resp, err
}

func (c *Client) ListProjects(ctx context.Context) ([]ProjectRow, error) {
	var resp []ProjectRow
	err := c.do(ctx, http.MethodGet, "projects", nil, &resp)
	return resp, err
}

// CreateProject creates a project; dates use YYYY-MM-DD.
func (c *Client) CreateProject(ctx context.Context, name, description, start, deadline string) (Project, error) {
	body := map[string]any{
		"name":        name,
		"description": description,
		"start_date":  start,
		"deadline":    deadline,
	}
	var resp Project
	err := c.do(ctx, http.MethodPost, "projects", body, &resp)
	return resp, err
}

func (c *Client) CreateTask(ctx context.Context, t NewTask) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks", t, &resp)
	return resp, err
}

// ListTasks lists tasks, optionally narrowed to one project.
func (c *Client) ListTasks(ctx context.Context, projectID string) ([]Task, error) {
	endpoint := "tasks"
	if projectID != "" {
		endpoint += "?project_id=" + url.QueryEscape(projectID)
	}
	var resp []Task
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) AssignTask(ctx context.Context, taskID, memberID string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, taskPath(taskID, "assign"), map[string]any{"member_id": memberID}, &resp)
	return resp, err
}

func (c *Client) UnassignTask(ctx context.Context, taskID string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, taskPath(taskID, "unassign"), nil, &resp)
	return resp, err
}

func (c *Client) StartTask(ctx context.Context, taskID string) (Transition, error) {
	var resp Transition
	err := c.do(ctx, http.MethodPost, taskPath(taskID, "start"), nil, &resp)
	return resp, err
}

func (c *Client) CompleteTask(ctx context.Context, taskID string) (Transition, error) {
	var resp Transition
	err := c.do(ctx, http.MethodPost, taskPath(taskID, "complete"), nil, &resp)
	return resp, err
}

// Allocate runs auto-allocation over a project's unassigned tasks.
func (c *Client) Allocate(ctx context.Context, projectID string) (Allocation, error) {
	var resp Allocation
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("projects/%s/allocate", url.PathEscape(projectID)), nil, &resp)
	return resp, err
}

func (c *Client) Dashboard(ctx context.Context) (Dashboard, error) {
	var resp Dashboard
	err := c.do(ctx, http.MethodGet, "dashboard", nil, &resp)
	return resp, err
}

func (c *Client) ListAlerts(ctx context.Context, unreadOnly bool) ([]Alert, error) {
	endpoint := "alerts"
	if unreadOnly {
		endpoint += "?unread=true"
	}
	var resp []Alert
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// AlertCount returns the server's unread count; fresh forces a recount.
func (c *Client) AlertCount(ctx context.Context, fresh bool) (AlertCount, error) {
	endpoint := "alerts/count"
	if fresh {
		endpoint += "?fresh=true"
	}
	var resp AlertCount
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) MarkAlertRead(ctx context.Context, id string) (AlertCount, error) {
	var resp AlertCount
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("alerts/%s/read", url.PathEscape(id)), nil, &resp)
	return resp, err
}

func (c *Client) MarkAllAlertsRead(ctx context.Context) (AlertCount, error) {
	var resp AlertCount
	err := c.do(ctx, http.MethodPost, "alerts/read-all", nil, &resp)
	return resp, err
}

// Events returns recent events, newest first.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func taskPath(taskID, action string) string {
	return fmt.Sprintf("tasks/%s/%s", url.PathEscape(taskID), action)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	if c.breaker == nil {
		c.breaker = newBreaker(c.OnStateChange)
	}
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	data, err := c.breaker.Execute(func() (interface{}, error) {
		return c.send(ctx, method, c.base()+"/"+strings.TrimLeft(endpoint, "/"), buf.Bytes())
	})
	if err != nil {
		return err
	}
	if out != nil {
		if b, _ := data.([]byte); len(b) > 0 {
			return json.Unmarshal(b, out)
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp.StatusCode, b)
	}
	return b, nil
}

func decodeAPIError(status int, b []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(b)}
	var env struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if json.Unmarshal(b, &env) == nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Details = env.Error.Details
	}
	return apiErr
}

func newBreaker(onChange func(name string, from, to gobreaker.State)) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "teamload-api",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		// client errors say nothing about server health
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < 500
			}
			return err == nil
		},
		OnStateChange: onChange,
	})
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
