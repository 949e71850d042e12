package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	Method string
	Path   string
	Query  string
	Auth   string
	APIKey string
	Body   map[string]any
}

func newServer(t *testing.T, status int, reply any) (*httptest.Server, func() []captured) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []captured
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := captured{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
			APIKey: r.Header.Get("apikey"),
		}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &c.Body)
		}
		mu.Lock()
		reqs = append(reqs, c)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if reply != nil {
			_ = json.NewEncoder(w).Encode(reply)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), reqs...)
	}
}

func TestFetchDashboardSendsCredentials(t *testing.T) {
	srv, reqs := newServer(t, http.StatusOK, map[string]any{
		"tasks": []map[string]any{{"id": "t1", "title": "a", "priority": 1, "status": "failed"}},
	})
	c := New(srv.URL+"/", "anon", func() string { return "tok" })

	snap, err := c.FetchDashboard(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, 1, *snap.Tasks[0].Priority)
	assert.Equal(t, "failed", snap.Tasks[0].Status)

	got := reqs()[0]
	assert.Equal(t, "/v1/dashboard", got.Path)
	assert.Equal(t, "Bearer tok", got.Auth)
	assert.Equal(t, "anon", got.APIKey)
}

func TestListQueriesAreOptional(t *testing.T) {
	srv, reqs := newServer(t, http.StatusOK, map[string]any{"items": []any{}})
	c := New(srv.URL, "", nil)
	ctx := context.Background()

	_, err := c.FetchKPIs(ctx, "")
	require.NoError(t, err)
	_, err = c.FetchKPIs(ctx, "growth & ops")
	require.NoError(t, err)
	_, err = c.FetchActivity(ctx, 20)
	require.NoError(t, err)
	_, err = c.FetchMessages(ctx, "th-1")
	require.NoError(t, err)

	assert.Equal(t, "", reqs()[0].Query)
	assert.Equal(t, "category=growth+%26+ops", reqs()[1].Query)
	assert.Equal(t, "limit=20", reqs()[2].Query)
	assert.Equal(t, "thread_id=th-1", reqs()[3].Query)
	assert.Empty(t, reqs()[0].Auth)
}

func TestWritesUseRemoteFieldNames(t *testing.T) {
	srv, reqs := newServer(t, http.StatusOK, map[string]any{"id": "task-9"})
	c := New(srv.URL, "", nil)
	ctx := context.Background()

	prio := 2
	created, err := c.CreateTask(ctx, TaskRecord{Title: "Draft", Priority: &prio, Status: "todo", AssignedTo: "tiger"})
	require.NoError(t, err)
	assert.Equal(t, "task-9", created.ID)

	require.NoError(t, c.UpdateTaskStatus(ctx, "task-9", "in_progress"))
	require.NoError(t, c.UpdateTask(ctx, "task-9", Patch{"deadline": nil, "title": "x"}))

	create := reqs()[0]
	assert.Equal(t, http.MethodPost, create.Method)
	assert.Equal(t, "/v1/tasks", create.Path)
	assert.Equal(t, "tiger", create.Body["assigned_to"])
	assert.EqualValues(t, 2, create.Body["priority"])
	_, hasID := create.Body["id"]
	assert.False(t, hasID)

	status := reqs()[1]
	assert.Equal(t, http.MethodPatch, status.Method)
	assert.Equal(t, "/v1/tasks/task-9/status", status.Path)
	assert.Equal(t, "in_progress", status.Body["status"])

	patch := reqs()[2]
	v, ok := patch.Body["deadline"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestDeleteAcceptsNoContent(t *testing.T) {
	srv, reqs := newServer(t, http.StatusNoContent, nil)
	c := New(srv.URL, "", nil)
	require.NoError(t, c.DeleteProject(context.Background(), "p/1"))
	assert.Equal(t, http.MethodDelete, reqs()[0].Method)
}

func TestNonSuccessStatusIsAPIError(t *testing.T) {
	srv, _ := newServer(t, http.StatusConflict, map[string]any{"message": "duplicate"})
	c := New(srv.URL, "", nil)

	err := c.DeleteGoal(context.Background(), "g1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "duplicate")
	assert.Contains(t, err.Error(), "status=409")
}

func TestSendMessageCarriesThread(t *testing.T) {
	srv, reqs := newServer(t, http.StatusOK, map[string]any{"reply": "hello", "thread_id": "th-7"})
	c := New(srv.URL, "", nil)
	ctx := context.Background()

	reply, err := c.SendMessage(ctx, "hi", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", reply.ReplyText)
	assert.Equal(t, "th-7", reply.ThreadID)
	_, err = c.SendMessage(ctx, "again", reply.ThreadID)
	require.NoError(t, err)

	_, hasThread := reqs()[0].Body["thread_id"]
	assert.False(t, hasThread)
	assert.Equal(t, "th-7", reqs()[1].Body["thread_id"])
	assert.Equal(t, "again", reqs()[1].Body["message"])
}

func TestOfflineGatewayAlwaysFails(t *testing.T) {
	var gw Gateway = Offline{}
	_, err := gw.FetchDashboard(context.Background())
	require.ErrorIs(t, err, ErrOffline)
	require.ErrorIs(t, gw.DeleteTask(context.Background(), "x"), ErrOffline)
}
