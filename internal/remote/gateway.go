package remote

import (
	"context"
	"errors"
	"fmt"
)

// ErrOffline is returned by the offline gateway for every call.
var ErrOffline = errors.New("remote store unreachable")

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Gateway is the remote key-store CRUD and chat service.
type Gateway interface {
	Reader
	Writer
	SendMessage(ctx context.Context, content, threadID string) (ChatReply, error)
}

// Reader holds the idempotent fetch operations.
type Reader interface {
	FetchDashboard(ctx context.Context) (DashboardSnapshot, error)
	FetchAgents(ctx context.Context) ([]AgentRecord, error)
	FetchTasks(ctx context.Context) ([]TaskRecord, error)
	FetchMessages(ctx context.Context, threadID string) ([]MessageRecord, error)
	FetchKPIs(ctx context.Context, category string) ([]KPIRecord, error)
	FetchGoals(ctx context.Context) ([]GoalRecord, error)
	FetchActivity(ctx context.Context, limit int) ([]ActivityRecord, error)
	FetchFeatureRequests(ctx context.Context, status string) ([]FeatureRequestRecord, error)
}

// Writer holds the mutating operations. Payloads use remote field names.
type Writer interface {
	UpdateTaskStatus(ctx context.Context, id, status string) error
	CreateTask(ctx context.Context, rec TaskRecord) (Created, error)
	UpdateTask(ctx context.Context, id string, p Patch) error
	DeleteTask(ctx context.Context, id string) error

	SpawnAgent(ctx context.Context, rec AgentRecord) (Created, error)
	UpdateAgent(ctx context.Context, id string, p Patch) error

	UpdateKPI(ctx context.Context, id, value string) error

	CreateProject(ctx context.Context, rec ProjectRecord) (Created, error)
	UpdateProject(ctx context.Context, id string, p Patch) error
	DeleteProject(ctx context.Context, id string) error

	CreateDirective(ctx context.Context, rec DirectiveRecord) (Created, error)

	CreateGoal(ctx context.Context, rec GoalRecord) (Created, error)
	UpdateGoal(ctx context.Context, id string, p Patch) error
	DeleteGoal(ctx context.Context, id string) error

	CreateFeatureRequest(ctx context.Context, rec FeatureRequestRecord) (Created, error)
	UpdateFeatureRequest(ctx context.Context, id string, p Patch) error
	DeleteFeatureRequest(ctx context.Context, id string) error
}
