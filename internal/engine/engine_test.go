package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"opsdeck/internal/domain"
	"opsdeck/internal/engine"
	"opsdeck/internal/remote"
	"opsdeck/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type call struct {
	Op      string
	ID      string
	Payload any
}

// fakeGateway records writes. Creates block on gate and chat turns block on
// chatGate when they are set; every write fails when fail is set.
type fakeGateway struct {
	remote.Offline

	mu      sync.Mutex
	calls   []call
	nextID  int
	gate     chan struct{}
	chatGate chan struct{}
	fail     bool
	threads []string
}

func (f *fakeGateway) record(op, id string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Op: op, ID: id, Payload: payload})
	if f.fail {
		return &remote.APIError{StatusCode: 500, Body: "boom"}
	}
	return nil
}

func (f *fakeGateway) created(op string, payload any) (remote.Created, error) {
	if f.gate != nil {
		<-f.gate
	}
	if err := f.record(op, "", payload); err != nil {
		return remote.Created{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return remote.Created{ID: fmt.Sprintf("real-%d", f.nextID)}, nil
}

func (f *fakeGateway) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeGateway) find(op string) (call, bool) {
	for _, c := range f.Calls() {
		if c.Op == op {
			return c, true
		}
	}
	return call{}, false
}

func (f *fakeGateway) CreateTask(_ context.Context, rec remote.TaskRecord) (remote.Created, error) {
	return f.created("create_task", rec)
}
func (f *fakeGateway) UpdateTaskStatus(_ context.Context, id, status string) error {
	return f.record("update_task_status", id, status)
}
func (f *fakeGateway) UpdateTask(_ context.Context, id string, p remote.Patch) error {
	return f.record("update_task", id, p)
}
func (f *fakeGateway) DeleteTask(_ context.Context, id string) error {
	return f.record("delete_task", id, nil)
}
func (f *fakeGateway) SpawnAgent(_ context.Context, rec remote.AgentRecord) (remote.Created, error) {
	return f.created("spawn_agent", rec)
}
func (f *fakeGateway) UpdateAgent(_ context.Context, id string, p remote.Patch) error {
	return f.record("update_agent", id, p)
}
func (f *fakeGateway) UpdateKPI(_ context.Context, id, value string) error {
	return f.record("update_kpi", id, value)
}
func (f *fakeGateway) CreateProject(_ context.Context, rec remote.ProjectRecord) (remote.Created, error) {
	return f.created("create_project", rec)
}
func (f *fakeGateway) UpdateProject(_ context.Context, id string, p remote.Patch) error {
	return f.record("update_project", id, p)
}
func (f *fakeGateway) DeleteProject(_ context.Context, id string) error {
	return f.record("delete_project", id, nil)
}
func (f *fakeGateway) CreateDirective(_ context.Context, rec remote.DirectiveRecord) (remote.Created, error) {
	return f.created("create_directive", rec)
}
func (f *fakeGateway) CreateGoal(_ context.Context, rec remote.GoalRecord) (remote.Created, error) {
	return f.created("create_goal", rec)
}
func (f *fakeGateway) UpdateGoal(_ context.Context, id string, p remote.Patch) error {
	return f.record("update_goal", id, p)
}
func (f *fakeGateway) DeleteGoal(_ context.Context, id string) error {
	return f.record("delete_goal", id, nil)
}
func (f *fakeGateway) CreateFeatureRequest(_ context.Context, rec remote.FeatureRequestRecord) (remote.Created, error) {
	return f.created("create_feature_request", rec)
}
func (f *fakeGateway) UpdateFeatureRequest(_ context.Context, id string, p remote.Patch) error {
	return f.record("update_feature_request", id, p)
}
func (f *fakeGateway) DeleteFeatureRequest(_ context.Context, id string) error {
	return f.record("delete_feature_request", id, nil)
}
func (f *fakeGateway) SendMessage(_ context.Context, content, threadID string) (remote.ChatReply, error) {
	f.mu.Lock()
	f.threads = append(f.threads, threadID)
	f.mu.Unlock()
	if f.chatGate != nil {
		<-f.chatGate
	}
	if err := f.record("send_message", threadID, content); err != nil {
		return remote.ChatReply{}, err
	}
	return remote.ChatReply{ReplyText: "on it: " + content, ThreadID: "th-1"}, nil
}

type testEnv struct {
	Engine *engine.Engine
	Store  *store.Store
	Remote *fakeGateway
	Ctx    context.Context
}

func newTestEnv(t *testing.T, snap domain.Snapshot, opts engine.Options) testEnv {
	t.Helper()
	st := store.New()
	st.Replace(snap)
	gw := &fakeGateway{}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC) }
	}
	if opts.SettleDelay == 0 {
		opts.SettleDelay = time.Millisecond
	}
	eng := engine.New(st, gw, opts)
	ctx := context.Background()
	t.Cleanup(func() {
		if gw.gate != nil {
			select {
			case <-gw.gate:
			default:
				close(gw.gate)
			}
		}
		_ = eng.Close(ctx)
	})
	return testEnv{Engine: eng, Store: st, Remote: gw, Ctx: ctx}
}

func (env testEnv) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(env.Ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, env.Engine.Wait(ctx))
}

func seed() domain.Snapshot {
	return domain.Snapshot{
		Agents: []domain.Agent{{ID: "agent-1", Name: "Nova", Emoji: "🚀", Status: domain.AgentActive}},
		Projects: []domain.Project{
			{ID: "proj-grw", Title: "PR.GRW | Q1 Growth Push", Code: "GRW"},
			{ID: "proj-ops", Title: "PR.OPS | Ops Automation", Code: "OPS"},
			{ID: "proj-sub", Title: "Sub", Code: "SUB", ParentProjectID: "proj-grw"},
		},
		Tasks: []domain.Task{
			{ID: "task-1", Title: "one", AssignedTo: domain.OperatorID, Status: domain.TaskPending, ProjectID: "proj-grw", ProjectCode: "GRW", ProjectName: "Q1 Growth Push"},
			{ID: "task-2", Title: "two", AssignedTo: domain.OperatorID, Status: domain.TaskCompleted, ProjectID: "proj-grw", ProjectCode: "GRW", ProjectName: "Q1 Growth Push"},
			{ID: "task-3", Title: "three", AssignedTo: domain.OperatorID, Status: domain.TaskInProgress, ParentTaskID: "task-1"},
		},
		Goals: []domain.Goal{{ID: "goal-1", Title: "Grow", Progress: 40, Status: domain.GoalOnTrack}},
		KPIs:  []domain.KPI{{ID: "kpi-1", Label: "Signups", Value: "10"}},
		Ideas: []domain.FeatureRequest{{ID: "idea-1", Title: "Dark mode", Status: domain.IdeaNew}},
	}
}

func TestCreateTaskOptimisticThenReconciled(t *testing.T) {
	env := newTestEnv(t, domain.Snapshot{}, engine.Options{})
	env.Remote.gate = make(chan struct{})

	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Title:      "Draft Q1 report",
		Priority:   domain.PriorityHigh,
		AssignedTo: domain.OperatorID,
	})
	require.NoError(t, err)
	assert.True(t, engine.IsTemp(task.ID))
	assert.Equal(t, domain.TaskPending, task.Status)
	assert.Equal(t, domain.OperatorID, task.AssignedBy)
	assert.Empty(t, task.ProjectID)

	tasks := env.Store.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, task.ID, tasks[0].ID)
	activity := env.Store.Activity()
	require.Len(t, activity, 1)
	assert.Equal(t, "Created task", activity[0].Action)
	assert.Equal(t, "Draft Q1 report", activity[0].Detail)
	assert.Equal(t, domain.JustNow, activity[0].Timestamp)

	close(env.Remote.gate)
	env.wait(t)

	got, ok := env.Store.Task("real-1")
	require.True(t, ok)
	assert.Equal(t, "Draft Q1 report", got.Title)
	c, ok := env.Remote.find("create_task")
	require.True(t, ok)
	rec := c.Payload.(remote.TaskRecord)
	assert.Equal(t, 2, *rec.Priority)
	assert.Equal(t, "todo", rec.Status)
	assert.Empty(t, rec.ID)
}

func TestCreateTaskRejectsBlankTitle(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	before := env.Store.Snapshot()

	_, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "   "})
	require.ErrorIs(t, err, engine.ErrRejected)

	after := env.Store.Snapshot()
	assert.Len(t, after.Tasks, len(before.Tasks))
	assert.Len(t, after.Activity, len(before.Activity))
	env.wait(t)
	assert.Empty(t, env.Remote.Calls())
}

func TestCreateTaskResolvesProjectRef(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "Ship", ProjectID: "proj-ops"})
	require.NoError(t, err)
	assert.Equal(t, "OPS", task.ProjectCode)
	assert.Equal(t, "Ops Automation", task.ProjectName)
	env.wait(t)
}

func TestDropOnSameColumnIsNoop(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	rev := env.Store.Revision()

	_, moved, err := env.Engine.DropTask(env.Ctx, "task-1", domain.TaskPending)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, rev, env.Store.Revision())
	assert.Empty(t, env.Store.Activity())
	env.wait(t)
	assert.Empty(t, env.Remote.Calls())
}

func TestDropAllowsAnyDirection(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})

	task, moved, err := env.Engine.DropTask(env.Ctx, "task-2", domain.TaskPending)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, domain.TaskPending, task.Status)
	assert.Equal(t, "Moved task to Pending", env.Store.Activity()[0].Action)

	env.wait(t)
	c, ok := env.Remote.find("update_task_status")
	require.True(t, ok)
	assert.Equal(t, "task-2", c.ID)
	assert.Equal(t, "todo", c.Payload)
}

func TestAdvanceFollowsGuidedFlow(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	want := []domain.TaskStatus{domain.TaskInProgress, domain.TaskReview, domain.TaskCompleted}
	for _, status := range want {
		task, err := env.Engine.AdvanceTask(env.Ctx, "task-1")
		require.NoError(t, err)
		assert.Equal(t, status, task.Status)
	}
	_, err := env.Engine.AdvanceTask(env.Ctx, "task-1")
	require.ErrorIs(t, err, engine.ErrRejected)
	env.wait(t)
}

func TestReviewIsWrittenAsInProgress(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	_, err := env.Engine.UpdateTaskStatus(env.Ctx, "task-1", domain.TaskReview)
	require.NoError(t, err)
	env.wait(t)

	c, ok := env.Remote.find("update_task_status")
	require.True(t, ok)
	assert.Equal(t, "in_progress", c.Payload)
	got, _ := env.Store.Task("task-1")
	assert.Equal(t, domain.TaskReview, got.Status)
}

func TestPendingCounterFollowsAssignee(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	require.Equal(t, 2, env.Store.Counters().PendingTasks)

	assignee := "agent-1"
	_, err := env.Engine.UpdateTask(env.Ctx, "task-3", domain.TaskPatch{AssignedTo: &assignee})
	require.NoError(t, err)
	assert.Equal(t, 1, env.Store.Counters().PendingTasks)

	_, err = env.Engine.UpdateTaskStatus(env.Ctx, "task-1", domain.TaskCompleted)
	require.NoError(t, err)
	assert.Equal(t, 0, env.Store.Counters().PendingTasks)
	env.wait(t)
}

func TestUpdateTaskKeepsProjectFieldsInSync(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})

	task, err := env.Engine.UpdateTask(env.Ctx, "task-1", domain.TaskPatch{ProjectID: domain.SetTo("proj-ops")})
	require.NoError(t, err)
	assert.Equal(t, "OPS", task.ProjectCode)
	assert.Equal(t, "Ops Automation", task.ProjectName)
	env.wait(t)

	task, err = env.Engine.UpdateTask(env.Ctx, "task-1", domain.TaskPatch{ProjectID: domain.Cleared[string]()})
	require.NoError(t, err)
	assert.Empty(t, task.ProjectID)
	assert.Empty(t, task.ProjectCode)
	assert.Empty(t, task.ProjectName)

	env.wait(t)
	var patches []remote.Patch
	for _, c := range env.Remote.Calls() {
		if c.Op == "update_task" {
			patches = append(patches, c.Payload.(remote.Patch))
		}
	}
	require.Len(t, patches, 2)
	assert.Equal(t, "proj-ops", patches[0]["project_id"])
	v, present := patches[1]["project_id"]
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestUpdateTaskActivityListsFields(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	title := "one, renamed"
	prio := domain.PriorityCritical
	_, err := env.Engine.UpdateTask(env.Ctx, "task-1", domain.TaskPatch{
		Title:    &title,
		Priority: &prio,
		Deadline: domain.SetTo("2025-02-01"),
	})
	require.NoError(t, err)
	item := env.Store.Activity()[0]
	assert.Equal(t, "Updated task", item.Action)
	assert.Equal(t, "one, renamed: title, priority, deadline", item.Detail)

	got, _ := env.Store.Task("task-1")
	assert.Equal(t, domain.TaskPending, got.Status)
	assert.Equal(t, "GRW", got.ProjectCode)
	env.wait(t)
}

func TestUpdateTaskRejectsBlankTitle(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	blank := "  "
	_, err := env.Engine.UpdateTask(env.Ctx, "task-1", domain.TaskPatch{Title: &blank})
	require.ErrorIs(t, err, engine.ErrRejected)
	got, _ := env.Store.Task("task-1")
	assert.Equal(t, "one", got.Title)
	assert.Empty(t, env.Store.Activity())
}

func TestDeleteTaskUnlinksChildren(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	require.NoError(t, env.Engine.DeleteTask(env.Ctx, "task-1"))

	_, ok := env.Store.Task("task-1")
	assert.False(t, ok)
	child, ok := env.Store.Task("task-3")
	require.True(t, ok)
	assert.Empty(t, child.ParentTaskID)
	assert.Equal(t, "Deleted task", env.Store.Activity()[0].Action)
	env.wait(t)
}

func TestMutationAfterDeleteIsNotFound(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	require.NoError(t, env.Engine.DeleteTask(env.Ctx, "task-2"))
	rev := env.Store.Revision()

	_, err := env.Engine.UpdateTaskStatus(env.Ctx, "task-2", domain.TaskPending)
	require.ErrorIs(t, err, engine.ErrNotFound)
	require.ErrorIs(t, env.Engine.DeleteTask(env.Ctx, "task-2"), engine.ErrNotFound)
	assert.Equal(t, rev, env.Store.Revision())
	env.wait(t)
}

func TestDeleteProjectCascadingUnlink(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	require.NoError(t, env.Engine.DeleteProject(env.Ctx, "proj-grw"))

	_, ok := env.Store.Project("proj-grw")
	assert.False(t, ok)
	for _, task := range env.Store.Tasks() {
		assert.NotEqual(t, "proj-grw", task.ProjectID)
		if task.ID == "task-1" || task.ID == "task-2" {
			assert.Empty(t, task.ProjectID)
			assert.Empty(t, task.ProjectCode)
			assert.Empty(t, task.ProjectName)
		}
	}
	sub, ok := env.Store.Project("proj-sub")
	require.True(t, ok)
	assert.Empty(t, sub.ParentProjectID)
	assert.Len(t, env.Store.Tasks(), 3)

	env.wait(t)
	c, ok := env.Remote.find("delete_project")
	require.True(t, ok)
	assert.Equal(t, "proj-grw", c.ID)
}

func TestUpdateProjectTitleRefreshesTasks(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	title := "PR.GRO | Growth Sprint"
	p, err := env.Engine.UpdateProject(env.Ctx, "proj-grw", domain.ProjectPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "GRO", p.Code)

	for _, task := range env.Store.Tasks() {
		if task.ProjectID == "proj-grw" {
			assert.Equal(t, "GRO", task.ProjectCode)
			assert.Equal(t, "Growth Sprint", task.ProjectName)
		}
	}
	assert.Equal(t, "Growth Sprint: title", env.Store.Activity()[0].Detail)
	env.wait(t)
}

func TestCreateProjectDerivesCode(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{Title: "Untitled Initiative"})
	require.NoError(t, err)
	assert.Equal(t, "UNTI", p.Code)
	assert.Equal(t, domain.ProjectActive, p.Status)
	assert.Equal(t, p.ID, env.Store.Projects()[0].ID)
	env.wait(t)
	_, ok := env.Store.Project("real-1")
	assert.True(t, ok)
}

func TestUpdateGoalClampsProgress(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	for _, tc := range []struct{ in, want int }{{150, 100}, {-5, 0}, {55, 55}} {
		in := tc.in
		g, err := env.Engine.UpdateGoal(env.Ctx, "goal-1", domain.GoalPatch{Progress: &in})
		require.NoError(t, err)
		assert.Equal(t, tc.want, g.Progress, "input %d", tc.in)
	}
	env.wait(t)
	for _, c := range env.Remote.Calls() {
		if c.Op != "update_goal" {
			continue
		}
		v := c.Payload.(remote.Patch)["progress"].(int)
		assert.GreaterOrEqual(t, v, 0)
		assert.LessOrEqual(t, v, 100)
	}
}

func TestCreateGoalClampsAndResolvesOwner(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	g, err := env.Engine.CreateGoal(env.Ctx, engine.GoalCreateOptions{Title: "Retention", Progress: 120, OwnerID: "agent-1"})
	require.NoError(t, err)
	assert.Equal(t, 100, g.Progress)
	assert.Equal(t, "Nova", g.OwnerName)
	assert.Equal(t, "🚀", g.OwnerEmoji)
	require.NoError(t, env.Engine.DeleteGoal(env.Ctx, g.ID))
	env.wait(t)

	c, ok := env.Remote.find("delete_goal")
	require.True(t, ok)
	assert.Equal(t, "real-1", c.ID)
}

func TestIdeasDriveNewIdeaCounter(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	require.Equal(t, 1, env.Store.Counters().NewIdeas)

	fr, err := env.Engine.CreateIdea(env.Ctx, engine.IdeaCreateOptions{Title: "Keyboard shortcuts"})
	require.NoError(t, err)
	assert.Equal(t, domain.IdeaNew, fr.Status)
	assert.Equal(t, domain.IdeaMedium, fr.Priority)
	assert.Equal(t, 2, env.Store.Counters().NewIdeas)

	done := domain.IdeaDone
	_, err = env.Engine.UpdateIdea(env.Ctx, "idea-1", domain.IdeaPatch{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, 1, env.Store.Counters().NewIdeas)

	require.NoError(t, env.Engine.DeleteIdea(env.Ctx, fr.ID))
	assert.Equal(t, 0, env.Store.Counters().NewIdeas)
	env.wait(t)
}

func TestUpdateBeforeReconcileChainsBehindCreate(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	env.Remote.gate = make(chan struct{})

	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "draft"})
	require.NoError(t, err)
	title := "final"
	_, err = env.Engine.UpdateTask(env.Ctx, task.ID, domain.TaskPatch{Title: &title})
	require.NoError(t, err)
	_, err = env.Engine.AdvanceTask(env.Ctx, task.ID)
	require.NoError(t, err)

	close(env.Remote.gate)
	env.wait(t)

	got, ok := env.Store.Task("real-1")
	require.True(t, ok)
	assert.Equal(t, "final", got.Title)
	assert.Equal(t, domain.TaskInProgress, got.Status)

	up, ok := env.Remote.find("update_task")
	require.True(t, ok)
	assert.Equal(t, "real-1", up.ID)
	st, ok := env.Remote.find("update_task_status")
	require.True(t, ok)
	assert.Equal(t, "real-1", st.ID)

	// Callers still holding the temporary id reach the reconciled task.
	_, err = env.Engine.UpdateTaskStatus(env.Ctx, task.ID, domain.TaskReview)
	require.NoError(t, err)
	env.wait(t)
}

func TestRemoteFailureIsLoggedAndStateStands(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	env := newTestEnv(t, seed(), engine.Options{Logger: zap.New(core)})
	env.Remote.fail = true

	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "fragile"})
	require.NoError(t, err)
	_, err = env.Engine.UpdateTaskStatus(env.Ctx, "task-1", domain.TaskCompleted)
	require.NoError(t, err)
	env.wait(t)

	got, ok := env.Store.Task(task.ID)
	require.True(t, ok)
	assert.True(t, engine.IsTemp(got.ID))
	one, _ := env.Store.Task("task-1")
	assert.Equal(t, domain.TaskCompleted, one.Status)
	assert.Equal(t, 2, logs.Len())

	var apiErr *remote.APIError
	for _, entry := range logs.All() {
		for _, f := range entry.Context {
			if f.Key == "error" {
				err, _ := f.Interface.(error)
				assert.True(t, errors.As(err, &apiErr))
			}
		}
	}
}

func TestWritesAfterFailedCreateAreSkipped(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	env.Remote.fail = true
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "lost"})
	require.NoError(t, err)
	require.NoError(t, env.Engine.DeleteTask(env.Ctx, task.ID))
	env.wait(t)

	_, ok := env.Remote.find("delete_task")
	assert.False(t, ok)
}

func TestOfflineSkipsRemote(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{Offline: true})

	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "local only"})
	require.NoError(t, err)
	_, err = env.Engine.AdvanceTask(env.Ctx, task.ID)
	require.NoError(t, err)
	_, err = env.Engine.SendMessage(env.Ctx, "status?")
	require.NoError(t, err)
	env.wait(t)

	assert.Empty(t, env.Remote.Calls())
	got, ok := env.Store.Task(task.ID)
	require.True(t, ok)
	assert.Equal(t, domain.TaskInProgress, got.Status)
	msgs := env.Store.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.SenderOperator, msgs[0].Sender)
	assert.Equal(t, domain.SenderAgent, msgs[1].Sender)
	assert.Contains(t, msgs[1].Content, "offline")
}

func TestChatRetainsThreadID(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	_, err := env.Engine.SendMessage(env.Ctx, "first")
	require.NoError(t, err)
	env.wait(t)
	_, err = env.Engine.SendMessage(env.Ctx, "second")
	require.NoError(t, err)
	env.wait(t)

	assert.Equal(t, []string{"", "th-1"}, env.Remote.threads)
	assert.Equal(t, "th-1", env.Engine.ThreadID())
	msgs := env.Store.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "on it: second", msgs[3].Content)

	_, err = env.Engine.SendMessage(env.Ctx, " ")
	require.ErrorIs(t, err, engine.ErrRejected)
}

func TestSpawnAgentSettlesToActive(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	a, err := env.Engine.SpawnAgent(env.Ctx, engine.AgentSpawnOptions{Name: "Echo", Role: "@research"})
	require.NoError(t, err)
	assert.Equal(t, domain.AgentSpawning, a.Status)
	assert.Equal(t, domain.ActivitySpawn, env.Store.Activity()[0].Type)

	env.wait(t)
	got, ok := env.Store.Agent("real-1")
	require.True(t, ok)
	assert.Equal(t, domain.AgentActive, got.Status)
}

func TestUpdateAgentActiveFlag(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	off := false
	a, err := env.Engine.UpdateAgent(env.Ctx, "agent-1", domain.AgentPatch{Active: &off})
	require.NoError(t, err)
	assert.Equal(t, domain.AgentIdle, a.Status)
	env.wait(t)
	c, ok := env.Remote.find("update_agent")
	require.True(t, ok)
	assert.Equal(t, false, c.Payload.(remote.Patch)["is_active"])
}

func TestIssueDirective(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	msg, err := env.Engine.IssueDirective(env.Ctx, "agent-1", "Prioritize churn")
	require.NoError(t, err)
	assert.Equal(t, domain.MessageDirective, msg.Type)
	assert.Equal(t, "Nova: Prioritize churn", env.Store.Activity()[0].Detail)

	_, err = env.Engine.IssueDirective(env.Ctx, "agent-404", "hello")
	require.ErrorIs(t, err, engine.ErrNotFound)
	env.wait(t)

	c, ok := env.Remote.find("create_directive")
	require.True(t, ok)
	assert.Equal(t, "agent-1", c.Payload.(remote.DirectiveRecord).AgentID)
}

func TestUpdateKPI(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	k, err := env.Engine.UpdateKPI(env.Ctx, "kpi-1", "12")
	require.NoError(t, err)
	assert.Equal(t, "12", k.Value)
	_, err = env.Engine.UpdateKPI(env.Ctx, "kpi-1", "")
	require.ErrorIs(t, err, engine.ErrRejected)
	env.wait(t)
}

func TestThreadIDDoesNotWaitForChatCall(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{ThreadID: "th-0"})
	env.Remote.chatGate = make(chan struct{})
	t.Cleanup(func() {
		select {
		case <-env.Remote.chatGate:
		default:
			close(env.Remote.chatGate)
		}
	})

	_, err := env.Engine.SendMessage(env.Ctx, "long question")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		env.Remote.mu.Lock()
		defer env.Remote.mu.Unlock()
		return len(env.Remote.threads) == 1
	}, 2*time.Second, 5*time.Millisecond)

	got := make(chan string, 1)
	go func() { got <- env.Engine.ThreadID() }()
	select {
	case id := <-got:
		assert.Equal(t, "th-0", id)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("ThreadID blocked behind an in-flight chat call")
	}

	close(env.Remote.chatGate)
	env.wait(t)
	assert.Equal(t, "th-0", env.Engine.ThreadID())
	assert.Equal(t, "on it: long question", env.Store.Messages()[1].Content)
}

func TestWaitWhileMutating(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: fmt.Sprintf("task %d", i)})
			if err != nil {
				t.Errorf("create %d: %v", i, err)
				return
			}
		}
	}()
	for i := 0; i < 50; i++ {
		ctx, cancel := context.WithTimeout(env.Ctx, time.Millisecond)
		err := env.Engine.Wait(ctx)
		cancel()
		if err != nil {
			require.ErrorIs(t, err, context.DeadlineExceeded)
		}
	}
	wg.Wait()
	env.wait(t)

	assert.Len(t, env.Remote.Calls(), 200)
	for _, task := range env.Store.Tasks() {
		assert.False(t, engine.IsTemp(task.ID), task.ID)
	}
}

func TestCloseRefusesNewMutations(t *testing.T) {
	env := newTestEnv(t, seed(), engine.Options{})
	env.Remote.gate = make(chan struct{})

	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "in flight"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(env.Ctx, 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, env.Engine.Close(ctx), context.DeadlineExceeded)

	_, err = env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "too late"})
	require.ErrorIs(t, err, engine.ErrClosed)
	require.ErrorIs(t, env.Engine.DeleteTask(env.Ctx, "task-1"), engine.ErrClosed)
	_, ok := env.Store.Task("task-1")
	assert.True(t, ok)

	close(env.Remote.gate)
	env.wait(t)
	_, ok = env.Store.Task(env.Store.Resolve(task.ID))
	require.True(t, ok)
	assert.False(t, engine.IsTemp(env.Store.Resolve(task.ID)))
}
