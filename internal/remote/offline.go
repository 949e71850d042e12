package remote

import "context"

// Offline is a Gateway that never reaches a remote store. Bootstrapping
// against it always degrades the session to offline mode.
type Offline struct{}

var _ Gateway = Offline{}

func (Offline) FetchDashboard(context.Context) (DashboardSnapshot, error) {
	return DashboardSnapshot{}, ErrOffline
}
func (Offline) FetchAgents(context.Context) ([]AgentRecord, error) { return nil, ErrOffline }
func (Offline) FetchTasks(context.Context) ([]TaskRecord, error)   { return nil, ErrOffline }
func (Offline) FetchMessages(context.Context, string) ([]MessageRecord, error) {
	return nil, ErrOffline
}
func (Offline) FetchKPIs(context.Context, string) ([]KPIRecord, error) { return nil, ErrOffline }
func (Offline) FetchGoals(context.Context) ([]GoalRecord, error)       { return nil, ErrOffline }
func (Offline) FetchActivity(context.Context, int) ([]ActivityRecord, error) {
	return nil, ErrOffline
}
func (Offline) FetchFeatureRequests(context.Context, string) ([]FeatureRequestRecord, error) {
	return nil, ErrOffline
}

func (Offline) UpdateTaskStatus(context.Context, string, string) error { return ErrOffline }
func (Offline) CreateTask(context.Context, TaskRecord) (Created, error) {
	return Created{}, ErrOffline
}
func (Offline) UpdateTask(context.Context, string, Patch) error { return ErrOffline }
func (Offline) DeleteTask(context.Context, string) error         { return ErrOffline }
func (Offline) SpawnAgent(context.Context, AgentRecord) (Created, error) {
	return Created{}, ErrOffline
}
func (Offline) UpdateAgent(context.Context, string, Patch) error   { return ErrOffline }
func (Offline) UpdateKPI(context.Context, string, string) error    { return ErrOffline }
func (Offline) CreateProject(context.Context, ProjectRecord) (Created, error) {
	return Created{}, ErrOffline
}
func (Offline) UpdateProject(context.Context, string, Patch) error { return ErrOffline }
func (Offline) DeleteProject(context.Context, string) error        { return ErrOffline }
func (Offline) CreateDirective(context.Context, DirectiveRecord) (Created, error) {
	return Created{}, ErrOffline
}
func (Offline) CreateGoal(context.Context, GoalRecord) (Created, error) {
	return Created{}, ErrOffline
}
func (Offline) UpdateGoal(context.Context, string, Patch) error { return ErrOffline }
func (Offline) DeleteGoal(context.Context, string) error        { return ErrOffline }
func (Offline) CreateFeatureRequest(context.Context, FeatureRequestRecord) (Created, error) {
	return Created{}, ErrOffline
}
func (Offline) UpdateFeatureRequest(context.Context, string, Patch) error { return ErrOffline }
func (Offline) DeleteFeatureRequest(context.Context, string) error        { return ErrOffline }
func (Offline) SendMessage(context.Context, string, string) (ChatReply, error) {
	return ChatReply{}, ErrOffline
}
