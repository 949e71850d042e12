package store

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsdeck/internal/domain"
)

func seeded() *Store {
	s := New()
	s.Replace(domain.Snapshot{
		Agents: []domain.Agent{{ID: "a1", Name: "Scout", Status: domain.AgentActive}},
		Projects: []domain.Project{
			{ID: "p1", Title: "PR.GRW | Q1 Growth Push", Code: "GRW"},
			{ID: "p2", Title: "Side", Code: "SIDE", ParentProjectID: "p1"},
		},
		Tasks: []domain.Task{
			{ID: "t1", Title: "one", AssignedTo: domain.OperatorID, Status: domain.TaskPending, ProjectID: "p1"},
			{ID: "t2", Title: "two", AssignedTo: domain.OperatorID, Status: domain.TaskCompleted, ProjectID: "p1"},
			{ID: "t3", Title: "three", AssignedTo: domain.OperatorID, Status: domain.TaskInProgress, ParentTaskID: "t1"},
		},
		Ideas: []domain.FeatureRequest{
			{ID: "i1", Status: domain.IdeaNew},
			{ID: "i2", Status: domain.IdeaDone},
		},
	})
	return s
}

func TestCountersPendingAndNewIdeas(t *testing.T) {
	s := seeded()
	require.Equal(t, domain.Counters{PendingTasks: 2, NewIdeas: 1}, s.Counters())

	s.Update(func(st *State) bool {
		return Modify(st.Tasks, "t3", func(t *domain.Task) { t.AssignedTo = "a1" })
	})
	assert.Equal(t, 1, s.Counters().PendingTasks)
}

func TestProjectCountsRecomputedOnRead(t *testing.T) {
	s := seeded()
	p, ok := s.Project("p1")
	require.True(t, ok)
	assert.Equal(t, 2, p.TaskCount)
	assert.Equal(t, 1, p.CompletedTaskCount)

	s.Update(func(st *State) bool {
		return Modify(st.Tasks, "t1", func(t *domain.Task) { t.Status = domain.TaskCompleted })
	})
	p, _ = s.Project("p1")
	assert.Equal(t, 2, p.CompletedTaskCount)

	for _, pr := range s.Projects() {
		if pr.ID == "p2" {
			assert.Zero(t, pr.TaskCount)
		}
	}
}

func TestReadsReturnCopies(t *testing.T) {
	s := seeded()
	tasks := s.Tasks()
	tasks[0].Title = "mutated"
	got, _ := s.Task("t1")
	assert.Equal(t, "one", got.Title)
}

func TestUpdateWithoutChangeIsNotPublished(t *testing.T) {
	s := seeded()
	var changes []Change
	cancel := s.Subscribe(func(c Change) { changes = append(changes, c) })
	defer cancel()

	rev := s.Revision()
	s.Update(func(st *State) bool { return false })
	assert.Equal(t, rev, s.Revision())
	assert.Empty(t, changes)

	s.Update(func(st *State) bool {
		st.Ideas = Prepend(st.Ideas, domain.FeatureRequest{ID: "i3", Status: domain.IdeaNew})
		return true
	})
	require.Len(t, changes, 1)
	assert.Equal(t, rev+1, changes[0].Revision)
	assert.Equal(t, 2, changes[0].Counters.NewIdeas)
}

func TestSubscribeCancel(t *testing.T) {
	s := New()
	calls := 0
	cancel := s.Subscribe(func(Change) { calls++ })
	s.Update(func(st *State) bool { return true })
	cancel()
	s.Update(func(st *State) bool { return true })
	assert.Equal(t, 1, calls)
}

func TestRenameIDRewritesReferences(t *testing.T) {
	s := seeded()
	require.True(t, s.RenameID(KindProject, "p1", "proj-9"))

	_, ok := s.Project("proj-9")
	assert.True(t, ok)
	for _, tk := range s.Tasks() {
		assert.NotEqual(t, "p1", tk.ProjectID)
	}
	p2, _ := s.Project("p2")
	assert.Equal(t, "proj-9", p2.ParentProjectID)

	require.True(t, s.RenameID(KindTask, "t1", "task-1"))
	child, _ := s.Task("t3")
	assert.Equal(t, "task-1", child.ParentTaskID)

	require.True(t, s.RenameID(KindAgent, "a1", "agent-1"))
	a, ok := s.Agent("agent-1")
	require.True(t, ok)
	assert.Equal(t, "Scout", a.Name)
}

func TestRenameIDKeepsInterleavedEdits(t *testing.T) {
	s := New()
	s.Update(func(st *State) bool {
		st.Tasks = Prepend(st.Tasks, domain.Task{ID: "tmp-1", Title: "draft"})
		return true
	})
	s.Update(func(st *State) bool {
		return Modify(st.Tasks, "tmp-1", func(t *domain.Task) { t.Title = "edited" })
	})
	s.RenameID(KindTask, "tmp-1", "real-1")

	got, ok := s.Task("real-1")
	require.True(t, ok)
	assert.Equal(t, "edited", got.Title)
}

func TestResolveFollowsAliases(t *testing.T) {
	s := seeded()
	s.RenameID(KindTask, "t2", "task-2")
	assert.Equal(t, "task-2", s.Resolve("t2"))
	assert.Equal(t, "unknown", s.Resolve("unknown"))

	got, ok := s.Task("t2")
	require.True(t, ok)
	assert.Equal(t, "task-2", got.ID)
}

func TestRenameIDOfDeletedEntity(t *testing.T) {
	s := seeded()
	s.Update(func(st *State) bool {
		var ok bool
		st.Tasks, ok = Remove(st.Tasks, "t2")
		return ok
	})
	assert.False(t, s.RenameID(KindTask, "t2", "task-2"))
	_, ok := s.Task("t2")
	assert.False(t, ok)
}

func TestChildren(t *testing.T) {
	s := seeded()
	kids := s.Children("t1")
	require.Len(t, kids, 1)
	assert.Equal(t, "t3", kids[0].ID)
	assert.Empty(t, s.Children(""))
}

func TestSnapshotMatchesCollections(t *testing.T) {
	s := seeded()
	snap := s.Snapshot()
	if diff := cmp.Diff(s.Tasks(), snap.Tasks); diff != "" {
		t.Fatalf("tasks mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(s.Projects(), snap.Projects); diff != "" {
		t.Fatalf("projects mismatch (-want +got):\n%s", diff)
	}
}
