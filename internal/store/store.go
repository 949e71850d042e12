// Package store holds the in-memory entity collections behind the dashboard.
//
// A Store is the single owner of application state. Every mutation runs
// inside Update, which holds the store lock across read, compute and commit,
// so two mutations never interleave. Reads return copies.
package store

import (
	"slices"
	"sync"

	"opsdeck/internal/domain"
)

// State is the mutable view handed to Update callbacks. Collections are in
// display order; Activity and Messages are most-recent-first and
// oldest-first respectively.
type State struct {
	Agents      []domain.Agent
	Tasks       []domain.Task
	Projects    []domain.Project
	Departments []domain.Department
	Goals       []domain.Goal
	KPIs        []domain.KPI
	Activity    []domain.ActivityItem
	Messages    []domain.Message
	Ideas       []domain.FeatureRequest
}

// Change is published to subscribers after every committed update.
type Change struct {
	Revision uint64          `json:"revision"`
	Counters domain.Counters `json:"counters"`
}

type Store struct {
	mu      sync.Mutex
	state   State
	rev     uint64
	aliases map[string]string

	subMu   sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

func New() *Store {
	return &Store{
		aliases: map[string]string{},
		subs:    map[int]func(Change){},
	}
}

// Update runs fn with exclusive access to the collections. fn reports whether
// it changed anything; only changes are published.
func (s *Store) Update(fn func(st *State) bool) bool {
	s.mu.Lock()
	changed := fn(&s.state)
	var c Change
	if changed {
		s.rev++
		c = Change{Revision: s.rev, Counters: counters(&s.state)}
	}
	s.mu.Unlock()
	if changed {
		s.publish(c)
	}
	return changed
}

// Replace swaps in a whole snapshot, used by bootstrap.
func (s *Store) Replace(snap domain.Snapshot) {
	s.Update(func(st *State) bool {
		*st = State{
			Agents:      slices.Clone(snap.Agents),
			Tasks:       slices.Clone(snap.Tasks),
			Projects:    slices.Clone(snap.Projects),
			Departments: slices.Clone(snap.Departments),
			Goals:       slices.Clone(snap.Goals),
			KPIs:        slices.Clone(snap.KPIs),
			Activity:    slices.Clone(snap.Activity),
			Messages:    slices.Clone(snap.Messages),
			Ideas:       slices.Clone(snap.Ideas),
		}
		return true
	})
}

// Revision increases by one per committed update.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rev
}

// Subscribe registers fn for change notifications and returns a cancel func.
// fn runs on the committing goroutine and must not call Update.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) publish(c Change) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

// Snapshot copies every collection, with project counts recomputed.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Snapshot{
		Agents:      slices.Clone(s.state.Agents),
		Tasks:       slices.Clone(s.state.Tasks),
		Projects:    withCounts(s.state.Projects, s.state.Tasks),
		Departments: slices.Clone(s.state.Departments),
		Goals:       slices.Clone(s.state.Goals),
		KPIs:        slices.Clone(s.state.KPIs),
		Activity:    slices.Clone(s.state.Activity),
		Messages:    slices.Clone(s.state.Messages),
		Ideas:       slices.Clone(s.state.Ideas),
	}
}

func (s *Store) Agents() []domain.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.Agents)
}

func (s *Store) Tasks() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.Tasks)
}

func (s *Store) Projects() []domain.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return withCounts(s.state.Projects, s.state.Tasks)
}

func (s *Store) Goals() []domain.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.Goals)
}

func (s *Store) KPIs() []domain.KPI {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.KPIs)
}

func (s *Store) Activity() []domain.ActivityItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.Activity)
}

func (s *Store) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.Messages)
}

func (s *Store) Ideas() []domain.FeatureRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.Ideas)
}

func (s *Store) Task(id string) (domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return find(s.state.Tasks, s.resolveLocked(id))
}

func (s *Store) Agent(id string) (domain.Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return find(s.state.Agents, s.resolveLocked(id))
}

// Project returns the project with its task counts computed from the live
// task collection.
func (s *Store) Project(id string) (domain.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := find(s.state.Projects, s.resolveLocked(id))
	if !ok {
		return p, false
	}
	p.TaskCount, p.CompletedTaskCount = projectCounts(p.ID, s.state.Tasks)
	return p, true
}

func (s *Store) Goal(id string) (domain.Goal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return find(s.state.Goals, s.resolveLocked(id))
}

func (s *Store) Idea(id string) (domain.FeatureRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return find(s.state.Ideas, s.resolveLocked(id))
}

// Children lists tasks whose parent is parentID. Children are discovered by
// scanning, never stored on the parent.
func (s *Store) Children(parentID string) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Task
	for _, t := range s.state.Tasks {
		if t.ParentTaskID != "" && t.ParentTaskID == parentID {
			out = append(out, t)
		}
	}
	return out
}

// Counters recomputes the badge counters from the current collections.
func (s *Store) Counters() domain.Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return counters(&s.state)
}

func counters(st *State) domain.Counters {
	var c domain.Counters
	for _, t := range st.Tasks {
		if t.AssignedToOperator() && t.Status != domain.TaskCompleted {
			c.PendingTasks++
		}
	}
	for _, fr := range st.Ideas {
		if fr.Status == domain.IdeaNew {
			c.NewIdeas++
		}
	}
	return c
}

func withCounts(projects []domain.Project, tasks []domain.Task) []domain.Project {
	out := slices.Clone(projects)
	for i := range out {
		out[i].TaskCount, out[i].CompletedTaskCount = projectCounts(out[i].ID, tasks)
	}
	return out
}

func projectCounts(projectID string, tasks []domain.Task) (total, completed int) {
	for _, t := range tasks {
		if t.ProjectID != projectID {
			continue
		}
		total++
		if t.Status == domain.TaskCompleted {
			completed++
		}
	}
	return total, completed
}

func find[T Keyed](items []T, id string) (T, bool) {
	if i := IndexOf(items, id); i >= 0 {
		return items[i], true
	}
	var zero T
	return zero, false
}
