package store

import "opsdeck/internal/domain"

// Kind names an entity collection.
type Kind string

const (
	KindAgent   Kind = "agent"
	KindTask    Kind = "task"
	KindProject Kind = "project"
	KindGoal    Kind = "goal"
	KindIdea    Kind = "idea"
	KindMessage Kind = "message"
	KindKPI     Kind = "kpi"
)

// RenameID replaces a temporary id with the remote-assigned one. Only id
// fields change: the entity itself and every reference to it keep whatever
// local edits were made in the meantime. Later lookups by tempID resolve to
// realID. Reports whether the entity was still present.
func (s *Store) RenameID(kind Kind, tempID, realID string) bool {
	if tempID == "" || realID == "" || tempID == realID {
		return false
	}
	var found bool
	s.Update(func(st *State) bool {
		s.aliases[tempID] = realID
		found = renameLocked(st, kind, tempID, realID)
		return found
	})
	return found
}

// Resolve follows the alias table so callers holding a temporary id reach
// the reconciled entity. Unknown ids are returned unchanged.
func (s *Store) Resolve(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked(id)
}

// ResolveIn is Resolve for use inside an Update callback, where the store
// lock is already held.
func (s *Store) ResolveIn(id string) string {
	return s.resolveLocked(id)
}

func (s *Store) resolveLocked(id string) string {
	for i := 0; i < 8; i++ {
		next, ok := s.aliases[id]
		if !ok {
			return id
		}
		id = next
	}
	return id
}

func renameLocked(st *State, kind Kind, from, to string) bool {
	switch kind {
	case KindAgent:
		found := Modify(st.Agents, from, func(a *domain.Agent) { a.ID = to })
		for i := range st.Tasks {
			if st.Tasks[i].AssignedTo == from {
				st.Tasks[i].AssignedTo = to
			}
		}
		for i := range st.Projects {
			if st.Projects[i].LeadAgentID == from {
				st.Projects[i].LeadAgentID = to
			}
		}
		for i := range st.Goals {
			if st.Goals[i].OwnerID == from {
				st.Goals[i].OwnerID = to
			}
		}
		return found
	case KindTask:
		found := Modify(st.Tasks, from, func(t *domain.Task) { t.ID = to })
		for i := range st.Tasks {
			if st.Tasks[i].ParentTaskID == from {
				st.Tasks[i].ParentTaskID = to
			}
		}
		return found
	case KindProject:
		found := Modify(st.Projects, from, func(p *domain.Project) { p.ID = to })
		for i := range st.Tasks {
			if st.Tasks[i].ProjectID == from {
				st.Tasks[i].ProjectID = to
			}
		}
		for i := range st.Projects {
			if st.Projects[i].ParentProjectID == from {
				st.Projects[i].ParentProjectID = to
			}
		}
		return found
	case KindGoal:
		return Modify(st.Goals, from, func(g *domain.Goal) { g.ID = to })
	case KindIdea:
		return Modify(st.Ideas, from, func(fr *domain.FeatureRequest) { fr.ID = to })
	case KindMessage:
		return Modify(st.Messages, from, func(m *domain.Message) { m.ID = to })
	}
	return false
}
