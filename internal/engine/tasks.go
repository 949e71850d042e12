package engine

import (
	"context"
	"strings"

	"opsdeck/internal/domain"
	"opsdeck/internal/events"
	"opsdeck/internal/mapper"
	"opsdeck/internal/remote"
	"opsdeck/internal/store"
)

// TaskCreateOptions are parameters for creating a task.
type TaskCreateOptions struct {
	Title        string
	Description  string
	AssignedTo   string
	AssignedBy   string
	Priority     domain.TaskPriority
	Deadline     string
	ParentTaskID string
	ProjectID    string
	Tags         []string
}

// CreateTask inserts a pending task under a temporary id at the front of the
// task list. An empty assignee means the operator.
func (e *Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if err := e.admit(); err != nil {
		return domain.Task{}, err
	}
	defer e.leave()
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return domain.Task{}, rejected("task title is required")
	}
	if opts.Priority == "" {
		opts.Priority = domain.PriorityMedium
	}
	if !opts.Priority.Valid() {
		return domain.Task{}, rejected("invalid priority %q", opts.Priority)
	}
	if opts.AssignedTo == "" {
		opts.AssignedTo = domain.OperatorID
	}
	if opts.AssignedBy == "" {
		opts.AssignedBy = domain.OperatorID
	}
	t := domain.Task{
		ID:          e.tempID(),
		Title:       title,
		Description: strings.TrimSpace(opts.Description),
		AssignedBy:  opts.AssignedBy,
		Priority:    opts.Priority,
		Status:      domain.TaskPending,
		Deadline:    opts.Deadline,
		Tags:        append([]string(nil), opts.Tags...),
		CreatedAt:   e.timestamp(),
	}
	e.Store.Update(func(st *store.State) bool {
		t.AssignedTo = e.Store.ResolveIn(opts.AssignedTo)
		t.ParentTaskID = e.Store.ResolveIn(opts.ParentTaskID)
		t.ProjectID = e.Store.ResolveIn(opts.ProjectID)
		t.ProjectCode, t.ProjectName = mapper.ProjectRef(st.Projects, t.ProjectID)
		st.Tasks = store.Prepend(st.Tasks, t)
		e.Activity.Append(st, events.Created("task", t.Title, domain.ActivityTask))
		return true
	})

	created := t
	e.create(ctx, store.KindTask, t.ID, func(ctx context.Context) (remote.Created, error) {
		rec := mapper.TaskToRecord(created)
		rec.ParentTaskID = e.awaitRef(ctx, created.ParentTaskID)
		rec.ProjectID = e.awaitRef(ctx, created.ProjectID)
		if created.AssignedTo != domain.OperatorID {
			if rid, ok := e.awaitID(ctx, created.AssignedTo); ok {
				rec.AssignedTo = rid
			}
		}
		return e.Remote.CreateTask(ctx, rec)
	})
	return t, nil
}

// UpdateTaskStatus assigns status directly. Any status may follow any other;
// this is the path used by drag and drop.
func (e *Engine) UpdateTaskStatus(ctx context.Context, id string, status domain.TaskStatus) (domain.Task, error) {
	if !status.Valid() {
		return domain.Task{}, rejected("invalid status %q", status)
	}
	t, _, err := e.setStatus(ctx, id, func(domain.TaskStatus) (domain.TaskStatus, bool, error) {
		return status, true, nil
	})
	return t, err
}

// AdvanceTask moves a task one step along pending, in_progress, review,
// completed. Completed tasks are rejected.
func (e *Engine) AdvanceTask(ctx context.Context, id string) (domain.Task, error) {
	t, _, err := e.setStatus(ctx, id, func(cur domain.TaskStatus) (domain.TaskStatus, bool, error) {
		next, ok := cur.Next()
		if !ok {
			return "", false, rejected("task %s has no next status", id)
		}
		return next, true, nil
	})
	return t, err
}

// DropTask handles a drop onto a kanban column. Dropping onto the column the
// task is already in changes nothing; moved reports whether a mutation ran.
func (e *Engine) DropTask(ctx context.Context, id string, column domain.TaskStatus) (t domain.Task, moved bool, err error) {
	if !column.Valid() {
		return domain.Task{}, false, rejected("invalid column %q", column)
	}
	return e.setStatus(ctx, id, func(cur domain.TaskStatus) (domain.TaskStatus, bool, error) {
		return column, cur != column, nil
	})
}

func (e *Engine) setStatus(ctx context.Context, id string, decide func(domain.TaskStatus) (domain.TaskStatus, bool, error)) (domain.Task, bool, error) {
	if err := e.admit(); err != nil {
		return domain.Task{}, false, err
	}
	defer e.leave()
	var (
		out     domain.Task
		err     error
		changed bool
	)
	e.Store.Update(func(st *store.State) bool {
		id = e.Store.ResolveIn(id)
		i := store.IndexOf(st.Tasks, id)
		if i < 0 {
			err = notFound(store.KindTask, id)
			return false
		}
		var next domain.TaskStatus
		next, changed, err = decide(st.Tasks[i].Status)
		if err != nil || !changed {
			out = st.Tasks[i]
			return false
		}
		st.Tasks[i].Status = next
		out = st.Tasks[i]
		e.Activity.Append(st, events.Moved(out.Title, next))
		return true
	})
	if err != nil || !changed {
		return out, false, err
	}
	status := mapper.TaskStatusToRemote(out.Status)
	e.write(ctx, "update_task_status", store.KindTask, out.ID, func(ctx context.Context, id string) error {
		return e.Remote.UpdateTaskStatus(ctx, id, status)
	})
	return out, true, nil
}

// UpdateTask merges patch into the task. Changing the project refreshes the
// denormalized project code and name.
func (e *Engine) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	if err := e.admit(); err != nil {
		return domain.Task{}, err
	}
	defer e.leave()
	if patch.Title != nil && blank(*patch.Title) {
		return domain.Task{}, rejected("task title is required")
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return domain.Task{}, rejected("invalid priority %q", *patch.Priority)
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return domain.Task{}, rejected("invalid status %q", *patch.Status)
	}
	fields := patch.Fields()
	var (
		out domain.Task
		err error
	)
	e.Store.Update(func(st *store.State) bool {
		id = e.Store.ResolveIn(id)
		i := store.IndexOf(st.Tasks, id)
		if i < 0 {
			err = notFound(store.KindTask, id)
			return false
		}
		if len(fields) == 0 {
			out = st.Tasks[i]
			return false
		}
		if v, ok := patch.ParentTaskID.Get(); ok && v != "" {
			v = e.Store.ResolveIn(v)
			if v == id {
				err = rejected("task %s cannot be its own parent", id)
				return false
			}
			patch.ParentTaskID = domain.SetTo(v)
		}
		if v, ok := patch.ProjectID.Get(); ok && v != "" {
			patch.ProjectID = domain.SetTo(e.Store.ResolveIn(v))
		}
		if patch.AssignedTo != nil {
			assignee := e.Store.ResolveIn(*patch.AssignedTo)
			patch.AssignedTo = &assignee
		}
		t := &st.Tasks[i]
		patch.Apply(t)
		if patch.ProjectID.Set {
			t.ProjectCode, t.ProjectName = mapper.ProjectRef(st.Projects, t.ProjectID)
		}
		out = *t
		e.Activity.Append(st, events.Updated("task", t.Title, fields, domain.ActivityTask))
		return true
	})
	if err != nil || len(fields) == 0 {
		return out, err
	}
	e.write(ctx, "update_task", store.KindTask, out.ID, func(ctx context.Context, id string) error {
		p := patch
		p.ParentTaskID = e.awaitClearable(ctx, p.ParentTaskID)
		p.ProjectID = e.awaitClearable(ctx, p.ProjectID)
		if p.AssignedTo != nil && *p.AssignedTo != domain.OperatorID {
			if rid, ok := e.awaitID(ctx, *p.AssignedTo); ok {
				p.AssignedTo = &rid
			} else {
				p.AssignedTo = nil
			}
		}
		return e.Remote.UpdateTask(ctx, id, mapper.TaskPatchToRemote(p))
	})
	return out, nil
}

// DeleteTask removes the task. Child tasks are kept and unlinked from it.
func (e *Engine) DeleteTask(ctx context.Context, id string) error {
	if err := e.admit(); err != nil {
		return err
	}
	defer e.leave()
	var (
		removed domain.Task
		err     error
	)
	e.Store.Update(func(st *store.State) bool {
		id = e.Store.ResolveIn(id)
		i := store.IndexOf(st.Tasks, id)
		if i < 0 {
			err = notFound(store.KindTask, id)
			return false
		}
		removed = st.Tasks[i]
		st.Tasks, _ = store.Remove(st.Tasks, id)
		for j := range st.Tasks {
			if st.Tasks[j].ParentTaskID == id {
				st.Tasks[j].ParentTaskID = ""
			}
		}
		e.Activity.Append(st, events.Deleted("task", removed.Title, domain.ActivityTask))
		return true
	})
	if err != nil {
		return err
	}
	e.write(ctx, "delete_task", store.KindTask, removed.ID, func(ctx context.Context, id string) error {
		return e.Remote.DeleteTask(ctx, id)
	})
	return nil
}
