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

type ProjectCreateOptions struct {
	Title           string
	Description     string
	Status          domain.ProjectStatus
	DepartmentID    string
	LeadAgentID     string
	TargetDate      string
	Notes           string
	ParentProjectID string
}

func (e *Engine) CreateProject(ctx context.Context, opts ProjectCreateOptions) (domain.Project, error) {
	if err := e.admit(); err != nil {
		return domain.Project{}, err
	}
	defer e.leave()
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return domain.Project{}, rejected("project title is required")
	}
	if opts.Status == "" {
		opts.Status = domain.ProjectActive
	}
	if !opts.Status.Valid() {
		return domain.Project{}, rejected("invalid project status %q", opts.Status)
	}
	p := domain.Project{
		ID:           e.tempID(),
		Title:        title,
		Code:         mapper.ShortCode(title),
		Description:  strings.TrimSpace(opts.Description),
		Status:       opts.Status,
		DepartmentID: opts.DepartmentID,
		TargetDate:   opts.TargetDate,
		Notes:        opts.Notes,
		CreatedAt:    e.timestamp(),
	}
	e.Store.Update(func(st *store.State) bool {
		p.LeadAgentID = e.Store.ResolveIn(opts.LeadAgentID)
		p.ParentProjectID = e.Store.ResolveIn(opts.ParentProjectID)
		p.DepartmentName = mapper.DepartmentName(st.Departments, p.DepartmentID)
		st.Projects = store.Prepend(st.Projects, p)
		e.Activity.Append(st, events.Created("project", mapper.DisplayTitle(p.Title), domain.ActivityDecision))
		return true
	})

	created := p
	e.create(ctx, store.KindProject, p.ID, func(ctx context.Context) (remote.Created, error) {
		rec := mapper.ProjectToRecord(created)
		rec.LeadAgentID = e.awaitRef(ctx, created.LeadAgentID)
		rec.ParentProjectID = e.awaitRef(ctx, created.ParentProjectID)
		return e.Remote.CreateProject(ctx, rec)
	})
	return p, nil
}

// UpdateProject merges patch into the project. A title change re-derives the
// short code and refreshes the denormalized fields on the project's tasks.
func (e *Engine) UpdateProject(ctx context.Context, id string, patch domain.ProjectPatch) (domain.Project, error) {
	if err := e.admit(); err != nil {
		return domain.Project{}, err
	}
	defer e.leave()
	if patch.Title != nil && blank(*patch.Title) {
		return domain.Project{}, rejected("project title is required")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return domain.Project{}, rejected("invalid project status %q", *patch.Status)
	}
	fields := patch.Fields()
	var (
		out domain.Project
		err error
	)
	e.Store.Update(func(st *store.State) bool {
		id = e.Store.ResolveIn(id)
		i := store.IndexOf(st.Projects, id)
		if i < 0 {
			err = notFound(store.KindProject, id)
			return false
		}
		if len(fields) == 0 {
			out = st.Projects[i]
			return false
		}
		if v, ok := patch.ParentProjectID.Get(); ok && v != "" {
			v = e.Store.ResolveIn(v)
			if v == id {
				err = rejected("project %s cannot be its own parent", id)
				return false
			}
			patch.ParentProjectID = domain.SetTo(v)
		}
		if v, ok := patch.LeadAgentID.Get(); ok && v != "" {
			patch.LeadAgentID = domain.SetTo(e.Store.ResolveIn(v))
		}
		p := &st.Projects[i]
		patch.Apply(p)
		if patch.Title != nil {
			p.Code = mapper.ShortCode(p.Title)
			for j := range st.Tasks {
				if st.Tasks[j].ProjectID == id {
					st.Tasks[j].ProjectCode = p.Code
					st.Tasks[j].ProjectName = mapper.DisplayTitle(p.Title)
				}
			}
		}
		if patch.DepartmentID.Set {
			p.DepartmentName = mapper.DepartmentName(st.Departments, p.DepartmentID)
		}
		out = *p
		e.Activity.Append(st, events.Updated("project", mapper.DisplayTitle(p.Title), fields, domain.ActivityDecision))
		return true
	})
	if err != nil || len(fields) == 0 {
		return out, err
	}
	e.write(ctx, "update_project", store.KindProject, out.ID, func(ctx context.Context, id string) error {
		p := patch
		p.LeadAgentID = e.awaitClearable(ctx, p.LeadAgentID)
		p.ParentProjectID = e.awaitClearable(ctx, p.ParentProjectID)
		return e.Remote.UpdateProject(ctx, id, mapper.ProjectPatchToRemote(p))
	})
	return out, nil
}

// DeleteProject removes the project and unlinks its tasks and child
// projects. Nothing else is deleted.
func (e *Engine) DeleteProject(ctx context.Context, id string) error {
	if err := e.admit(); err != nil {
		return err
	}
	defer e.leave()
	var (
		removed domain.Project
		err     error
	)
	e.Store.Update(func(st *store.State) bool {
		id = e.Store.ResolveIn(id)
		i := store.IndexOf(st.Projects, id)
		if i < 0 {
			err = notFound(store.KindProject, id)
			return false
		}
		removed = st.Projects[i]
		st.Projects, _ = store.Remove(st.Projects, id)
		for j := range st.Tasks {
			if st.Tasks[j].ProjectID == id {
				st.Tasks[j].ProjectID = ""
				st.Tasks[j].ProjectCode = ""
				st.Tasks[j].ProjectName = ""
			}
		}
		for j := range st.Projects {
			if st.Projects[j].ParentProjectID == id {
				st.Projects[j].ParentProjectID = ""
			}
		}
		e.Activity.Append(st, events.Deleted("project", mapper.DisplayTitle(removed.Title), domain.ActivityDecision))
		return true
	})
	if err != nil {
		return err
	}
	e.write(ctx, "delete_project", store.KindProject, removed.ID, func(ctx context.Context, id string) error {
		return e.Remote.DeleteProject(ctx, id)
	})
	return nil
}
