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

type GoalCreateOptions struct {
	Title       string
	Description string
	Progress    int
	Status      domain.GoalStatus
	OwnerID     string
	TargetDate  string
}

func (e *Engine) CreateGoal(ctx context.Context, opts GoalCreateOptions) (domain.Goal, error) {
	if err := e.admit(); err != nil {
		return domain.Goal{}, err
	}
	defer e.leave()
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return domain.Goal{}, rejected("goal title is required")
	}
	if opts.Status == "" {
		opts.Status = domain.GoalOnTrack
	}
	if !opts.Status.Valid() {
		return domain.Goal{}, rejected("invalid goal status %q", opts.Status)
	}
	g := domain.Goal{
		ID:          e.tempID(),
		Title:       title,
		Description: strings.TrimSpace(opts.Description),
		Progress:    domain.ClampProgress(opts.Progress),
		Status:      opts.Status,
		TargetDate:  opts.TargetDate,
	}
	e.Store.Update(func(st *store.State) bool {
		g.OwnerID = e.Store.ResolveIn(opts.OwnerID)
		g.OwnerName, g.OwnerEmoji = mapper.OwnerRef(st.Agents, g.OwnerID)
		st.Goals = append(st.Goals, g)
		e.Activity.Append(st, events.Created("goal", g.Title, domain.ActivityDecision))
		return true
	})

	created := g
	e.create(ctx, store.KindGoal, g.ID, func(ctx context.Context) (remote.Created, error) {
		rec := mapper.GoalToRecord(created)
		if created.OwnerID != domain.OperatorID {
			rec.OwnerID = e.awaitRef(ctx, created.OwnerID)
		}
		return e.Remote.CreateGoal(ctx, rec)
	})
	return g, nil
}

// UpdateGoal merges patch into the goal. Progress is clamped to 0..100.
func (e *Engine) UpdateGoal(ctx context.Context, id string, patch domain.GoalPatch) (domain.Goal, error) {
	if err := e.admit(); err != nil {
		return domain.Goal{}, err
	}
	defer e.leave()
	if patch.Title != nil && blank(*patch.Title) {
		return domain.Goal{}, rejected("goal title is required")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return domain.Goal{}, rejected("invalid goal status %q", *patch.Status)
	}
	if patch.Progress != nil {
		v := domain.ClampProgress(*patch.Progress)
		patch.Progress = &v
	}
	fields := patch.Fields()
	var (
		out domain.Goal
		err error
	)
	e.Store.Update(func(st *store.State) bool {
		id = e.Store.ResolveIn(id)
		i := store.IndexOf(st.Goals, id)
		if i < 0 {
			err = notFound(store.KindGoal, id)
			return false
		}
		if len(fields) == 0 {
			out = st.Goals[i]
			return false
		}
		if v, ok := patch.OwnerID.Get(); ok && v != "" {
			patch.OwnerID = domain.SetTo(e.Store.ResolveIn(v))
		}
		g := &st.Goals[i]
		patch.Apply(g)
		if patch.OwnerID.Set {
			g.OwnerName, g.OwnerEmoji = mapper.OwnerRef(st.Agents, g.OwnerID)
		}
		out = *g
		e.Activity.Append(st, events.Updated("goal", g.Title, fields, domain.ActivityDecision))
		return true
	})
	if err != nil || len(fields) == 0 {
		return out, err
	}
	e.write(ctx, "update_goal", store.KindGoal, out.ID, func(ctx context.Context, id string) error {
		p := patch
		if v, ok := p.OwnerID.Get(); ok && v != domain.OperatorID {
			p.OwnerID = e.awaitClearable(ctx, p.OwnerID)
		}
		return e.Remote.UpdateGoal(ctx, id, mapper.GoalPatchToRemote(p))
	})
	return out, nil
}

func (e *Engine) DeleteGoal(ctx context.Context, id string) error {
	if err := e.admit(); err != nil {
		return err
	}
	defer e.leave()
	var (
		removed domain.Goal
		err     error
	)
	e.Store.Update(func(st *store.State) bool {
		id = e.Store.ResolveIn(id)
		i := store.IndexOf(st.Goals, id)
		if i < 0 {
			err = notFound(store.KindGoal, id)
			return false
		}
		removed = st.Goals[i]
		st.Goals, _ = store.Remove(st.Goals, id)
		e.Activity.Append(st, events.Deleted("goal", removed.Title, domain.ActivityDecision))
		return true
	})
	if err != nil {
		return err
	}
	e.write(ctx, "delete_goal", store.KindGoal, removed.ID, func(ctx context.Context, id string) error {
		return e.Remote.DeleteGoal(ctx, id)
	})
	return nil
}
