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

type IdeaCreateOptions struct {
	Title       string
	Description string
	Screenshot  string
	SourceView  string
	Priority    domain.IdeaPriority
}

// CreateIdea captures a feature request with status new.
func (e *Engine) CreateIdea(ctx context.Context, opts IdeaCreateOptions) (domain.FeatureRequest, error) {
	if err := e.admit(); err != nil {
		return domain.FeatureRequest{}, err
	}
	defer e.leave()
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return domain.FeatureRequest{}, rejected("idea title is required")
	}
	if opts.Priority == "" {
		opts.Priority = domain.IdeaMedium
	}
	if !opts.Priority.Valid() {
		return domain.FeatureRequest{}, rejected("invalid idea priority %q", opts.Priority)
	}
	now := e.timestamp()
	fr := domain.FeatureRequest{
		ID:          e.tempID(),
		Title:       title,
		Description: strings.TrimSpace(opts.Description),
		Screenshot:  opts.Screenshot,
		SourceView:  opts.SourceView,
		Status:      domain.IdeaNew,
		Priority:    opts.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	e.Store.Update(func(st *store.State) bool {
		st.Ideas = store.Prepend(st.Ideas, fr)
		e.Activity.Append(st, events.Created("idea", fr.Title, domain.ActivityDecision))
		return true
	})
	e.create(ctx, store.KindIdea, fr.ID, func(ctx context.Context) (remote.Created, error) {
		return e.Remote.CreateFeatureRequest(ctx, mapper.IdeaToRecord(fr))
	})
	return fr, nil
}

func (e *Engine) UpdateIdea(ctx context.Context, id string, patch domain.IdeaPatch) (domain.FeatureRequest, error) {
	if err := e.admit(); err != nil {
		return domain.FeatureRequest{}, err
	}
	defer e.leave()
	if patch.Title != nil && blank(*patch.Title) {
		return domain.FeatureRequest{}, rejected("idea title is required")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return domain.FeatureRequest{}, rejected("invalid idea status %q", *patch.Status)
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return domain.FeatureRequest{}, rejected("invalid idea priority %q", *patch.Priority)
	}
	fields := patch.Fields()
	var (
		out domain.FeatureRequest
		err error
	)
	e.Store.Update(func(st *store.State) bool {
		id = e.Store.ResolveIn(id)
		i := store.IndexOf(st.Ideas, id)
		if i < 0 {
			err = notFound(store.KindIdea, id)
			return false
		}
		if len(fields) == 0 {
			out = st.Ideas[i]
			return false
		}
		fr := &st.Ideas[i]
		patch.Apply(fr)
		fr.UpdatedAt = e.timestamp()
		out = *fr
		e.Activity.Append(st, events.Updated("idea", fr.Title, fields, domain.ActivityDecision))
		return true
	})
	if err != nil || len(fields) == 0 {
		return out, err
	}
	e.write(ctx, "update_feature_request", store.KindIdea, out.ID, func(ctx context.Context, id string) error {
		return e.Remote.UpdateFeatureRequest(ctx, id, mapper.IdeaPatchToRemote(patch))
	})
	return out, nil
}

func (e *Engine) DeleteIdea(ctx context.Context, id string) error {
	if err := e.admit(); err != nil {
		return err
	}
	defer e.leave()
	var (
		removed domain.FeatureRequest
		err     error
	)
	e.Store.Update(func(st *store.State) bool {
		id = e.Store.ResolveIn(id)
		i := store.IndexOf(st.Ideas, id)
		if i < 0 {
			err = notFound(store.KindIdea, id)
			return false
		}
		removed = st.Ideas[i]
		st.Ideas, _ = store.Remove(st.Ideas, id)
		e.Activity.Append(st, events.Deleted("idea", removed.Title, domain.ActivityDecision))
		return true
	})
	if err != nil {
		return err
	}
	e.write(ctx, "delete_feature_request", store.KindIdea, removed.ID, func(ctx context.Context, id string) error {
		return e.Remote.DeleteFeatureRequest(ctx, id)
	})
	return nil
}
