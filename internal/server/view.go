package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"opsdeck/internal/domain"
	"opsdeck/internal/view"
)

func registerView(api huma.API, h *handlers) {
	r := h.app.Router
	current := func() *viewOutput { return &viewOutput{Body: r.State()} }

	huma.Register(api, huma.Operation{
		OperationID: "get-view",
		Method:      http.MethodGet,
		Path:        "/view",
		Summary:     "Current view state",
	}, func(ctx context.Context, _ *struct{}) (*viewOutput, error) {
		return current(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "navigate",
		Method:      http.MethodPut,
		Path:        "/view/screen",
		Summary:     "Switch screen",
		Description: "Selections survive navigation. A project or agent id opens its detail view.",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body NavigateRequest `json:"body"`
	}) (*viewOutput, error) {
		switch {
		case input.Body.ProjectID != "":
			r.OpenProject(input.Body.ProjectID)
		case input.Body.AgentID != "":
			r.OpenAgent(input.Body.AgentID)
		default:
			if err := r.Navigate(view.Screen(input.Body.Screen)); err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
			}
		}
		return current(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "shortcut",
		Method:      http.MethodPost,
		Path:        "/view/shortcut",
		Summary:     "Apply a keyboard shortcut",
	}, func(ctx context.Context, input *struct {
		Body ShortcutRequest `json:"body"`
	}) (*struct {
		Body ShortcutResponse `json:"body"`
	}, error) {
		handled := r.Shortcut(input.Body.Key)
		return &struct {
			Body ShortcutResponse `json:"body"`
		}{Body: ShortcutResponse{Handled: handled, State: r.State()}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-overlay",
		Method:      http.MethodPut,
		Path:        "/view/overlays/{name}",
		Summary:     "Open or close an overlay",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Name string         `path:"name" enum:"idea_capture,quick_task"`
		Body OverlayRequest `json:"body"`
	}) (*viewOutput, error) {
		if err := r.SetOverlay(view.Overlay(input.Name), input.Body.Open); err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		return current(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "begin-edit",
		Method:      http.MethodPost,
		Path:        "/view/edit",
		Summary:     "Open the inline edit session",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body EditRequest `json:"body"`
	}) (*viewOutput, error) {
		if input.Body.EntityID == "" || input.Body.Field == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "entity_id and field are required", nil)
		}
		r.BeginEdit(input.Body.EntityID, input.Body.Field)
		return current(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "end-edit",
		Method:      http.MethodDelete,
		Path:        "/view/edit",
		Summary:     "Close the inline edit session",
	}, func(ctx context.Context, _ *struct{}) (*viewOutput, error) {
		r.EndEdit()
		return current(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "start-drag",
		Method:      http.MethodPost,
		Path:        "/view/drag",
		Summary:     "Start dragging a task",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body DragRequest `json:"body"`
	}) (*viewOutput, error) {
		if _, ok := h.app.Store.Task(input.Body.TaskID); !ok {
			return nil, newAPIError(http.StatusNotFound, "not_found", "task not found", map[string]any{"id": input.Body.TaskID})
		}
		r.StartDrag(input.Body.TaskID)
		return current(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "end-drag",
		Method:      http.MethodDelete,
		Path:        "/view/drag",
		Summary:     "Cancel a drag",
	}, func(ctx context.Context, _ *struct{}) (*viewOutput, error) {
		r.EndDrag()
		return current(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-columns",
		Method:      http.MethodGet,
		Path:        "/view/columns",
		Summary:     "Kanban column drop states",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[domain.TaskStatus]view.DropState `json:"body"`
	}, error) {
		cols := r.Columns(func(id string) (domain.TaskStatus, bool) {
			t, ok := h.app.Store.Task(id)
			return t.Status, ok
		})
		return &struct {
			Body map[domain.TaskStatus]view.DropState `json:"body"`
		}{Body: cols}, nil
	})
}
