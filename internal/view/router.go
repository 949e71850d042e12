// Package view tracks which screen is showing and what is open on it. It is
// independent of the entity store: nothing here is persisted or mirrored.
package view

import (
	"fmt"
	"strings"
	"sync"

	"opsdeck/internal/domain"
)

type Screen string

const (
	ScreenDashboard     Screen = "dashboard"
	ScreenAgents        Screen = "agents"
	ScreenAgentDetail   Screen = "agent_detail"
	ScreenTasks         Screen = "tasks"
	ScreenProjects      Screen = "projects"
	ScreenProjectDetail Screen = "project_detail"
	ScreenGoals         Screen = "goals"
	ScreenKPIs          Screen = "kpis"
	ScreenActivity      Screen = "activity"
	ScreenChat          Screen = "chat"
	ScreenIdeas         Screen = "ideas"
)

func (s Screen) Valid() bool {
	switch s {
	case ScreenDashboard, ScreenAgents, ScreenAgentDetail, ScreenTasks, ScreenProjects,
		ScreenProjectDetail, ScreenGoals, ScreenKPIs, ScreenActivity, ScreenChat, ScreenIdeas:
		return true
	}
	return false
}

type Overlay string

const (
	OverlayIdeaCapture Overlay = "idea_capture"
	OverlayQuickTask   Overlay = "quick_task"
)

// Keyboard shortcuts understood by Shortcut.
const (
	KeyIdeaCapture = "ctrl+i"
	KeyQuickTask   = "ctrl+k"
	KeyEscape      = "escape"
)

// DropState is how a kanban column should render during a drag.
type DropState string

const (
	DropIdle   DropState = "idle"
	DropTarget DropState = "target"
	DropSame   DropState = "same"
)

// EditSession points at the one field currently being edited inline.
type EditSession struct {
	EntityID string `json:"entity_id"`
	Field    string `json:"field"`
}

type State struct {
	Screen          Screen       `json:"screen"`
	SelectedProject string       `json:"selected_project,omitempty"`
	SelectedAgent   string       `json:"selected_agent,omitempty"`
	IdeaCapture     bool         `json:"idea_capture"`
	QuickTask       bool         `json:"quick_task"`
	Edit            *EditSession `json:"edit,omitempty"`
	Dragging        string       `json:"dragging,omitempty"`
}

// Router holds view state for one session.
type Router struct {
	mu sync.Mutex
	s  State
}

func New() *Router {
	return &Router{s: State{Screen: ScreenDashboard}}
}

func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.s
	if s.Edit != nil {
		e := *s.Edit
		s.Edit = &e
	}
	return s
}

// Navigate switches screens. Selections are kept so a detail view shows the
// same entity when revisited.
func (r *Router) Navigate(screen Screen) error {
	if !screen.Valid() {
		return fmt.Errorf("unknown screen %q", screen)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.s.Screen = screen
	return nil
}

// OpenProject selects a project and shows its detail view.
func (r *Router) OpenProject(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.s.SelectedProject = id
	r.s.Screen = ScreenProjectDetail
}

// OpenAgent selects an agent and shows its detail view.
func (r *Router) OpenAgent(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.s.SelectedAgent = id
	r.s.Screen = ScreenAgentDetail
}

func (r *Router) SetOverlay(o Overlay, open bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch o {
	case OverlayIdeaCapture:
		r.s.IdeaCapture = open
	case OverlayQuickTask:
		r.s.QuickTask = open
	default:
		return fmt.Errorf("unknown overlay %q", o)
	}
	return nil
}

// Shortcut applies a keyboard shortcut and reports whether it was handled.
// The capture shortcuts toggle their overlay; escape closes open overlays,
// or the edit session when no overlay is open.
func (r *Router) Shortcut(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch strings.ToLower(strings.TrimSpace(key)) {
	case KeyIdeaCapture, "meta+i":
		r.s.IdeaCapture = !r.s.IdeaCapture
	case KeyQuickTask, "meta+k":
		r.s.QuickTask = !r.s.QuickTask
	case KeyEscape, "esc":
		if r.s.IdeaCapture || r.s.QuickTask {
			r.s.IdeaCapture, r.s.QuickTask = false, false
			return true
		}
		if r.s.Edit != nil {
			r.s.Edit = nil
			return true
		}
		return false
	default:
		return false
	}
	return true
}

// BeginEdit opens an inline edit session, replacing any open one.
func (r *Router) BeginEdit(entityID, field string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.s.Edit = &EditSession{EntityID: entityID, Field: field}
}

func (r *Router) EndEdit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.s.Edit = nil
}

// Editing reports whether the given field is the one being edited.
func (r *Router) Editing(entityID, field string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.s.Edit != nil && r.s.Edit.EntityID == entityID && r.s.Edit.Field == field
}

// StartDrag records the dragged task. A drag carries only the task id.
func (r *Router) StartDrag(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.s.Dragging = taskID
}

// EndDrag clears the drag and returns the task that was being dragged.
func (r *Router) EndDrag() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.s.Dragging
	r.s.Dragging = ""
	return id, id != ""
}

// Columns reports the drop state of every kanban column. statusOf looks up
// the dragged task's current status.
func (r *Router) Columns(statusOf func(taskID string) (domain.TaskStatus, bool)) map[domain.TaskStatus]DropState {
	r.mu.Lock()
	dragging := r.s.Dragging
	r.mu.Unlock()

	out := make(map[domain.TaskStatus]DropState, len(domain.TaskStatuses))
	current, ok := domain.TaskStatus(""), false
	if dragging != "" && statusOf != nil {
		current, ok = statusOf(dragging)
	}
	for _, col := range domain.TaskStatuses {
		switch {
		case !ok:
			out[col] = DropIdle
		case col == current:
			out[col] = DropSame
		default:
			out[col] = DropTarget
		}
	}
	return out
}
