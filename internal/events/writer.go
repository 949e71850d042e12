// Package events synthesizes the activity feed entries that accompany every
// local mutation.
package events

import (
	"strings"

	"github.com/google/uuid"

	"opsdeck/internal/domain"
	"opsdeck/internal/store"
)

// Writer prepends activity entries to the store. The feed is never
// trimmed. Append must be called from
// inside a store.Update callback so the entry commits together with the
// mutation it describes.
type Writer struct {
	ActorName  string
	ActorEmoji string
	NewID      func() string
}

// Entry describes one mutation in human-readable form.
type Entry struct {
	Type   domain.ActivityType
	Action string
	Detail string
}

func (w Writer) Append(st *store.State, e Entry) domain.ActivityItem {
	if w.NewID == nil {
		w.NewID = uuid.NewString
	}
	actor, emoji := w.ActorName, w.ActorEmoji
	if actor == "" {
		actor, emoji = domain.OperatorName, domain.OperatorEmoji
	}
	if e.Type == "" {
		e.Type = domain.ActivityTask
	}
	item := domain.ActivityItem{
		ID:         "act-" + w.NewID(),
		AgentName:  actor,
		AgentEmoji: emoji,
		Action:     e.Action,
		Detail:     e.Detail,
		Timestamp:  domain.JustNow,
		Type:       e.Type,
	}
	st.Activity = store.Prepend(st.Activity, item)
	return item
}

// Created is the entry for a new entity, e.g. "Created task" / "Draft Q1 report".
func Created(kind, title string, typ domain.ActivityType) Entry {
	return Entry{Type: typ, Action: "Created " + kind, Detail: title}
}

// Updated is the entry for a field edit. The detail names the entity and the
// changed fields, comma-joined.
func Updated(kind, title string, fields []string, typ domain.ActivityType) Entry {
	detail := title
	if len(fields) > 0 {
		detail = title + ": " + strings.Join(fields, ", ")
	}
	return Entry{Type: typ, Action: "Updated " + kind, Detail: detail}
}

func Deleted(kind, title string, typ domain.ActivityType) Entry {
	return Entry{Type: typ, Action: "Deleted " + kind, Detail: title}
}

// Moved is the entry for a task status change.
func Moved(title string, to domain.TaskStatus) Entry {
	return Entry{Type: domain.ActivityTask, Action: "Moved task to " + StatusLabel(to), Detail: title}
}

// StatusLabel renders a task status for humans.
func StatusLabel(s domain.TaskStatus) string {
	switch s {
	case domain.TaskPending:
		return "Pending"
	case domain.TaskInProgress:
		return "In Progress"
	case domain.TaskReview:
		return "Review"
	case domain.TaskCompleted:
		return "Completed"
	}
	return string(s)
}
