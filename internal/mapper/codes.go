package mapper

import (
	"regexp"
	"strings"

	"opsdeck/internal/domain"
)

var (
	shortCodePattern = regexp.MustCompile(`PR\.(\w+)`)
	titlePrefix      = regexp.MustCompile(`^\s*PR\.\w+\s*\|\s*`)
)

// ShortCode derives a project code from a "PR.<CODE> | <Name>" title, falling
// back to the first four characters uppercased.
func ShortCode(title string) string {
	if m := shortCodePattern.FindStringSubmatch(title); m != nil {
		return m[1]
	}
	// Uppercased on purpose: "Untitled Initiative" yields "UNTI", matching
	// the codes parsed from PR.<CODE> titles.
	r := []rune(title)
	if len(r) > 4 {
		r = r[:4]
	}
	return strings.ToUpper(string(r))
}

// DisplayTitle strips the "PR.<CODE> |" prefix from a project title.
func DisplayTitle(title string) string {
	return titlePrefix.ReplaceAllString(title, "")
}

// PriorityFromRemote translates the remote 1..5 scale; anything else is medium.
func PriorityFromRemote(code *int) domain.TaskPriority {
	if code == nil {
		return domain.PriorityMedium
	}
	switch *code {
	case 1:
		return domain.PriorityCritical
	case 2:
		return domain.PriorityHigh
	case 3:
		return domain.PriorityMedium
	case 4, 5:
		return domain.PriorityLow
	}
	return domain.PriorityMedium
}

func PriorityToRemote(p domain.TaskPriority) int {
	switch p {
	case domain.PriorityCritical:
		return 1
	case domain.PriorityHigh:
		return 2
	case domain.PriorityLow:
		return 4
	}
	return 3
}

// TaskStatusFromRemote translates remote status tokens; unknown tokens map to pending.
func TaskStatusFromRemote(token string) domain.TaskStatus {
	switch token {
	case "todo":
		return domain.TaskPending
	case "in_progress":
		return domain.TaskInProgress
	case "done":
		return domain.TaskCompleted
	case "failed":
		return domain.TaskReview
	}
	return domain.TaskPending
}

// TaskStatusToRemote is lossy: review has no remote token and is written as
// in_progress.
func TaskStatusToRemote(s domain.TaskStatus) string {
	switch s {
	case domain.TaskInProgress, domain.TaskReview:
		return "in_progress"
	case domain.TaskCompleted:
		return "done"
	}
	return "todo"
}

func agentStatus(token string) domain.AgentStatus {
	s := domain.AgentStatus(token)
	if s.Valid() {
		return s
	}
	return domain.AgentIdle
}

func projectStatus(token string) domain.ProjectStatus {
	s := domain.ProjectStatus(token)
	if s.Valid() {
		return s
	}
	return domain.ProjectActive
}

func goalStatus(token string) domain.GoalStatus {
	s := domain.GoalStatus(strings.ReplaceAll(token, "_", "-"))
	if s.Valid() {
		return s
	}
	return domain.GoalOnTrack
}

func activityType(token string) domain.ActivityType {
	t := domain.ActivityType(token)
	if t.Valid() {
		return t
	}
	return domain.ActivityTask
}

func messageType(token string) domain.MessageType {
	t := domain.MessageType(token)
	if t.Valid() {
		return t
	}
	return domain.MessageChat
}

func ideaStatus(token string) domain.IdeaStatus {
	s := domain.IdeaStatus(token)
	if s.Valid() {
		return s
	}
	return domain.IdeaNew
}

func ideaPriority(token string) domain.IdeaPriority {
	p := domain.IdeaPriority(token)
	if p.Valid() {
		return p
	}
	return domain.IdeaMedium
}

func trend(token string) domain.KPITrend {
	switch domain.KPITrend(token) {
	case domain.TrendUp, domain.TrendDown:
		return domain.KPITrend(token)
	}
	return domain.TrendStable
}

func sender(token string) domain.Sender {
	switch token {
	case "operator", "user", domain.OperatorID:
		return domain.SenderOperator
	}
	return domain.SenderAgent
}
