package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"opsdeck/internal/domain"
	"opsdeck/internal/engine"
)

var mutationErrors = []int{
	http.StatusBadRequest,
	http.StatusNotFound,
	http.StatusInternalServerError,
	http.StatusServiceUnavailable,
}

type idPath struct {
	ID string `path:"id"`
}

func registerTasks(api huma.API, h *handlers) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, input *struct {
		Status    string `query:"status" enum:"pending,in_progress,review,completed"`
		ProjectID string `query:"project_id"`
		ParentID  string `query:"parent_id"`
	}) (*tasksOutput, error) {
		var items []domain.Task
		if input.ParentID != "" {
			items = h.app.Store.Children(input.ParentID)
		} else {
			items = h.app.Store.Tasks()
		}
		out := make([]domain.Task, 0, len(items))
		projectID := h.app.Store.Resolve(input.ProjectID)
		for _, t := range items {
			if input.Status != "" && string(t.Status) != input.Status {
				continue
			}
			if input.ProjectID != "" && t.ProjectID != projectID {
				continue
			}
			out = append(out, t)
		}
		return &tasksOutput{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*taskOutput, error) {
		t, ok := h.app.Store.Task(input.ID)
		if !ok {
			return nil, newAPIError(http.StatusNotFound, "not_found", "task not found", map[string]any{"id": input.ID})
		}
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*taskOutput, error) {
		t, err := h.engine().CreateTask(ctx, engine.TaskCreateOptions{
			Title:        input.Body.Title,
			Description:  input.Body.Description,
			AssignedTo:   input.Body.AssignedTo,
			Priority:     domain.TaskPriority(input.Body.Priority),
			Deadline:     input.Body.Deadline,
			ParentTaskID: input.Body.ParentTaskID,
			ProjectID:    input.Body.ProjectID,
			Tags:         input.Body.Tags,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}",
		Summary:     "Update task fields",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body UpdateTaskRequest `json:"body"`
	}) (*taskOutput, error) {
		t, err := h.engine().UpdateTask(ctx, input.ID, input.Body.patch(rawBodyMap(ctx)))
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-task-status",
		Method:      http.MethodPut,
		Path:        "/tasks/{id}/status",
		Summary:     "Set task status",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body TaskStatusRequest `json:"body"`
	}) (*taskOutput, error) {
		t, err := h.engine().UpdateTaskStatus(ctx, input.ID, domain.TaskStatus(input.Body.Status))
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "advance-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/advance",
		Summary:     "Move task one step forward",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *idPath) (*taskOutput, error) {
		t, err := h.engine().AdvanceTask(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &taskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "drop-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/drop",
		Summary:     "Drop task onto a kanban column",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body TaskStatusRequest `json:"body"`
	}) (*struct {
		Body DropResponse `json:"body"`
	}, error) {
		t, moved, err := h.engine().DropTask(ctx, input.ID, domain.TaskStatus(input.Body.Status))
		if err != nil {
			return nil, handleError(err)
		}
		h.app.Router.EndDrag()
		return &struct {
			Body DropResponse `json:"body"`
		}{Body: DropResponse{Task: t, Moved: moved}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{id}",
		Summary:       "Delete task",
		DefaultStatus: http.StatusNoContent,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := h.engine().DeleteTask(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

func registerAgents(api huma.API, h *handlers) {
	huma.Register(api, huma.Operation{
		OperationID: "list-agents",
		Method:      http.MethodGet,
		Path:        "/agents",
		Summary:     "List agents",
	}, func(ctx context.Context, _ *struct{}) (*agentsOutput, error) {
		return &agentsOutput{Body: h.app.Store.Agents()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "spawn-agent",
		Method:        http.MethodPost,
		Path:          "/agents",
		Summary:       "Spawn agent",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body SpawnAgentRequest `json:"body"`
	}) (*agentOutput, error) {
		a, err := h.engine().SpawnAgent(ctx, engine.AgentSpawnOptions{
			Name:         input.Body.Name,
			Role:         input.Body.Role,
			Emoji:        input.Body.Emoji,
			Description:  input.Body.Description,
			SystemPrompt: input.Body.SystemPrompt,
			Tools:        input.Body.Tools,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &agentOutput{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-agent",
		Method:      http.MethodPatch,
		Path:        "/agents/{id}",
		Summary:     "Update agent profile",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ID   string             `path:"id"`
		Body UpdateAgentRequest `json:"body"`
	}) (*agentOutput, error) {
		a, err := h.engine().UpdateAgent(ctx, input.ID, input.Body.patch())
		if err != nil {
			return nil, handleError(err)
		}
		return &agentOutput{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "issue-directive",
		Method:        http.MethodPost,
		Path:          "/agents/{id}/directives",
		Summary:       "Issue a directive to an agent",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		ID   string           `path:"id"`
		Body DirectiveRequest `json:"body"`
	}) (*messageOutput, error) {
		m, err := h.engine().IssueDirective(ctx, input.ID, input.Body.Content)
		if err != nil {
			return nil, handleError(err)
		}
		return &messageOutput{Body: m}, nil
	})
}

func registerProjects(api huma.API, h *handlers) {
	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects with live task counts",
	}, func(ctx context.Context, _ *struct{}) (*projectsOutput, error) {
		return &projectsOutput{Body: h.app.Store.Projects()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{id}",
		Summary:     "Get project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*projectOutput, error) {
		p, ok := h.app.Store.Project(input.ID)
		if !ok {
			return nil, newAPIError(http.StatusNotFound, "not_found", "project not found", map[string]any{"id": input.ID})
		}
		return &projectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*projectOutput, error) {
		p, err := h.engine().CreateProject(ctx, engine.ProjectCreateOptions{
			Title:           input.Body.Title,
			Description:     input.Body.Description,
			Status:          domain.ProjectStatus(input.Body.Status),
			DepartmentID:    input.Body.DepartmentID,
			LeadAgentID:     input.Body.LeadAgentID,
			TargetDate:      input.Body.TargetDate,
			Notes:           input.Body.Notes,
			ParentProjectID: input.Body.ParentProjectID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &projectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPatch,
		Path:        "/projects/{id}",
		Summary:     "Update project",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ID   string               `path:"id"`
		Body UpdateProjectRequest `json:"body"`
	}) (*projectOutput, error) {
		p, err := h.engine().UpdateProject(ctx, input.ID, input.Body.patch(rawBodyMap(ctx)))
		if err != nil {
			return nil, handleError(err)
		}
		return &projectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-project",
		Method:        http.MethodDelete,
		Path:          "/projects/{id}",
		Summary:       "Delete project and unlink its tasks",
		DefaultStatus: http.StatusNoContent,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := h.engine().DeleteProject(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

func registerGoals(api huma.API, h *handlers) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-goal",
		Method:        http.MethodPost,
		Path:          "/goals",
		Summary:       "Create goal",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateGoalRequest `json:"body"`
	}) (*goalOutput, error) {
		g, err := h.engine().CreateGoal(ctx, engine.GoalCreateOptions{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Progress:    input.Body.Progress,
			Status:      domain.GoalStatus(input.Body.Status),
			OwnerID:     input.Body.OwnerID,
			TargetDate:  input.Body.TargetDate,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &goalOutput{Body: g}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-goal",
		Method:      http.MethodPatch,
		Path:        "/goals/{id}",
		Summary:     "Update goal",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body UpdateGoalRequest `json:"body"`
	}) (*goalOutput, error) {
		g, err := h.engine().UpdateGoal(ctx, input.ID, input.Body.patch(rawBodyMap(ctx)))
		if err != nil {
			return nil, handleError(err)
		}
		return &goalOutput{Body: g}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-goal",
		Method:        http.MethodDelete,
		Path:          "/goals/{id}",
		Summary:       "Delete goal",
		DefaultStatus: http.StatusNoContent,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := h.engine().DeleteGoal(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

func registerIdeas(api huma.API, h *handlers) {
	huma.Register(api, huma.Operation{
		OperationID: "list-ideas",
		Method:      http.MethodGet,
		Path:        "/ideas",
		Summary:     "List feature requests",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status" enum:"new,acknowledged,in_progress,done,dismissed"`
	}) (*ideasOutput, error) {
		items := h.app.Store.Ideas()
		out := make([]domain.FeatureRequest, 0, len(items))
		for _, it := range items {
			if input.Status == "" || string(it.Status) == input.Status {
				out = append(out, it)
			}
		}
		return &ideasOutput{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-idea",
		Method:        http.MethodPost,
		Path:          "/ideas",
		Summary:       "Capture a feature request",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateIdeaRequest `json:"body"`
	}) (*ideaOutput, error) {
		it, err := h.engine().CreateIdea(ctx, engine.IdeaCreateOptions{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Screenshot:  input.Body.Screenshot,
			SourceView:  input.Body.SourceView,
			Priority:    domain.IdeaPriority(input.Body.Priority),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &ideaOutput{Body: it}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-idea",
		Method:      http.MethodPatch,
		Path:        "/ideas/{id}",
		Summary:     "Update feature request",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body UpdateIdeaRequest `json:"body"`
	}) (*ideaOutput, error) {
		it, err := h.engine().UpdateIdea(ctx, input.ID, input.Body.patch(rawBodyMap(ctx)))
		if err != nil {
			return nil, handleError(err)
		}
		return &ideaOutput{Body: it}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-idea",
		Method:        http.MethodDelete,
		Path:          "/ideas/{id}",
		Summary:       "Delete feature request",
		DefaultStatus: http.StatusNoContent,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if err := h.engine().DeleteIdea(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

func registerKPIs(api huma.API, h *handlers) {
	huma.Register(api, huma.Operation{
		OperationID: "update-kpi",
		Method:      http.MethodPut,
		Path:        "/kpis/{id}",
		Summary:     "Overwrite KPI value",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ID   string           `path:"id"`
		Body UpdateKPIRequest `json:"body"`
	}) (*kpiOutput, error) {
		k, err := h.engine().UpdateKPI(ctx, input.ID, input.Body.Value)
		if err != nil {
			return nil, handleError(err)
		}
		return &kpiOutput{Body: k}, nil
	})
}

func registerChat(api huma.API, h *handlers) {
	huma.Register(api, huma.Operation{
		OperationID:   "send-message",
		Method:        http.MethodPost,
		Path:          "/chat",
		Summary:       "Send a chat message",
		Description:   "The reply is appended to the message list asynchronously; watch /events.",
		DefaultStatus: http.StatusAccepted,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body ChatRequest `json:"body"`
	}) (*messageOutput, error) {
		m, err := h.engine().SendMessage(ctx, input.Body.Content)
		if err != nil {
			return nil, handleError(err)
		}
		return &messageOutput{Body: m}, nil
	})
}
