package engine

import (
	"context"
	"strings"
	"time"

	"opsdeck/internal/domain"
	"opsdeck/internal/events"
	"opsdeck/internal/mapper"
	"opsdeck/internal/remote"
	"opsdeck/internal/store"
)

type AgentSpawnOptions struct {
	Name         string
	Role         string
	Emoji        string
	Description  string
	SystemPrompt string
	Tools        []string
}

// SpawnAgent adds an agent in the spawning state. It becomes active once the
// settle delay has passed, whether or not the remote call succeeded.
func (e *Engine) SpawnAgent(ctx context.Context, opts AgentSpawnOptions) (domain.Agent, error) {
	if err := e.admit(); err != nil {
		return domain.Agent{}, err
	}
	defer e.leave()
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return domain.Agent{}, rejected("agent name is required")
	}
	a := domain.Agent{
		ID:           e.tempID(),
		Name:         name,
		Role:         strings.TrimSpace(opts.Role),
		Emoji:        opts.Emoji,
		Status:       domain.AgentSpawning,
		Description:  strings.TrimSpace(opts.Description),
		Uptime:       "0m",
		SystemPrompt: opts.SystemPrompt,
		Tools:        append([]string(nil), opts.Tools...),
	}
	if a.Emoji == "" {
		a.Emoji = "🤖"
	}
	e.Store.Update(func(st *store.State) bool {
		st.Agents = append(st.Agents, a)
		e.Activity.Append(st, events.Entry{Type: domain.ActivitySpawn, Action: "Spawned agent", Detail: a.Name})
		return true
	})

	spawned := a
	e.create(ctx, store.KindAgent, a.ID, func(ctx context.Context) (remote.Created, error) {
		return e.Remote.SpawnAgent(ctx, mapper.AgentToRecord(spawned))
	})
	e.settle(a.ID)
	return a, nil
}

// settle flips a spawning agent to active after the settle delay.
func (e *Engine) settle(id string) {
	delay := e.settleDelay
	e.background(func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-e.done:
			return
		}
		e.Store.Update(func(st *store.State) bool {
			i := store.IndexOf(st.Agents, e.Store.ResolveIn(id))
			if i < 0 || st.Agents[i].Status != domain.AgentSpawning {
				return false
			}
			st.Agents[i].Status = domain.AgentActive
			return true
		})
	})
}

// UpdateAgent edits an agent profile: name, active flag, system prompt and
// tool list.
func (e *Engine) UpdateAgent(ctx context.Context, id string, patch domain.AgentPatch) (domain.Agent, error) {
	if err := e.admit(); err != nil {
		return domain.Agent{}, err
	}
	defer e.leave()
	if patch.Name != nil && blank(*patch.Name) {
		return domain.Agent{}, rejected("agent name is required")
	}
	fields := patch.Fields()
	var (
		out domain.Agent
		err error
	)
	e.Store.Update(func(st *store.State) bool {
		id = e.Store.ResolveIn(id)
		i := store.IndexOf(st.Agents, id)
		if i < 0 {
			err = notFound(store.KindAgent, id)
			return false
		}
		if len(fields) == 0 {
			out = st.Agents[i]
			return false
		}
		a := &st.Agents[i]
		patch.Apply(a)
		out = *a
		if patch.Name != nil {
			for j := range st.Goals {
				if st.Goals[j].OwnerID == id {
					st.Goals[j].OwnerName = a.Name
				}
			}
		}
		e.Activity.Append(st, events.Updated("agent", a.Name, fields, domain.ActivityDecision))
		return true
	})
	if err != nil || len(fields) == 0 {
		return out, err
	}
	e.write(ctx, "update_agent", store.KindAgent, out.ID, func(ctx context.Context, id string) error {
		return e.Remote.UpdateAgent(ctx, id, mapper.AgentPatchToRemote(patch))
	})
	return out, nil
}
