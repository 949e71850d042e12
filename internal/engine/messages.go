package engine

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"opsdeck/internal/domain"
	"opsdeck/internal/events"
	"opsdeck/internal/mock"
	"opsdeck/internal/remote"
	"opsdeck/internal/store"
)

// UpdateKPI overwrites a KPI display value.
func (e *Engine) UpdateKPI(ctx context.Context, id, value string) (domain.KPI, error) {
	if err := e.admit(); err != nil {
		return domain.KPI{}, err
	}
	defer e.leave()
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.KPI{}, rejected("kpi value is required")
	}
	var (
		out domain.KPI
		err error
	)
	e.Store.Update(func(st *store.State) bool {
		i := store.IndexOf(st.KPIs, id)
		if i < 0 {
			err = notFound(store.KindKPI, id)
			return false
		}
		st.KPIs[i].Value = value
		out = st.KPIs[i]
		e.Activity.Append(st, events.Updated("KPI", out.Label, []string{"value"}, domain.ActivityReport))
		return true
	})
	if err != nil {
		return out, err
	}
	e.write(ctx, "update_kpi", store.KindKPI, id, func(ctx context.Context, id string) error {
		return e.Remote.UpdateKPI(ctx, id, value)
	})
	return out, nil
}

// SendMessage appends the operator's chat turn and requests a reply in the
// background. The thread id returned by the first reply is attached to every
// later turn; turns are sent one at a time so none goes out before the
// thread is known. Offline sessions get a canned reply.
func (e *Engine) SendMessage(ctx context.Context, content string) (domain.Message, error) {
	if err := e.admit(); err != nil {
		return domain.Message{}, err
	}
	defer e.leave()
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Message{}, rejected("message content is required")
	}
	msg := domain.Message{
		ID:         e.tempID(),
		Sender:     domain.SenderOperator,
		SenderName: domain.OperatorName,
		Content:    content,
		Timestamp:  domain.JustNow,
		Type:       domain.MessageChat,
	}
	e.Store.Update(func(st *store.State) bool {
		st.Messages = append(st.Messages, msg)
		return true
	})

	if e.Offline {
		e.appendReply(mock.OfflineReply(content))
		return msg, nil
	}
	bctx := context.WithoutCancel(ctx)
	e.background(func() {
		e.sendMu.Lock()
		defer e.sendMu.Unlock()
		threadID := e.ThreadID()
		reply, err := e.Remote.SendMessage(bctx, content, threadID)
		if err != nil {
			e.Log.Warn("chat send failed", zap.String("thread_id", threadID), zap.Error(err))
			return
		}
		if reply.ThreadID != "" {
			e.setThreadID(reply.ThreadID)
		}
		e.appendReply(reply.ReplyText)
	})
	return msg, nil
}

func (e *Engine) appendReply(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	reply := domain.Message{
		ID:         e.tempID(),
		Sender:     domain.SenderAgent,
		SenderName: mock.AssistantName,
		Content:    text,
		Timestamp:  domain.JustNow,
		Type:       domain.MessageChat,
	}
	e.Store.Update(func(st *store.State) bool {
		st.Messages = append(st.Messages, reply)
		return true
	})
}

// IssueDirective sends an instruction to one agent. It shows up in the chat
// as a directive and in the activity feed.
func (e *Engine) IssueDirective(ctx context.Context, agentID, content string) (domain.Message, error) {
	if err := e.admit(); err != nil {
		return domain.Message{}, err
	}
	defer e.leave()
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Message{}, rejected("directive content is required")
	}
	msg := domain.Message{
		ID:         e.tempID(),
		Sender:     domain.SenderOperator,
		SenderName: domain.OperatorName,
		Content:    content,
		Timestamp:  domain.JustNow,
		Type:       domain.MessageDirective,
	}
	var err error
	e.Store.Update(func(st *store.State) bool {
		agentID = e.Store.ResolveIn(agentID)
		i := store.IndexOf(st.Agents, agentID)
		if i < 0 {
			err = notFound(store.KindAgent, agentID)
			return false
		}
		st.Messages = append(st.Messages, msg)
		e.Activity.Append(st, events.Entry{
			Type:   domain.ActivityDecision,
			Action: "Issued directive",
			Detail: st.Agents[i].Name + ": " + content,
		})
		return true
	})
	if err != nil {
		return domain.Message{}, err
	}
	e.create(ctx, store.KindMessage, msg.ID, func(ctx context.Context) (remote.Created, error) {
		rid, ok := e.awaitID(ctx, agentID)
		if !ok {
			return remote.Created{}, notFound(store.KindAgent, agentID)
		}
		return e.Remote.CreateDirective(ctx, remote.DirectiveRecord{AgentID: rid, Content: content, IssuedBy: domain.OperatorID})
	})
	return msg, nil
}
