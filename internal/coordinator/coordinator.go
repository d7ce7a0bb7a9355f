// Package coordinator owns the chat-session lifecycle: which session is
// active, and delivering each mode's system prompt to the shared upstream
// conversation exactly once per mode change.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/models"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/modes"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/store"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/upstream"
)

// State is the coordinator's view of one session.
type State int

const (
	Inactive State = iota
	ActiveNoPromptSent
	ActiveReady
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case ActiveNoPromptSent:
		return "active_no_prompt_sent"
	case ActiveReady:
		return "active_ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Coordinator serializes every operation that moves the active pointer or
// talks to the conversation. That lock is a one-slot channel so waiting for
// it honors the caller's context. Readers only snapshot the pointer under mu
// and never wait on upstream I/O.
type Coordinator struct {
	sessions *store.SessionStore
	messages *store.MessageStore
	modes    *modes.Registry
	conv     upstream.Conversation
	logger   *slog.Logger

	sem chan struct{}

	mu     sync.Mutex
	active string // "" when no session is active; written with sem held
}

func New(
	sessions *store.SessionStore,
	messages *store.MessageStore,
	registry *modes.Registry,
	conv upstream.Conversation,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		sessions: sessions,
		messages: messages,
		modes:    registry,
		conv:     conv,
		logger:   logger,
		sem:      make(chan struct{}, 1),
	}
}

// SendResult is the outcome of one user message.
type SendResult struct {
	ChatID string
	Mode   string
	Reply  *upstream.Reply
}

func (c *Coordinator) lock(ctx context.Context) error {
	select {
	case c.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for coordinator: %w", ctx.Err())
	}
}

func (c *Coordinator) unlock() {
	<-c.sem
}

func (c *Coordinator) activeID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Coordinator) setActive(id string) {
	c.mu.Lock()
	c.active = id
	c.mu.Unlock()
}

// Create stores a new, inactive session. An empty mode selects the default.
func (c *Coordinator) Create(description, mode string) (*models.ChatSession, error) {
	sess, err := c.sessions.Create(strings.TrimSpace(description), mode)
	if err != nil {
		return nil, err
	}
	c.logger.Info("chat created", "chat_id", sess.ID, "mode", sess.Mode)
	return sess, nil
}

// Activate makes id the active session, delivering its mode prompt if that
// has not happened since the last mode change. On failure the previously
// active session, if any, stays active.
func (c *Coordinator) Activate(ctx context.Context, id string) (*models.ChatInfo, error) {
	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	defer c.unlock()

	sess, err := c.sessions.Get(id)
	if err != nil {
		return nil, err
	}

	if !sess.PromptDelivered {
		if err := c.deliverPrompt(ctx, sess); err != nil {
			return nil, fmt.Errorf("activate %s: %w", id, err)
		}
	}

	if prev := c.activeID(); prev != "" && prev != id {
		c.logger.Info("chat deactivated", "chat_id", prev, "reason", "switched")
	}
	c.setActive(id)
	c.logger.Info("chat activated", "chat_id", id, "mode", sess.Mode)

	return &models.ChatInfo{ChatSession: *sess, State: ActiveReady.String()}, nil
}

// Deactivate clears the active pointer. Calling it with nothing active is a
// no-op.
func (c *Coordinator) Deactivate(ctx context.Context) error {
	if err := c.lock(ctx); err != nil {
		return err
	}
	defer c.unlock()

	prev := c.activeID()
	if prev == "" {
		return nil
	}
	c.logger.Info("chat deactivated", "chat_id", prev)
	c.setActive("")
	return nil
}

// ChangeMode switches a session to mode and clears its prompt flag. When the
// session is active the new prompt is delivered right away; otherwise it
// waits for the next activation.
func (c *Coordinator) ChangeMode(ctx context.Context, id, mode string) (*models.ChatInfo, error) {
	if !c.modes.IsValid(mode) {
		return nil, fmt.Errorf("change mode: %w: %q", models.ErrInvalidMode, mode)
	}

	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	defer c.unlock()

	if err := c.sessions.UpdateMode(id, mode); err != nil {
		return nil, err
	}
	sess, err := c.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	isActive := c.activeID() == id
	c.logger.Info("chat mode changed", "chat_id", id, "mode", mode, "active", isActive)

	if !isActive {
		return &models.ChatInfo{ChatSession: *sess, State: Inactive.String()}, nil
	}

	if err := c.deliverPrompt(ctx, sess); err != nil {
		return nil, fmt.Errorf("change mode of %s: %w", id, err)
	}
	return &models.ChatInfo{ChatSession: *sess, State: ActiveReady.String()}, nil
}

// Delete removes a session and its transcript, clearing the active pointer if
// it pointed at id.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	if err := c.lock(ctx); err != nil {
		return err
	}
	defer c.unlock()

	if err := c.sessions.Delete(id); err != nil {
		return err
	}
	if c.activeID() == id {
		c.logger.Info("chat deactivated", "chat_id", id, "reason", "deleted")
		c.setActive("")
	}
	c.logger.Info("chat deleted", "chat_id", id)
	return nil
}

// SendMessage forwards content to the conversation on behalf of the active
// session. The mode prompt is not re-checked here. A user turn the upstream
// rejected is logged with its error in the metadata.
func (c *Coordinator) SendMessage(ctx context.Context, content string) (*SendResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("send message: %w: empty content", models.ErrValidation)
	}

	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	defer c.unlock()

	id := c.activeID()
	if id == "" {
		return nil, models.ErrNoActiveSession
	}
	sess, err := c.sessions.Get(id)
	if err != nil {
		return nil, err
	}

	reply, err := c.conv.SendUserMessage(ctx, content)
	if err != nil {
		c.logger.Warn("upstream send failed", "chat_id", sess.ID, "error", err)
		c.record(sess.ID, models.RoleUser, content, map[string]any{"error": err.Error()})
		return nil, upstreamError(err)
	}

	c.record(sess.ID, models.RoleUser, content, nil)
	c.record(sess.ID, models.RoleAssistant, reply.Text, nil)
	return &SendResult{ChatID: sess.ID, Mode: sess.Mode, Reply: reply}, nil
}

// Active returns the active session id, if any.
func (c *Coordinator) Active(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	id := c.activeID()
	return id, id != "", nil
}

// State reports the state of one session.
func (c *Coordinator) State(ctx context.Context, id string) (State, error) {
	if err := ctx.Err(); err != nil {
		return Inactive, err
	}
	active := c.activeID()
	sess, err := c.sessions.Get(id)
	if err != nil {
		return Inactive, err
	}
	return stateOf(sess, active), nil
}

// Get returns a session with its state.
func (c *Coordinator) Get(ctx context.Context, id string) (*models.ChatInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	active := c.activeID()
	sess, err := c.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	return &models.ChatInfo{ChatSession: *sess, State: stateOf(sess, active).String()}, nil
}

// List returns every session in creation order with its state.
func (c *Coordinator) List(ctx context.Context) ([]models.ChatInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// The pointer moves only after the prompt flag is stored, so reading it
	// first never pairs a new pointer with a stale flag.
	active := c.activeID()
	sessions, err := c.sessions.List()
	if err != nil {
		return nil, err
	}
	out := make([]models.ChatInfo, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, models.ChatInfo{ChatSession: *sess, State: stateOf(sess, active).String()})
	}
	return out, nil
}

// UpdateDescription relabels a session. It never touches the pointer or the
// conversation, so it skips the lock.
func (c *Coordinator) UpdateDescription(id, description string) (*models.ChatSession, error) {
	if err := c.sessions.UpdateDescription(id, strings.TrimSpace(description)); err != nil {
		return nil, err
	}
	return c.sessions.Get(id)
}

// History returns the most recent logged messages of a session.
func (c *Coordinator) History(id string, limit int) (*models.ChatHistory, error) {
	if _, err := c.sessions.Get(id); err != nil {
		return nil, err
	}
	msgs, err := c.messages.ListByChat(id, limit)
	if err != nil {
		return nil, err
	}
	total, err := c.messages.Count(id)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	return &models.ChatHistory{ChatID: id, Messages: msgs, TotalMessages: total}, nil
}

// ClearHistory drops a session's transcript. The upstream conversation keeps
// whatever it has already seen.
func (c *Coordinator) ClearHistory(id string) (int64, error) {
	if _, err := c.sessions.Get(id); err != nil {
		return 0, err
	}
	n, err := c.messages.DeleteByChat(id)
	if err != nil {
		return 0, err
	}
	c.logger.Info("chat history cleared", "chat_id", id, "messages", n)
	return n, nil
}

// deliverPrompt transmits the prompt of sess's current mode and marks it
// delivered. On failure the flag stays false so the next activation retries.
// Callers hold the lock.
func (c *Coordinator) deliverPrompt(ctx context.Context, sess *models.ChatSession) error {
	prompt, err := c.modes.Resolve(sess.Mode)
	if err != nil {
		return err
	}

	if prompt != "" {
		if err := c.conv.SendSystemPrompt(ctx, prompt); err != nil {
			c.logger.Warn("system prompt delivery failed", "chat_id", sess.ID, "mode", sess.Mode, "error", err)
			if ferr := c.sessions.SetPromptDelivered(sess.ID, false); ferr != nil {
				c.logger.Error("reset prompt flag", "chat_id", sess.ID, "error", ferr)
			}
			sess.PromptDelivered = false
			return upstreamError(err)
		}
		c.record(sess.ID, models.RoleSystem, prompt, map[string]any{"mode": sess.Mode})
	}

	if err := c.sessions.SetPromptDelivered(sess.ID, true); err != nil {
		return fmt.Errorf("mark prompt delivered: %w", err)
	}
	sess.PromptDelivered = true
	c.logger.Info("system prompt delivered", "chat_id", sess.ID, "mode", sess.Mode, "chars", len(prompt))
	return nil
}

func stateOf(sess *models.ChatSession, active string) State {
	switch {
	case sess.ID != active:
		return Inactive
	case sess.PromptDelivered:
		return ActiveReady
	default:
		return ActiveNoPromptSent
	}
}

// record appends to the transcript. A logging failure never fails the
// operation that produced the message.
func (c *Coordinator) record(chatID string, role models.MessageRole, content string, metadata map[string]any) {
	if _, err := c.messages.Append(chatID, role, content, metadata); err != nil {
		c.logger.Warn("record message failed", "chat_id", chatID, "role", role, "error", err)
	}
}

func upstreamError(err error) error {
	if errors.Is(err, models.ErrUpstreamUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrUpstreamUnavailable, err)
}
