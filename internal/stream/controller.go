// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jeranaias/relay-tui/internal/model"
	"github.com/jeranaias/relay-tui/internal/openrouter"
	"github.com/jeranaias/relay-tui/internal/util"
)

// =============================================================================
// STATES
// =============================================================================

// State is the controller's position in the submit lifecycle.
type State int

const (
	// StateIdle means no exchange is in flight.
	StateIdle State = iota

	// StateRequesting means the request is open but no delta has arrived.
	StateRequesting

	// StateStreaming means deltas are being integrated.
	StateStreaming

	// StateCommitting means the finished response is being written to the
	// conversation store.
	StateCommitting

	// StateAborting means a cancel was requested and the stream is
	// winding down.
	StateAborting

	// StateErrored is a transient state holding a user-visible transport
	// error; it resolves to StateIdle immediately after the error is
	// recorded.
	StateErrored
)

// String returns a short name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateStreaming:
		return "streaming"
	case StateCommitting:
		return "committing"
	case StateAborting:
		return "aborting"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// =============================================================================
// COLLABORATOR CONTRACTS
// =============================================================================

// Completer is the transport surface the controller needs. Satisfied by
// openrouter.Client.
type Completer interface {
	ChatStream(ctx context.Context, req openrouter.ChatRequest, fn openrouter.DeltaFunc) error
	GenerateTitle(ctx context.Context, titleModel, userText, assistantSample string) (string, error)
}

// Store is the persistence surface the controller commits to.
type Store interface {
	AppendMessage(conversationID string, msg *model.Message) error
	UpdateConversation(conversationID string, patch model.ConversationPatch) error
}

// =============================================================================
// CANCEL MANAGER
// =============================================================================

// cancelManager pairs the in-flight cancel function with a generation
// counter. A delta is only integrated if its stream's generation is still
// current; cancel bumps the generation, so late deltas from a cancelled
// transport are discarded even before the context error propagates.
type cancelManager struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
}

// begin registers a new in-flight stream and returns its generation.
func (cm *cancelManager) begin(cancel context.CancelFunc) uint64 {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.cancel = cancel
	cm.gen++
	return cm.gen
}

// valid reports whether the given generation is still the live stream.
func (cm *cancelManager) valid(gen uint64) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.gen == gen
}

// stop cancels the live stream, if any, and invalidates its generation.
// Returns true if there was something to cancel.
func (cm *cancelManager) stop() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancel == nil {
		return false
	}
	cm.cancel()
	cm.cancel = nil
	cm.gen++
	return true
}

// finish clears the cancel function after a stream ends on its own.
func (cm *cancelManager) finish(gen uint64) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.gen == gen {
		cm.cancel = nil
	}
}

// =============================================================================
// CONTROLLER
// =============================================================================

// titleTimeout bounds the fire-and-forget title call.
const titleTimeout = 30 * time.Second

// Config holds the controller's tunable bounds.
type Config struct {
	// TitleModel is the model used for title generation.
	TitleModel string

	// TitleFallbackMaxRunes bounds the truncated-prefix fallback title.
	TitleFallbackMaxRunes int

	// AssistantSampleRunes caps the assistant text sent to the title
	// model. The full response is never needed to produce a title.
	AssistantSampleRunes int
}

// Controller drives one exchange at a time through the submit lifecycle.
// It owns the session exclusively; the bridge is its only outward-facing
// notification path.
type Controller struct {
	client  Completer
	store   Store
	session *Session
	bridge  *Bridge
	cfg     Config
	logger  *slog.Logger

	cancels cancelManager

	mu      sync.Mutex
	state   State
	lastErr string
	conv    *model.Conversation
	modelID string
	system  string
}

// NewController wires a controller over its collaborators. A nil logger
// disables logging.
func NewController(client Completer, store Store, session *Session, bridge *Bridge, cfg Config, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		client:  client,
		store:   store,
		session: session,
		bridge:  bridge,
		cfg:     cfg,
		logger:  logger,
		state:   StateIdle,
	}
}

// SetConversation binds the controller to a conversation. Ignored while
// an exchange is in flight.
func (c *Controller) SetConversation(conv *model.Conversation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return
	}
	c.conv = conv
}

// SetModel selects the model for subsequent submits.
func (c *Controller) SetModel(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modelID = id
}

// ModelID returns the model selected for subsequent submits.
func (c *Controller) ModelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modelID
}

// SetSystemPrompt sets the system message prepended to every request.
// Empty disables it.
func (c *Controller) SetSystemPrompt(prompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.system = prompt
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Conversation returns the bound conversation, or nil.
func (c *Controller) Conversation() *model.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv
}

// LastError returns the most recent user-visible transport error text, or
// "". Cancellation never sets it.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Submit starts one exchange with the given user text. Without a bound
// conversation and model it is a no-op, not an error; the UI is expected
// to disable submission in that case. A submit while another exchange is
// in flight is ignored. The stream runs on its own goroutine; terminal
// outcomes are observable through the bridge (EventEnd on commit,
// EventReset on cancel or error) and through State.
func (c *Controller) Submit(text string) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		c.logger.Debug("submit ignored, exchange in flight", "state", c.state.String())
		return
	}
	if c.conv == nil || c.modelID == "" || text == "" {
		c.mu.Unlock()
		return
	}

	conv := c.conv
	userMsg := model.NewUserMessage(text)
	conv.Append(userMsg)
	firstExchange := conv.IsFirstExchange()

	c.state = StateRequesting
	c.lastErr = ""
	req := c.buildRequestLocked(conv)
	c.mu.Unlock()

	if err := c.store.AppendMessage(conv.ID, userMsg); err != nil {
		c.logger.Error("failed to persist user message", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	gen := c.cancels.begin(cancel)

	go c.run(ctx, gen, conv, text, firstExchange, req)
}

// Cancel stops the in-flight exchange, if any. The partial response is
// discarded; no assistant message is committed.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.state != StateRequesting && c.state != StateStreaming {
		c.mu.Unlock()
		return
	}
	c.state = StateAborting
	c.mu.Unlock()

	c.cancels.stop()
}

// buildRequestLocked assembles the outbound request from conversation
// history. Caller holds c.mu.
func (c *Controller) buildRequestLocked(conv *model.Conversation) openrouter.ChatRequest {
	msgs := make([]openrouter.ChatMessage, 0, len(conv.Messages)+1)
	if c.system != "" {
		msgs = append(msgs, openrouter.NewSystemMessage(c.system))
	}
	for _, m := range conv.Messages {
		msgs = append(msgs, openrouter.ChatMessage{
			Role:    m.Role.String(),
			Content: openrouter.Text(m.Content),
		})
	}
	return openrouter.ChatRequest{
		Model:    c.modelID,
		Messages: msgs,
		Stream:   true,
	}
}

// run drives one stream to a terminal state. It is the only writer to the
// session while the generation is live.
func (c *Controller) run(ctx context.Context, gen uint64, conv *model.Conversation, userText string, firstExchange bool, req openrouter.ChatRequest) {
	started := false

	err := c.client.ChatStream(ctx, req, func(d openrouter.Delta) {
		// A delta racing a cancel must not touch the buffers.
		if !c.cancels.valid(gen) {
			return
		}

		if !started {
			if startErr := c.session.Start(conv.ID); startErr != nil {
				c.logger.Error("failed to start stream session", "error", startErr)
				return
			}
			started = true
			c.setState(StateStreaming)
			c.bridge.publish(Event{Kind: EventStart, ConversationID: conv.ID})
		}

		citationsAppeared, intErr := c.session.Integrate(d)
		if intErr != nil {
			return
		}
		if citationsAppeared {
			c.bridge.publish(Event{Kind: EventCitations, ConversationID: conv.ID})
		}
	})

	c.cancels.finish(gen)

	switch {
	case err == nil && c.cancels.valid(gen):
		c.commit(conv, userText, firstExchange, started)
	case errors.Is(err, context.Canceled) || !c.cancels.valid(gen):
		c.discard(conv.ID, StateAborting, "")
	default:
		c.logger.Error("stream failed", "conversation", conv.ID, "error", err)
		c.discard(conv.ID, StateErrored, err.Error())
	}
}

// commit writes the finished response into history and fires EventEnd.
// Peek observes the final snapshot while subscribers handle the event;
// the session is cleared only afterwards.
func (c *Controller) commit(conv *model.Conversation, userText string, firstExchange, started bool) {
	if !started {
		// Stream ended without a single delta. Nothing to commit, but
		// subscribers still need a terminal event to settle on.
		c.logger.Warn("stream ended empty", "conversation", conv.ID)
		c.bridge.publish(Event{Kind: EventReset, ConversationID: conv.ID})
		c.setState(StateIdle)
		return
	}

	c.setState(StateCommitting)

	snap, err := c.session.Finish()
	if err != nil {
		c.logger.Error("failed to finish session", "error", err)
		c.discard(conv.ID, StateErrored, err.Error())
		return
	}

	assistant := model.NewAssistantMessage(snap.Content, snap.Reasoning, snap.Images, snap.Citations)
	conv.Append(assistant)
	if err := c.store.AppendMessage(conv.ID, assistant); err != nil {
		c.logger.Error("failed to persist assistant message", "error", err)
	}

	c.bridge.publish(Event{Kind: EventEnd, ConversationID: conv.ID, Snapshot: &snap})
	c.session.Reset()
	c.setState(StateIdle)

	if firstExchange {
		assistantSample := util.TruncateRunes(snap.Content, c.cfg.AssistantSampleRunes)
		go c.generateTitle(conv, userText, assistantSample)
	}
}

// discard clears the session without committing. via is the transient
// state passed through on the way back to idle; errText is recorded for
// StateErrored only.
func (c *Controller) discard(conversationID string, via State, errText string) {
	c.mu.Lock()
	c.state = via
	if via == StateErrored {
		c.lastErr = errText
	}
	c.mu.Unlock()

	c.session.Reset()
	c.bridge.publish(Event{Kind: EventReset, ConversationID: conversationID})
	c.setState(StateIdle)
}

// generateTitle runs the best-effort title call. Never blocks the commit;
// on any failure the deterministic truncated-prefix fallback applies.
func (c *Controller) generateTitle(conv *model.Conversation, userText, assistantSample string) {
	ctx, cancel := context.WithTimeout(context.Background(), titleTimeout)
	defer cancel()

	title, err := c.client.GenerateTitle(ctx, c.cfg.TitleModel, userText, assistantSample)
	if err != nil {
		c.logger.Debug("title generation failed, using fallback", "error", err)
		title = FallbackTitle(userText, c.cfg.TitleFallbackMaxRunes)
	}

	c.mu.Lock()
	conv.Title = title
	c.mu.Unlock()

	if err := c.store.UpdateConversation(conv.ID, model.ConversationPatch{Title: &title}); err != nil {
		c.logger.Error("failed to persist title", "error", err)
	}
}

// FallbackTitle derives a deterministic title from the user's text:
// whitespace collapsed, truncated rune-safely to maxRunes with an
// ellipsis marker when it exceeds the bound.
func FallbackTitle(userText string, maxRunes int) string {
	title := util.CollapseSpace(userText)
	if title == "" {
		return model.DefaultTitle
	}
	return util.TruncateRunes(title, maxRunes)
}

// setState records a state transition.
func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
