// Package flow implements the turn-by-turn dialogue engine.
//
// The engine is stateless across requests: every turn receives the caller's
// serialized ConversationState and returns the next one. All cross-turn
// memory travels in that bag. The meeting flow, the confirmation step and
// the email draft sub-flow are the three dialogues it drives; a loop
// breaker forcibly resets the meeting flow after too many unresolved
// re-entries.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/juniperhq/concierge/internal/extract"
	"github.com/juniperhq/concierge/internal/genai"
	"github.com/juniperhq/concierge/internal/intent"
	"github.com/juniperhq/concierge/internal/integrations"
	"github.com/juniperhq/concierge/internal/metrics"
	"github.com/juniperhq/concierge/internal/models"
)

// User-facing messages for the meeting flow.
const (
	msgStartFresh = "Looks like we're going in circles - let's start fresh. Tell me the meeting title and time in one go, like \"Sales review, tomorrow 5pm\"."

	msgAskBoth  = "I'd love to set that up. What should the meeting be called, and when should it happen? You can say it in one go, like \"Sales review, tomorrow 5pm\"."
	msgAskTime  = "Got it - \"%s\". When should it happen? For example \"tomorrow 2pm\" or \"friday 10am CAT\"."
	msgAskTitle = "Noted, %s it is. What should the meeting be called?"

	msgConfirmPrompt = "Here's what I have: \"%s\" at %s. Reply \"confirm\" to put it on your calendar, or tell me what to change."

	msgGeneralChatDown = "Sorry, I'm having trouble thinking right now. Please try again in a moment."
)

// generalChatPreamble is the fixed system preamble for free-text replies.
const generalChatPreamble = "You are Concierge, a helpful personal assistant. " +
	"Answer briefly and conversationally. You can schedule meetings and read email " +
	"when asked, but for this message just reply helpfully to the user."

// Notifier sends an out-of-band notice after a meeting is booked. Failures
// are logged and never surfaced to the dialogue.
type Notifier interface {
	NotifyBooked(ctx context.Context, summary string) error
}

// Turn is the outcome of processing one message.
type Turn struct {
	Response string
	State    models.ConversationState
	Intent   models.Intent
}

// Opts holds configuration options for the engine.
type Opts struct {
	Notifier Notifier
	Clock    func() time.Time
}

// Option defines a configuration option for the engine.
type Option func(*Opts)

// WithNotifier attaches an out-of-band booking notifier.
func WithNotifier(n Notifier) Option {
	return func(o *Opts) { o.Notifier = n }
}

// WithClock substitutes the reference clock, used by tests.
func WithClock(clock func() time.Time) Option {
	return func(o *Opts) { o.Clock = clock }
}

// Engine drives the dialogue state machine.
type Engine struct {
	genaiClient genai.ClientInterface
	bridge      integrations.Bridge
	notifier    Notifier
	now         func() time.Time
}

// NewEngine creates a dialogue engine with its collaborators.
func NewEngine(genaiClient genai.ClientInterface, bridge integrations.Bridge, opts ...Option) *Engine {
	cfg := Opts{Clock: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("flow.NewEngine: engine created", "has_notifier", cfg.Notifier != nil)
	return &Engine{
		genaiClient: genaiClient,
		bridge:      bridge,
		notifier:    cfg.Notifier,
		now:         cfg.Clock,
	}
}

// ProcessTurn classifies the message and advances the dialogue by one turn.
// The returned state fully replaces the caller's copy. The method never
// returns an error: collaborator failures become user-facing text and a
// state reset, extraction misses become re-prompts.
func (e *Engine) ProcessTurn(ctx context.Context, message string, state models.ConversationState, authHeader string) Turn {
	label := intent.Classify(message, state)
	slog.Debug("Engine.ProcessTurn: message classified", "intent", label, "phase", state.Phase())

	switch label {
	case models.IntentConfirmation:
		return e.confirmMeeting(ctx, state, authHeader)
	case models.IntentDraftFlowContinuation:
		return e.continueDraftFlow(ctx, message, state)
	case models.IntentMeetingRequest:
		return e.handleMeeting(message, state)
	case models.IntentEmailRequest:
		return e.startEmailFlow(ctx, authHeader)
	default:
		return e.generalChat(ctx, message, state)
	}
}

// handleMeeting runs one gathering step of the meeting flow. Entry from an
// idle state does not count against the loop bound; every re-entry does.
func (e *Engine) handleMeeting(message string, state models.ConversationState) Turn {
	if state.MeetingContext {
		state.LoopCount++
	}
	if state.LoopCount > models.MaxLoopCount {
		slog.Info("Engine.handleMeeting: loop bound exceeded, forcing reset", "loop_count", state.LoopCount)
		metrics.RecordLoopBreakerTrip()
		return Turn{Response: msgStartFresh, State: models.ConversationState{}, Intent: models.IntentMeetingRequest}
	}

	prior := models.PartialDetails{}
	if state.PartialDetails != nil {
		prior = *state.PartialDetails
	}
	details := extract.Extract(message, prior)

	state.MeetingContext = true
	state.PartialDetails = &details
	state.ReadyToConfirm = false
	state.MeetingDetails = nil

	if details.Title != "" && details.Time != "" {
		state.ReadyToConfirm = true
		state.MeetingDetails = &models.MeetingDetails{Title: details.Title, Time: details.Time}
		slog.Info("Engine.handleMeeting: details complete, awaiting confirmation", "title", details.Title, "time", details.Time)
		return Turn{
			Response: fmt.Sprintf(msgConfirmPrompt, details.Title, details.Time),
			State:    state,
			Intent:   models.IntentMeetingRequest,
		}
	}

	var prompt string
	switch {
	case details.Title != "":
		prompt = fmt.Sprintf(msgAskTime, details.Title)
	case details.Time != "":
		prompt = fmt.Sprintf(msgAskTitle, details.Time)
	default:
		prompt = msgAskBoth
	}
	slog.Debug("Engine.handleMeeting: details incomplete, re-prompting", "has_title", details.Title != "", "has_time", details.Time != "", "loop_count", state.LoopCount)
	return Turn{Response: prompt, State: state, Intent: models.IntentMeetingRequest}
}

// generalChat delegates to the completion collaborator with a fixed
// preamble. The conversation state passes through unchanged.
func (e *Engine) generalChat(ctx context.Context, message string, state models.ConversationState) Turn {
	out, err := e.genaiClient.Complete(ctx, generalChatPreamble, message)
	if err != nil {
		slog.Error("Engine.generalChat: completion failed", "error", err)
		metrics.RecordCollaboratorCall("chat_completion", "generic")
		return Turn{Response: msgGeneralChatDown, State: state, Intent: models.IntentGeneralChat}
	}
	metrics.RecordCollaboratorCall("chat_completion", "success")
	return Turn{Response: strings.TrimSpace(out), State: state, Intent: models.IntentGeneralChat}
}
