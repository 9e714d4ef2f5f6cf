// Package models defines the core data structures for Concierge.
//
// It includes the turn request/response contract, the serialized
// conversation state round-tripped by the caller, and shared validation.
package models

import (
	"errors"
	"strings"
	"time"
)

// Validation constants for input validation
const (
	// MaxMessageLength defines the maximum allowed length for an inbound chat message
	MaxMessageLength = 4096
	// MinTitleLength defines the minimum length of a meeting title after trimming
	MinTitleLength = 2
	// MaxTitleLength defines the maximum length of a meeting title after trimming
	MaxTitleLength = 100
	// MaxLoopCount bounds re-entries into the meeting flow; a post-increment
	// count above this forces a hard state reset.
	MaxLoopCount = 3
	// DraftBatchSize is the number of emails drafted per "next" step.
	DraftBatchSize = 2
)

// Error variables for better error handling and testability
var (
	ErrEmptyMessage   = errors.New("message cannot be empty")
	ErrMessageTooLong = errors.New("message exceeds maximum length")
)

// Intent labels an inbound message after classification.
type Intent string

const (
	IntentConfirmation          Intent = "confirmation"
	IntentMeetingRequest        Intent = "meeting_request"
	IntentEmailRequest          Intent = "email_request"
	IntentDraftFlowContinuation Intent = "draft_flow_continuation"
	IntentGeneralChat           Intent = "general_chat"
)

// StateType represents a specific state within the dialogue flow.
type StateType string

// State constants for the dialogue flow.
const (
	StateIdle                  StateType = "IDLE"
	StateMeetingGathering      StateType = "MEETING_GATHERING"
	StateMeetingReadyToConfirm StateType = "MEETING_READY_TO_CONFIRM"
	StateEmailAwaitingConfirm  StateType = "EMAIL_AWAITING_DRAFT_CONFIRMATION"
	StateEmailAutoDrafting     StateType = "EMAIL_AUTO_DRAFTING"
)

// PartialDetails accumulates extracted meeting fields across turns.
// Fields once set are never overwritten by a later miss (merge-not-replace).
type PartialDetails struct {
	Title string `json:"title,omitempty"`
	Time  string `json:"time,omitempty"`
}

// MeetingDetails is a fully specified meeting awaiting confirmation.
// The time field is still the natural-language fragment; it is converted to
// concrete instants only at confirmation.
type MeetingDetails struct {
	Title string `json:"title"`
	Time  string `json:"time"`
}

// EmailMeta is a read-only projection of a provider email. It is fetched
// once when the draft flow starts and never re-queried mid-flow.
type EmailMeta struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider,omitempty"`
	From        string    `json:"from"`
	Subject     string    `json:"subject"`
	BodyPreview string    `json:"body_preview,omitempty"`
	ReceivedAt  time.Time `json:"received_at,omitempty"`
}

// EmailDraftFlow tracks the email drafting sub-dialogue.
type EmailDraftFlow struct {
	Emails               []EmailMeta `json:"emails"`
	NextIndex            int         `json:"nextIndex"`
	AwaitingConfirmation bool        `json:"awaitingConfirmation,omitempty"`
	AutoDrafting         bool        `json:"autoDrafting,omitempty"`
}

// ConversationState is the opaque bag round-tripped by the caller on every
// turn. An empty value marshals to {} and means a fresh conversation.
type ConversationState struct {
	LoopCount      int             `json:"loopCount,omitempty"`
	MeetingContext bool            `json:"meetingContext,omitempty"`
	PartialDetails *PartialDetails `json:"partialDetails,omitempty"`
	ReadyToConfirm bool            `json:"readyToConfirm,omitempty"`
	MeetingDetails *MeetingDetails `json:"meetingDetails,omitempty"`
	EmailDraftFlow *EmailDraftFlow `json:"emailDraftFlow,omitempty"`
}

// IsEmpty reports whether the state is the fresh-conversation zero value.
func (s ConversationState) IsEmpty() bool {
	return s.LoopCount == 0 && !s.MeetingContext && s.PartialDetails == nil &&
		!s.ReadyToConfirm && s.MeetingDetails == nil && s.EmailDraftFlow == nil
}

// Phase derives the tagged dialogue state from the state bag. The draft
// sub-flow takes priority over meeting fields: the two flows never
// interleave, and a present emailDraftFlow wins presence checks.
func (s ConversationState) Phase() StateType {
	if s.EmailDraftFlow != nil {
		if s.EmailDraftFlow.AwaitingConfirmation {
			return StateEmailAwaitingConfirm
		}
		return StateEmailAutoDrafting
	}
	if s.ReadyToConfirm && s.MeetingDetails != nil {
		return StateMeetingReadyToConfirm
	}
	if s.MeetingContext {
		return StateMeetingGathering
	}
	return StateIdle
}

// ChatRequest is the inbound turn payload.
type ChatRequest struct {
	Message           string            `json:"message"`
	ConversationState ConversationState `json:"conversation_state"`
	SessionID         string            `json:"session_id,omitempty"`
}

// Validate performs validation on an inbound chat request.
func (r *ChatRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return ErrEmptyMessage
	}
	if len(r.Message) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// ChatResponse is the outbound turn payload. State must be echoed back
// verbatim by the caller on the next turn.
type ChatResponse struct {
	Response string            `json:"response"`
	State    ConversationState `json:"state"`
}

// TurnRecord is a completed turn persisted to the transcript store.
type TurnRecord struct {
	ID        int64     `json:"id,omitempty"`
	SessionID string    `json:"session_id"`
	Message   string    `json:"message"`
	Intent    Intent    `json:"intent"`
	Response  string    `json:"response"`
	Phase     StateType `json:"phase"`
	CreatedAt time.Time `json:"created_at"`
}
