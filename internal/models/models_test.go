package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestChatRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		message string
		wantErr error
	}{
		{"valid message", "Book a meeting tomorrow", nil},
		{"empty message", "", ErrEmptyMessage},
		{"whitespace only", "   \t  ", ErrEmptyMessage},
		{"at length limit", strings.Repeat("a", MaxMessageLength), nil},
		{"over length limit", strings.Repeat("a", MaxMessageLength+1), ErrMessageTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := ChatRequest{Message: tt.message}
			if err := req.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConversationStateIsEmpty(t *testing.T) {
	if !(ConversationState{}).IsEmpty() {
		t.Error("zero state should be empty")
	}
	if (ConversationState{MeetingContext: true}).IsEmpty() {
		t.Error("meeting context state should not be empty")
	}
	if (ConversationState{EmailDraftFlow: &EmailDraftFlow{}}).IsEmpty() {
		t.Error("draft flow state should not be empty")
	}
}

func TestConversationStatePhase(t *testing.T) {
	tests := []struct {
		name  string
		state ConversationState
		want  StateType
	}{
		{"fresh state", ConversationState{}, StateIdle},
		{"gathering", ConversationState{MeetingContext: true}, StateMeetingGathering},
		{
			"ready to confirm",
			ConversationState{MeetingContext: true, ReadyToConfirm: true, MeetingDetails: &MeetingDetails{Title: "Sync", Time: "tomorrow 2pm"}},
			StateMeetingReadyToConfirm,
		},
		{
			"draft flow awaiting confirmation",
			ConversationState{EmailDraftFlow: &EmailDraftFlow{AwaitingConfirmation: true}},
			StateEmailAwaitingConfirm,
		},
		{
			"draft flow auto drafting",
			ConversationState{EmailDraftFlow: &EmailDraftFlow{AutoDrafting: true}},
			StateEmailAutoDrafting,
		},
		{
			"draft flow wins over meeting fields",
			ConversationState{MeetingContext: true, ReadyToConfirm: true, MeetingDetails: &MeetingDetails{Title: "Sync", Time: "2pm"}, EmailDraftFlow: &EmailDraftFlow{AwaitingConfirmation: true}},
			StateEmailAwaitingConfirm,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.Phase(); got != tt.want {
				t.Errorf("Phase() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEmptyStateMarshalsToEmptyObject(t *testing.T) {
	data, err := json.Marshal(ConversationState{})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("expected empty state to marshal to {}, got %s", data)
	}
}

func TestConversationStateRoundTrip(t *testing.T) {
	state := ConversationState{
		LoopCount:      2,
		MeetingContext: true,
		PartialDetails: &PartialDetails{Title: "Budget review"},
	}
	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var got ConversationState
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if got.LoopCount != 2 || !got.MeetingContext {
		t.Errorf("scalar fields lost in round trip: %+v", got)
	}
	if got.PartialDetails == nil || got.PartialDetails.Title != "Budget review" {
		t.Errorf("partial details lost in round trip: %+v", got.PartialDetails)
	}
}
