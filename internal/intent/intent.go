// Package intent labels inbound chat messages with a dialogue intent.
//
// Classification is deliberately keyword and substring based with a fixed
// check order; there is no tokenization or stemming. The order is load
// bearing: an active draft sub-flow captures every message before meeting
// or email keywords are considered, and confirmation words only count when
// the state says a confirmation is pending.
package intent

import (
	"regexp"
	"strings"

	"github.com/juniperhq/concierge/internal/models"
)

// confirmWordRegex matches whole-word confirmation replies.
var confirmWordRegex = regexp.MustCompile(`(?i)\b(?:confirm|yes|ok|correct)\b`)

// meetingKeywords trigger the meeting flow on a substring match.
var meetingKeywords = []string{"meeting", "schedule", "calendar", "appointment", "call"}

// emailPhrases trigger the email flow on a substring match.
var emailPhrases = []string{
	"unread email",
	"unread emails",
	"inbox",
	"show emails",
	"check email",
	"new emails",
	"my emails",
}

// Classify labels a message given the current conversation state. The check
// order must be preserved exactly: confirmation, draft-flow continuation,
// meeting, email, then general chat.
func Classify(message string, state models.ConversationState) models.Intent {
	lower := strings.ToLower(message)

	if state.ReadyToConfirm && confirmWordRegex.MatchString(message) {
		return models.IntentConfirmation
	}
	if state.EmailDraftFlow != nil {
		return models.IntentDraftFlowContinuation
	}
	if state.MeetingContext || containsAny(lower, meetingKeywords) {
		return models.IntentMeetingRequest
	}
	if containsAny(lower, emailPhrases) {
		return models.IntentEmailRequest
	}
	return models.IntentGeneralChat
}

func containsAny(lower string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}
