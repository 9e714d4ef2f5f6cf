// Package flow: the email draft sub-flow and its batcher.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/juniperhq/concierge/internal/integrations"
	"github.com/juniperhq/concierge/internal/metrics"
	"github.com/juniperhq/concierge/internal/models"
	"github.com/juniperhq/concierge/internal/nltime"
)

// User-facing messages for the email flow.
const (
	msgNoEmails        = "Good news - there are no unread emails in your inbox."
	msgDraftOffer      = "Want me to draft replies? I'll go through them two at a time. (yes/no)"
	msgDraftDeclined   = "No problem, I'll leave your inbox alone. Anything else?"
	msgDraftReprompt   = "Should I draft replies to those emails? Please answer \"yes\" or \"no\"."
	msgDraftNextHint   = "Say \"next\" for the following batch, or \"cancel\" to stop."
	msgDraftCancelled  = "Okay, stopping here. Anything else I can help with?"
	msgDraftAutoPrompt = "I'm in drafting mode - say \"next\" for more drafts or \"cancel\" to stop."
	msgDraftsComplete  = "That's all of them - every unread email now has a draft reply."
	msgDraftApology    = "Sorry, I couldn't generate drafts right now. Say \"next\" to retry this batch or \"cancel\" to stop."
)

// bodyPreviewLimit truncates email previews in the drafting prompt.
const bodyPreviewLimit = 400

// draftSystemPrompt instructs the completion collaborator to keep a strict
// numbered output format so drafts can be shown as-is.
const draftSystemPrompt = "You write short, professional reply drafts for emails. " +
	"For each email in the input, output exactly:\n" +
	"N) Subject: <original subject>\n" +
	"Draft reply: <your reply>\n" +
	"Use the same N as the input numbering. No extra commentary."

// Reply keyword sets for the draft sub-flow. These take priority over
// meeting-confirmation words whenever the flow is active.
var (
	yesWords    = []string{"yes", "y", "yeah", "yep", "sure", "ok", "okay", "go ahead"}
	noWords     = []string{"no", "n", "nope", "nah"}
	nextWords   = []string{"next", "more", "continue", "go on"}
	cancelWords = []string{"cancel", "stop", "quit", "done", "no"}
)

// startEmailFlow fetches unread emails once and offers the draft sub-flow.
// The fetched set is frozen in state for the lifetime of the flow.
func (e *Engine) startEmailFlow(ctx context.Context, authHeader string) Turn {
	emails, err := e.bridge.GetEmails(ctx, authHeader)
	if err != nil {
		be := integrations.AsBridgeError(err)
		metrics.RecordCollaboratorCall("get_emails", string(be.Kind))
		slog.Error("Engine.startEmailFlow: email fetch failed", "kind", be.Kind, "error", be.Message)
		return Turn{Response: emailFailureMessage(be), State: models.ConversationState{}, Intent: models.IntentEmailRequest}
	}
	metrics.RecordCollaboratorCall("get_emails", "success")

	if len(emails) == 0 {
		return Turn{Response: msgNoEmails, State: models.ConversationState{}, Intent: models.IntentEmailRequest}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You have %d unread email(s):\n", len(emails))
	for i, em := range emails {
		fmt.Fprintf(&b, "%d) %s - %s\n", i+1, em.From, em.Subject)
	}
	b.WriteString(msgDraftOffer)

	state := models.ConversationState{
		EmailDraftFlow: &models.EmailDraftFlow{
			Emails:               emails,
			NextIndex:            0,
			AwaitingConfirmation: true,
		},
	}
	slog.Info("Engine.startEmailFlow: offering draft flow", "count", len(emails))
	return Turn{Response: b.String(), State: state, Intent: models.IntentEmailRequest}
}

// continueDraftFlow advances the draft sub-flow by one reply. The flow's
// own keyword set is checked here and nowhere else.
func (e *Engine) continueDraftFlow(ctx context.Context, message string, state models.ConversationState) Turn {
	f := state.EmailDraftFlow
	if f == nil || len(f.Emails) == 0 {
		// Unreachable via the classifier, but never crash on a bad bag.
		return Turn{Response: msgDraftCancelled, State: models.ConversationState{}, Intent: models.IntentDraftFlowContinuation}
	}
	reply := strings.ToLower(strings.TrimSpace(strings.TrimRight(message, ".!?")))

	if f.AwaitingConfirmation {
		switch {
		case matchesWord(reply, yesWords):
			return e.draftNextBatch(ctx, f)
		case matchesWord(reply, noWords) || matchesWord(reply, []string{"cancel", "stop"}):
			slog.Debug("Engine.continueDraftFlow: drafting declined")
			return Turn{Response: msgDraftDeclined, State: models.ConversationState{}, Intent: models.IntentDraftFlowContinuation}
		default:
			return Turn{Response: msgDraftReprompt, State: state, Intent: models.IntentDraftFlowContinuation}
		}
	}

	switch {
	case matchesWord(reply, nextWords):
		return e.draftNextBatch(ctx, f)
	case matchesWord(reply, cancelWords):
		slog.Debug("Engine.continueDraftFlow: drafting cancelled", "next_index", f.NextIndex)
		return Turn{Response: msgDraftCancelled, State: models.ConversationState{}, Intent: models.IntentDraftFlowContinuation}
	default:
		return Turn{Response: msgDraftAutoPrompt, State: state, Intent: models.IntentDraftFlowContinuation}
	}
}

// draftNextBatch drafts the next batch of replies and advances the cursor.
// Reaching the end of the email list completes the flow and resets state.
func (e *Engine) draftNextBatch(ctx context.Context, f *models.EmailDraftFlow) Turn {
	start := f.NextIndex
	text, ok := e.DraftBatch(ctx, f.Emails, start, models.DraftBatchSize)
	if !ok {
		// Keep the flow alive so the user can retry the same batch.
		state := models.ConversationState{EmailDraftFlow: &models.EmailDraftFlow{
			Emails:       f.Emails,
			NextIndex:    start,
			AutoDrafting: true,
		}}
		return Turn{Response: msgDraftApology, State: state, Intent: models.IntentDraftFlowContinuation}
	}

	next := start + models.DraftBatchSize
	if next >= len(f.Emails) {
		slog.Info("Engine.draftNextBatch: all drafts complete", "count", len(f.Emails))
		return Turn{
			Response: text + "\n" + msgDraftsComplete,
			State:    models.ConversationState{},
			Intent:   models.IntentDraftFlowContinuation,
		}
	}

	state := models.ConversationState{EmailDraftFlow: &models.EmailDraftFlow{
		Emails:       f.Emails,
		NextIndex:    next,
		AutoDrafting: true,
	}}
	slog.Debug("Engine.draftNextBatch: batch drafted", "from", start, "next_index", next)
	return Turn{Response: text + "\n" + msgDraftNextHint, State: state, Intent: models.IntentDraftFlowContinuation}
}

// DraftBatch generates reply drafts for emails[start : start+size] through
// the completion collaborator. The boolean is false when the collaborator
// failed and the returned text is the fixed apology.
func (e *Engine) DraftBatch(ctx context.Context, emails []models.EmailMeta, start, size int) (string, bool) {
	end := start + size
	if end > len(emails) {
		end = len(emails)
	}
	if start >= end {
		return msgDraftsComplete, true
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		em := emails[i]
		preview := em.BodyPreview
		if len(preview) > bodyPreviewLimit {
			preview = preview[:bodyPreviewLimit]
		}
		fmt.Fprintf(&b, "%d) From: %s\nSubject: %s\n", i+1, em.From, em.Subject)
		if !em.ReceivedAt.IsZero() {
			fmt.Fprintf(&b, "Received: %s\n", nltime.HumanReadable(em.ReceivedAt))
		}
		fmt.Fprintf(&b, "Body: %s\n\n", preview)
	}

	out, err := e.genaiClient.Complete(ctx, draftSystemPrompt, b.String())
	if err != nil {
		metrics.RecordCollaboratorCall("chat_completion", "generic")
		slog.Error("Engine.DraftBatch: draft generation failed", "error", err, "from", start, "to", end)
		return msgDraftApology, false
	}
	metrics.RecordCollaboratorCall("chat_completion", "success")
	return strings.TrimSpace(out), true
}

// emailFailureMessage picks a user message for a failed inbox fetch.
func emailFailureMessage(be *integrations.BridgeError) string {
	switch be.Kind {
	case integrations.FailureAuth:
		return "I couldn't reach your inbox because your email connection has expired. Please log in again to reconnect your account."
	case integrations.FailureTimeout, integrations.FailureQuota:
		return "Your email provider isn't responding right now. Please try again in a few minutes."
	default:
		return "Sorry, I couldn't fetch your emails just now. Please try again shortly."
	}
}

// matchesWord reports whether the normalized reply equals or starts with
// one of the keywords.
func matchesWord(reply string, words []string) bool {
	for _, w := range words {
		if reply == w || strings.HasPrefix(reply, w+" ") {
			return true
		}
	}
	return false
}
