// Package flow: confirmation handling for fully specified meetings.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/juniperhq/concierge/internal/integrations"
	"github.com/juniperhq/concierge/internal/metrics"
	"github.com/juniperhq/concierge/internal/models"
	"github.com/juniperhq/concierge/internal/nltime"
)

// Product constants for created events. The one-hour duration and the TBD
// location are fixed product decisions, recorded in DESIGN.md.
const (
	eventDescription = "Scheduled via Concierge assistant"
	eventLocation    = "TBD"
	eventTimeZone    = "UTC"
)

// confirmMeeting converts the gathered details into a concrete event and
// invokes the calendar collaborator. The state is reset to empty no matter
// how the call ends, so a conversation can never get stuck behind a failed
// confirmation; the failure messages repeat the computed time so the user
// can add the event manually.
func (e *Engine) confirmMeeting(ctx context.Context, state models.ConversationState, authHeader string) Turn {
	empty := models.ConversationState{}
	if state.MeetingDetails == nil {
		// Defensive guard; the classifier only emits Confirmation when
		// readyToConfirm is set, which always carries details.
		slog.Warn("Engine.confirmMeeting: confirmation without meeting details, resetting")
		return Turn{Response: msgAskBoth, State: empty, Intent: models.IntentConfirmation}
	}
	details := *state.MeetingDetails

	start := nltime.Normalize(details.Time, e.now())
	end := nltime.AddOneHour(start)
	human := nltime.HumanReadable(start)

	result, err := e.bridge.CreateEvent(ctx, authHeader, integrations.EventRequest{
		Title:       details.Title,
		Description: eventDescription,
		Start:       start.Format(time.RFC3339),
		End:         end.Format(time.RFC3339),
		Location:    eventLocation,
		TimeZone:    eventTimeZone,
	})
	if err != nil {
		be := integrations.AsBridgeError(err)
		metrics.RecordCollaboratorCall("create_event", string(be.Kind))
		slog.Error("Engine.confirmMeeting: calendar call failed", "kind", be.Kind, "error", be.Message, "title", details.Title)
		return Turn{Response: confirmFailureMessage(be, details.Title, human), State: empty, Intent: models.IntentConfirmation}
	}
	metrics.RecordCollaboratorCall("create_event", "success")

	response := fmt.Sprintf("Done! \"%s\" is booked for %s.", details.Title, human)
	if result.Provider != "" {
		response += fmt.Sprintf(" It's on your %s calendar.", result.Provider)
	}
	if result.CalendarURL != "" {
		response += " Open it here: " + result.CalendarURL
	}

	if e.notifier != nil {
		summary := fmt.Sprintf("Meeting booked: %s at %s", details.Title, human)
		if nerr := e.notifier.NotifyBooked(ctx, summary); nerr != nil {
			slog.Warn("Engine.confirmMeeting: booking notification failed", "error", nerr)
		}
	}

	slog.Info("Engine.confirmMeeting: event created", "title", details.Title, "start", start)
	return Turn{Response: response, State: empty, Intent: models.IntentConfirmation}
}

// confirmFailureMessage picks a tailored apology per failure class. Every
// variant repeats the computed human-readable time.
func confirmFailureMessage(be *integrations.BridgeError, title, human string) string {
	switch be.Kind {
	case integrations.FailureAuth:
		return fmt.Sprintf("I couldn't book \"%s\" because your calendar connection has expired. Please log in again to reconnect your account, then ask me to schedule it once more. For reference, the time was %s.", title, human)
	case integrations.FailureQuota:
		return fmt.Sprintf("Your calendar provider is rate-limiting requests right now, so I couldn't book \"%s\" for %s. Please try again in a few minutes, or add it manually.", title, human)
	case integrations.FailureTimeout:
		return fmt.Sprintf("The calendar service took too long to respond, so I couldn't book \"%s\" for %s. Please try again shortly, or add it manually.", title, human)
	case integrations.FailureValidation:
		return fmt.Sprintf("The calendar service rejected the event data for \"%s\" at %s. You may want to add it manually while I look into it.", title, human)
	default:
		return fmt.Sprintf("Sorry, something went wrong while booking \"%s\" for %s. You can add it to your calendar manually in the meantime.", title, human)
	}
}
