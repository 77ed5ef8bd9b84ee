package turn

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmouallem/claude-longevity-sub000/internal/domain"
	"github.com/jmouallem/claude-longevity-sub000/internal/timeinfer"
)

// gateVerdict is the classification stepTimeConfirmationGate assigns the
// current message against an outstanding time-confirmation notification.
type gateVerdict int

const (
	gateUnrelated gateVerdict = iota
	gateAck
	gateReject
	gateCorrection
)

var ackWords = []string{"yes", "yep", "yeah", "correct", "right", "confirm", "confirmed", "that's right", "thats right", "sounds right", "ok", "okay"}
var rejectWords = []string{"no", "nope", "wrong", "incorrect", "not right", "not quite"}

// classifyGateReply heuristically buckets a short reply to a time
// confirmation prompt. A message is only eligible for ack/reject/correction
// when it is short and standalone — a long message carrying unrelated
// content falls through as unrelated so the rest of the pipeline still
// processes it normally.
func classifyGateReply(msg string) gateVerdict {
	trimmed := strings.ToLower(strings.TrimSpace(msg))
	if trimmed == "" || len(trimmed) > 120 {
		return gateUnrelated
	}
	for _, w := range rejectWords {
		if trimmed == w || strings.HasPrefix(trimmed, w+" ") {
			return gateReject
		}
	}
	for _, w := range ackWords {
		if trimmed == w || strings.HasPrefix(trimmed, w+" ") || strings.HasPrefix(trimmed, w+",") {
			return gateAck
		}
	}
	if hasClockOrDateHint(trimmed) {
		return gateCorrection
	}
	return gateUnrelated
}

func hasClockOrDateHint(text string) bool {
	hints := []string{"am", "pm", "o'clock", "oclock", ":", "yesterday", "today", "this morning", "last night", "noon", "midnight"}
	for _, h := range hints {
		if strings.Contains(text, h) {
			return true
		}
	}
	return false
}

// stepTimeConfirmationGate is turn pipeline step 4: check for an outstanding
// time-confirmation notification and let a short standalone reply close it
// (ack/reject) or rewrite the prior row's event timestamp (correction)
// instead of being handed to intent classification and log parsing.
func (o *Orchestrator) stepTimeConfirmationGate(ctx context.Context, st *turnState) (context.Context, error) {
	notifications, err := o.store.UnreadNotifications(ctx, st.userID)
	if err != nil {
		return ctx, fmt.Errorf("load unread notifications: %w", err)
	}

	var pending *domain.Notification
	var payload domain.TimeConfirmationPayload
	for i := len(notifications) - 1; i >= 0; i-- {
		n := notifications[i]
		var p domain.TimeConfirmationPayload
		if err := json.Unmarshal(n.Payload, &p); err != nil {
			continue
		}
		if p.Kind == domain.NotificationKindTimeConfirmation && p.Status == domain.TimeConfirmationPending {
			cp := n
			pending = &cp
			payload = p
			break
		}
	}
	if pending == nil {
		return ctx, nil
	}

	verdict := classifyGateReply(st.rawMessage)
	if verdict == gateUnrelated {
		return ctx, nil
	}

	switch verdict {
	case gateAck:
		payload.Status = domain.TimeConfirmationConfirmed
		if err := o.closeGateNotification(ctx, pending, payload); err != nil {
			return ctx, err
		}
		st.gateConsumed = true
		st.gateNote = "You confirmed the logged time was correct."

	case gateReject:
		payload.Status = domain.TimeConfirmationCorrected
		if err := o.closeGateNotification(ctx, pending, payload); err != nil {
			return ctx, err
		}
		st.gateConsumed = true
		st.gateNote = "Noted that the logged time was wrong; tell me the correct time and I'll fix it."

	case gateCorrection:
		tz := "UTC"
		if st.settings != nil && st.settings.Timezone != "" {
			tz = st.settings.Timezone
		}
		now := time.Now().UTC()
		inferred := timeinfer.InferEventDatetime(st.rawMessage, &now, tz)
		if err := o.store.UpdateLogEventTime(ctx, payload.Category, payload.Field, payload.RecordID, inferred.EventUTC); err != nil {
			return ctx, fmt.Errorf("apply time correction: %w", err)
		}
		payload.Status = domain.TimeConfirmationCorrected
		payload.InferredISO = inferred.EventUTC.Format(time.RFC3339)
		payload.Confidence = string(inferred.Confidence)
		if err := o.closeGateNotification(ctx, pending, payload); err != nil {
			return ctx, err
		}
		st.gateConsumed = true
		st.gateNote = "Updated the logged time to " + inferred.EventUTC.Format("Jan 2 3:04 PM") + " UTC."
	}

	return ctx, nil
}

func (o *Orchestrator) closeGateNotification(ctx context.Context, n *domain.Notification, payload domain.TimeConfirmationPayload) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode time confirmation payload: %w", err)
	}
	n.Payload = encoded
	return o.store.MarkNotificationRead(ctx, n)
}
