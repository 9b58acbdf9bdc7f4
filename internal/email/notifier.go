package email

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pestledger/registry/internal/events"
	"go.uber.org/zap"
)

// DefaultNoticeTypes are the event types mailed when none are configured.
var DefaultNoticeTypes = []string{
	events.TechnicianStatusChanged,
	events.TechnicianRenewed,
	events.AdminTransferred,
}

const sendTimeout = 30 * time.Second

// Notifier mails selected lifecycle events to the compliance inboxes.
// It implements events.Dispatcher.
type Notifier struct {
	sender     Sender
	recipients []string
	types      map[string]bool
	onMetrics  events.MetricsRecorder
	logger     *zap.Logger
}

// NewNotifier creates a Notifier for the given event types. An empty types
// list selects DefaultNoticeTypes.
func NewNotifier(sender Sender, recipients, types []string, logger *zap.Logger) *Notifier {
	if len(types) == 0 {
		types = DefaultNoticeTypes
	}
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return &Notifier{
		sender:     sender,
		recipients: recipients,
		types:      set,
		logger:     logger,
	}
}

// SetMetricsRecorder configures the metrics callback.
func (n *Notifier) SetMetricsRecorder(fn events.MetricsRecorder) {
	n.onMetrics = fn
}

// Dispatch implements events.Dispatcher. Sending happens in the background.
func (n *Notifier) Dispatch(ctx context.Context, e events.Event) {
	if !n.types[e.Type] || len(n.recipients) == 0 {
		return
	}
	subject, body := Compose(e)
	go func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
		defer cancel()
		err := n.sender.Send(sctx, n.recipients, subject, body)
		if n.onMetrics != nil {
			n.onMetrics("email", err == nil)
		}
		if err != nil {
			n.logger.Warn("compliance notice failed",
				zap.String("event", e.Type),
				zap.String("subject", e.Subject),
				zap.Error(err),
			)
		}
	}()
}

// Compose renders the subject line and plain-text body for e.
func Compose(e events.Event) (subject, body string) {
	subject = fmt.Sprintf("[PestLedger] %s: %s", e.Type, e.Subject)

	var b strings.Builder
	fmt.Fprintf(&b, "Event:   %s\n", e.Type)
	fmt.Fprintf(&b, "Record:  %s\n", e.Subject)
	fmt.Fprintf(&b, "Actor:   %s\n", e.Actor)
	fmt.Fprintf(&b, "Height:  %d\n", e.Height)
	fmt.Fprintf(&b, "Time:    %s\n", e.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "Event ID: %s\n", e.ID)

	if len(e.Payload) > 0 {
		keys := make([]string, 0, len(e.Payload))
		for k := range e.Payload {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\nDetails:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %s\n", k, e.Payload[k])
		}
	}
	return subject, b.String()
}
