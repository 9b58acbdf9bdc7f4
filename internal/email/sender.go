// Package email sends compliance notices (technician status changes,
// certification renewals, admin hand-overs) to a fixed list of compliance
// inboxes. It plugs into the registries as an events.Dispatcher.
package email

import "context"

// Sender delivers a plain-text message to one or more recipients.
type Sender interface {
	Send(ctx context.Context, to []string, subject, body string) error
}
