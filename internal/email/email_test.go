package email_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pestledger/registry/internal/email"
	"github.com/pestledger/registry/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sent struct {
	to      []string
	subject string
	body    string
}

type chanSender chan sent

func (c chanSender) Send(_ context.Context, to []string, subject, body string) error {
	c <- sent{to: to, subject: subject, body: body}
	return nil
}

func TestCompose(t *testing.T) {
	e := events.New(events.TechnicianStatusChanged, "technician/1", "compliance-office", 120,
		map[string]string{"active": "false"})

	subject, body := email.Compose(e)
	assert.Equal(t, "[PestLedger] technician.status_changed: technician/1", subject)
	assert.Contains(t, body, "Actor:   compliance-office")
	assert.Contains(t, body, "Height:  120")
	assert.Contains(t, body, "active: false")
}

func TestCompose_payloadSorted(t *testing.T) {
	e := events.New(events.FacilityUpdated, "facility/2", "alice", 1,
		map[string]string{"name": "Warehouse B", "address": "2 Dock St"})
	_, body := email.Compose(e)
	assert.Less(t, strings.Index(body, "address:"), strings.Index(body, "name:"))
}

func TestNotifier_sendsSelectedTypes(t *testing.T) {
	out := make(chanSender, 4)
	n := email.NewNotifier(out, []string{"ops@example.com"}, nil, zap.NewNop())

	var outcomes []bool
	done := make(chan struct{}, 1)
	n.SetMetricsRecorder(func(sink string, ok bool) {
		assert.Equal(t, "email", sink)
		outcomes = append(outcomes, ok)
		done <- struct{}{}
	})

	n.Dispatch(context.Background(), events.New(events.FacilityRegistered, "facility/1", "alice", 1, nil))
	n.Dispatch(context.Background(), events.New(events.TechnicianRenewed, "technician/3", "compliance-office", 9,
		map[string]string{"certification_expiry": "500"}))

	select {
	case m := <-out:
		assert.Equal(t, []string{"ops@example.com"}, m.to)
		assert.Contains(t, m.subject, "technician.renewed")
		assert.Contains(t, m.body, "certification_expiry: 500")
	case <-time.After(2 * time.Second):
		t.Fatal("notice not sent")
	}
	<-done
	assert.Equal(t, []bool{true}, outcomes)

	select {
	case m := <-out:
		t.Fatalf("unexpected notice %q", m.subject)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotifier_customTypes(t *testing.T) {
	out := make(chanSender, 1)
	n := email.NewNotifier(out, []string{"ops@example.com"}, []string{events.FacilityRegistered}, zap.NewNop())

	n.Dispatch(context.Background(), events.New(events.FacilityRegistered, "facility/1", "alice", 1, nil))
	select {
	case m := <-out:
		assert.Contains(t, m.subject, "facility/1")
	case <-time.After(2 * time.Second):
		t.Fatal("notice not sent")
	}
}

func TestNotifier_noRecipients(t *testing.T) {
	out := make(chanSender, 1)
	n := email.NewNotifier(out, nil, nil, zap.NewNop())
	n.Dispatch(context.Background(), events.New(events.AdminTransferred, "admin", "a", 1, nil))

	select {
	case <-out:
		t.Fatal("sent without recipients")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLogSender(t *testing.T) {
	s := email.NewLogSender(zap.NewNop())
	require.NoError(t, s.Send(context.Background(), []string{"a@example.com"}, "s", "b"))
}

func TestSMTPSender_noRecipients(t *testing.T) {
	s := email.NewSMTPSender(email.SMTPConfig{Host: "localhost", From: "registry@example.com"})
	assert.Error(t, s.Send(context.Background(), nil, "s", "b"))
}
