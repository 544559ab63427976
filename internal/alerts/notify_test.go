package alerts_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karthiivan/sih/internal/alerts"
)

func TestEmailNotifierDryRun(t *testing.T) {
	n := alerts.NewEmailNotifier(alerts.SMTPConfig{
		Host: "smtp.example.com", Port: 587, User: "u", Pass: "p",
	})

	res, err := n.Notify(context.Background(), "a@b.com", "subject", "message", true)
	require.NoError(t, err)
	assert.True(t, res.Sent, "dry run must report success without any delivery")
	assert.True(t, res.DryRun)
	assert.Equal(t, "a@b.com", res.To)
}

func TestEmailNotifierMissingCredentialsSimulates(t *testing.T) {
	n := alerts.NewEmailNotifier(alerts.SMTPConfig{})

	res, err := n.Notify(context.Background(), "a@b.com", "subject", "message", false)
	require.NoError(t, err)
	assert.False(t, res.Sent)
	assert.NotEmpty(t, res.Detail)
}

type fakeSMS struct {
	sent []string
	err  error
}

func (f *fakeSMS) Send(_ context.Context, to, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, to)
	return "SM123", nil
}

func TestSMSNotifierDryRunSkipsTransport(t *testing.T) {
	sender := &fakeSMS{}
	n := alerts.NewSMSNotifier(sender)

	res, err := n.Notify(context.Background(), "+911234567890", "", "message", true)
	require.NoError(t, err)
	assert.True(t, res.Sent)
	assert.True(t, res.DryRun)
	assert.Empty(t, sender.sent, "dry run must not contact the transport")
}

func TestSMSNotifierSends(t *testing.T) {
	sender := &fakeSMS{}
	n := alerts.NewSMSNotifier(sender)

	res, err := n.Notify(context.Background(), "+911234567890", "", "message", false)
	require.NoError(t, err)
	assert.True(t, res.Sent)
	assert.Equal(t, "SM123", res.Detail)
	assert.Equal(t, []string{"+911234567890"}, sender.sent)
}

func TestSMSNotifierDeliveryFailure(t *testing.T) {
	sender := &fakeSMS{err: errors.New("twilio 502")}
	n := alerts.NewSMSNotifier(sender)

	res, err := n.Notify(context.Background(), "+911234567890", "", "message", false)
	require.Error(t, err)
	assert.False(t, res.Sent)
}

func TestSMSNotifierWithoutSenderSimulates(t *testing.T) {
	n := alerts.NewSMSNotifier(nil)

	res, err := n.Notify(context.Background(), "+911234567890", "", "message", false)
	require.NoError(t, err)
	assert.False(t, res.Sent)
	assert.NotEmpty(t, res.Detail)
}
