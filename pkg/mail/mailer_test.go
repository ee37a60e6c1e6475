package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"gopkg.in/gomail.v2"
)

type recordingSender struct {
	from   string
	to     []string
	body   bytes.Buffer
	closed bool
	err    error
}

func (r *recordingSender) Send(from string, to []string, msg io.WriterTo) error {
	if r.err != nil {
		return r.err
	}
	r.from = from
	r.to = append([]string(nil), to...)
	_, err := msg.WriteTo(&r.body)
	return err
}

func (r *recordingSender) Close() error {
	r.closed = true
	return nil
}

func newTestMailer(t *testing.T, sender *recordingSender) *smtpMailer {
	t.Helper()
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "no-reply@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error creating mailer: %v", err)
	}
	sm := mailer.(*smtpMailer)
	sm.dial = func(SMTPSettings) (gomail.SendCloser, error) { return sender, nil }
	return sm
}

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
	})
	if err == nil || !strings.Contains(err.Error(), "host is required") {
		t.Fatalf("expected host validation error, got %v", err)
	}

	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: false,
	})
	if err != nil {
		t.Fatalf("expected disabled configuration to succeed: %v", err)
	}

	if mailer == nil {
		t.Fatal("expected mailer to be returned")
	}
}

func TestSMTPMailerSendDisabled(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: false,
	})
	if err != nil {
		t.Fatalf("unexpected error creating mailer: %v", err)
	}

	err = mailer.Send(context.Background(), Message{
		To:      []string{"test@example.com"},
		Subject: "Test",
		Body:    "Hello",
	})
	if !errors.Is(err, ErrSMTPDisabled) {
		t.Fatalf("expected ErrSMTPDisabled, got %v", err)
	}
}

func TestSMTPMailerDeliversThroughSender(t *testing.T) {
	sender := &recordingSender{}
	mailer := newTestMailer(t, sender)

	err := mailer.Send(context.Background(), Message{
		To:      []string{"alice@example.com", " alice@example.com "},
		Subject: "Team invitation\r\nBcc: evil@example.com",
		Body:    "Join Rocket",
	})
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}

	if sender.from != "no-reply@example.com" {
		t.Fatalf("expected default from, got %q", sender.from)
	}
	if len(sender.to) != 1 || sender.to[0] != "alice@example.com" {
		t.Fatalf("unexpected recipients: %v", sender.to)
	}
	if !sender.closed {
		t.Fatal("expected sender to be closed")
	}
	raw := sender.body.String()
	if !strings.Contains(raw, "Join Rocket") {
		t.Fatalf("expected body in message, got %q", raw)
	}
	if strings.Contains(raw, "\r\nBcc:") {
		t.Fatalf("expected subject to be sanitised, got %q", raw)
	}
}

func TestSMTPMailerPropagatesSendFailure(t *testing.T) {
	sender := &recordingSender{err: errors.New("421 try later")}
	mailer := newTestMailer(t, sender)

	err := mailer.Send(context.Background(), Message{To: []string{"bob@example.com"}, Body: "hi"})
	if err == nil || !strings.Contains(err.Error(), "421 try later") {
		t.Fatalf("expected send error, got %v", err)
	}
}

func TestSMTPMailerDefaultTimeout(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "no-reply@example.com",
		UseTLS:  true,
	})
	if err != nil {
		t.Fatalf("unexpected error creating mailer: %v", err)
	}

	sm, ok := mailer.(*smtpMailer)
	if !ok {
		t.Fatalf("expected smtpMailer type")
	}

	if sm.cfg.Timeout != 10*time.Second {
		t.Fatalf("expected timeout to be 10s, got %v", sm.cfg.Timeout)
	}
}

func TestSMTPMailerSendRequiresRecipients(t *testing.T) {
	mailer := newTestMailer(t, &recordingSender{})

	err := mailer.Send(context.Background(), Message{
		To:      []string{"   ", "\t"},
		Subject: "No recipients",
		Body:    "Body",
	})
	if err == nil || !strings.Contains(err.Error(), "at least one recipient") {
		t.Fatalf("expected missing recipient error, got %v", err)
	}
}

func TestSMTPMailerSendValidatesAddresses(t *testing.T) {
	mailer := newTestMailer(t, &recordingSender{})

	err := mailer.Send(context.Background(), Message{
		From: "invalid-from",
		To:   []string{"user@example.com"},
	})
	if err == nil || !strings.Contains(err.Error(), "invalid from address") {
		t.Fatalf("expected invalid from error, got %v", err)
	}

	err = mailer.Send(context.Background(), Message{
		To: []string{"user@example.com", "bad-address"},
	})
	if err == nil || !strings.Contains(err.Error(), "invalid recipient address") {
		t.Fatalf("expected invalid recipient error, got %v", err)
	}
}

func TestValidAddress(t *testing.T) {
	if !ValidAddress("c@x.com") {
		t.Fatal("expected simple address to be valid")
	}
	for _, addr := range []string{"", "  ", "no-at-sign", "a@"} {
		if ValidAddress(addr) {
			t.Fatalf("expected %q to be invalid", addr)
		}
	}
}

func TestUniqueAddresses(t *testing.T) {
	addresses := []string{"alice@example.com", "bob@example.com", " alice@example.com ", "", "bob@example.com"}
	result := uniqueAddresses(addresses)
	if len(result) != 2 {
		t.Fatalf("expected 2 unique addresses, got %d: %v", len(result), result)
	}
	if result[0] != "alice@example.com" || result[1] != "bob@example.com" {
		t.Fatalf("unexpected result order/content: %v", result)
	}
}
