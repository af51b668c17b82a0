// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mailer delivers transactional email (one-time passcodes) over SMTP.

Three implementations of [Mailer] are provided:

  - SMTPMailer: gomail over an authenticated SMTP relay.
  - LogMailer: used when SMTP is not configured; writes the message to the log.
  - Async: fire-and-forget wrapper; Send returns at once and failures are logged.

Identity flows always go through Async so that a slow or broken relay never
delays or fails a registration response.
*/
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/taibuivan/bizaek/internal/platform/ctxutil"
)

// ErrNoRecipient is returned when a message has an empty To address.
var ErrNoRecipient = errors.New("mailer: empty recipient")

// Message is a single outbound email with an HTML body.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Mailer sends a message. Implementations must be safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// # SMTP

// SMTPConfig holds relay settings, usually taken from config.Config.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail through an SMTP relay with gomail.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer creates an [SMTPMailer].
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send dials the relay and delivers msg.
//
// gomail has no context support, so the dial runs in its own goroutine and
// Send gives up when ctx is done. The dial itself is then abandoned, not killed.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}

	message := gomail.NewMessage()
	message.SetHeader("From", m.from)
	message.SetHeader("To", msg.To)
	message.SetHeader("Subject", msg.Subject)
	message.SetBody("text/html", msg.HTMLBody)

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(message)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mailer: smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mailer: smtp send: %w", ctx.Err())
	}
}

// # Log only

// LogMailer writes messages to the logger instead of sending them.
// It stands in for SMTP in development when no relay is configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a [LogMailer].
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message at INFO.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	m.logger.InfoContext(ctx, "mail_not_sent_smtp_unconfigured",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.HTMLBody),
	)
	return nil
}

// # Fire and forget

// Async dispatches every message on its own goroutine.
type Async struct {
	next    Mailer
	timeout time.Duration
}

// NewAsync wraps next. Each send is bounded by timeout.
func NewAsync(next Mailer, timeout time.Duration) *Async {
	return &Async{next: next, timeout: timeout}
}

// Send schedules delivery and returns nil immediately.
//
// The caller's cancellation is detached so the send survives the end of the
// HTTP request; the request-scoped logger is kept for correlation.
func (a *Async) Send(ctx context.Context, msg Message) error {
	detached := context.WithoutCancel(ctx)

	go func() {
		sendCtx, cancel := context.WithTimeout(detached, a.timeout)
		defer cancel()

		if err := a.next.Send(sendCtx, msg); err != nil {
			ctxutil.GetLogger(detached).WarnContext(detached, "mail_dispatch_failed",
				slog.String("to", msg.To),
				slog.String("subject", msg.Subject),
				slog.Any("error", err),
			)
		}
	}()

	return nil
}
