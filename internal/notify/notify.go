// Package notify fans structured events out to a pluggable sink and
// delivers one-time codes, both fire-and-forget through the worker pool.
// The core never blocks on, or fails because of, delivery.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/arvestapp/arvest-backend/internal/worker"
)

type EventType string

const (
	EventFundingInitiated    EventType = "wallet.funding_initiated"
	EventWithdrawalRequested EventType = "withdrawal.requested"
	EventWithdrawalExecuted  EventType = "withdrawal.executed"
	EventTransferExecuted    EventType = "transfer.executed"
	EventRecurringInitiated  EventType = "recurring.charge_initiated"
	EventRecurringSkipped    EventType = "recurring.charge_skipped"
)

type Event struct {
	Type   EventType      `json:"type"`
	UserID string         `json:"user_id,omitempty"`
	At     time.Time      `json:"at"`
	Data   map[string]any `json:"data,omitempty"`
}

// Sink receives events at-least-once. Implementations must tolerate
// duplicates and must not assume ordering.
type Sink interface {
	Deliver(ctx context.Context, e Event) error
}

// OTPSender delivers a one-time code out of band. Best effort: a failed
// delivery never reverts the pending action; the user re-requests.
type OTPSender interface {
	SendCode(ctx context.Context, userID, code string) error
}

type Notifier struct {
	wp   *worker.Pool
	sink Sink
	otp  OTPSender
}

func New(wp *worker.Pool, sink Sink, otp OTPSender) *Notifier {
	return &Notifier{wp: wp, sink: sink, otp: otp}
}

func (n *Notifier) Emit(e Event) {
	if n == nil || n.sink == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	n.wp.SubmitRetry(string(e.Type), 3, 500*time.Millisecond, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return n.sink.Deliver(ctx, e)
	})
}

func (n *Notifier) SendCode(userID, code string) {
	if n == nil || n.otp == nil {
		return
	}
	n.wp.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := n.otp.SendCode(ctx, userID, code); err != nil {
			slog.Error("otp delivery failed", "user", userID, "err", err)
		}
	})
}

// LogSink writes events to the process log; the default sink in dev and
// the fallback when no queue is configured.
type LogSink struct{}

func (LogSink) Deliver(_ context.Context, e Event) error {
	slog.Info("event", "type", e.Type, "user", e.UserID, "data", e.Data)
	return nil
}

// LogOTPSender is the dev OTP channel.
type LogOTPSender struct{}

func (LogOTPSender) SendCode(_ context.Context, userID, code string) error {
	slog.Info("otp issued", "user", userID, "code", code)
	return nil
}
