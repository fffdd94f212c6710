// Package worker runs the background consumer that turns queued
// reset-code jobs into delivered emails.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/mailer"
)

type NotifyWorker struct {
	client *amqp.Client
	sender mailer.Sender
}

func NewNotifyWorker(client *amqp.Client, sender mailer.Sender) *NotifyWorker {
	return &NotifyWorker{client: client, sender: sender}
}

// Run consumes reset-email jobs until ctx is cancelled. A failed send
// returns an error to the consumer, which requeues the job.
func (w *NotifyWorker) Run(ctx context.Context) error {
	return w.client.ConsumeResetEmails(ctx, func(msg *amqp.ResetEmailMessage) error {
		// Codes expire ten minutes after the request; delivering a dead
		// code only confuses the user, so stale jobs are dropped.
		if age := time.Since(msg.RequestedAt); age > 10*time.Minute {
			slog.WarnContext(ctx, "Dropping stale reset email job",
				"email", msg.Email, "age", age)
			return nil
		}

		if err := w.sender.Send(msg.Email, mailer.ResetCodeSubject, mailer.ResetCodeBody(msg.Code)); err != nil {
			return fmt.Errorf("send reset email: %w", err)
		}
		slog.InfoContext(ctx, "Reset email delivered", "email", msg.Email)
		return nil
	})
}
