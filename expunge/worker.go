// Package expunge runs one pass over the enabled expiry policies, expunging
// the expired messages of each policy's mailbox through doveadm.
//
// Policies are processed one at a time, in the order the database returns
// them. For each policy the worker first lists the messages that are about
// to go (best-effort, for debug logging only) and then expunges them. The
// listing never blocks the expunge, and the result of the expunge is not
// inspected beyond reporting any output doveadm printed.
package expunge

import (
	"context"
	"fmt"

	"github.com/migadu/dovecot-expunge/db"
	"github.com/migadu/dovecot-expunge/doveadm"
	"github.com/migadu/dovecot-expunge/logger"
	"github.com/migadu/dovecot-expunge/pkg/metrics"
)

// RecordSource provides the expiry policies to apply.
// This allows for mocking in tests.
type RecordSource interface {
	ExpiryRecords(ctx context.Context) ([]db.ExpiryRecord, error)
}

// MailStore lists and expunges messages. *doveadm.Client implements it.
type MailStore interface {
	Fetch(ctx context.Context, user, mailbox string, days int) ([]doveadm.Message, error)
	Expunge(ctx context.Context, user, mailbox string, days int) (string, error)
}

// Summary counts what one run did.
type Summary struct {
	Policies        int // enabled policies returned by the source
	Skipped         int // policies without an account
	Expunged        int // expunge invocations
	MessagesListed  int
	ListingFailures int
	ExpungeOutputs  int // expunge invocations that printed something
}

type Worker struct {
	source RecordSource
	store  MailStore
	log    *logger.Logger
	dryRun bool
}

// New creates a Worker. In dry-run mode messages are listed but never expunged.
func New(source RecordSource, store MailStore, log *logger.Logger, dryRun bool) *Worker {
	return &Worker{
		source: source,
		store:  store,
		log:    log,
		dryRun: dryRun,
	}
}

// Run applies every enabled policy. It stops early only when the policies
// cannot be read or ctx is cancelled.
func (w *Worker) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	records, err := w.source.ExpiryRecords(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to read expiry policies: %w", err)
	}
	summary.Policies = len(records)
	metrics.PoliciesTotal.Add(float64(len(records)))

	for _, rec := range records {
		select {
		case <-ctx.Done():
			return summary, fmt.Errorf("expunge run aborted: %w", ctx.Err())
		default:
		}

		w.ExpungeRecord(ctx, rec, &summary)
	}

	return summary, nil
}

// ExpungeRecord lists, then expunges, the expired messages of one policy.
func (w *Worker) ExpungeRecord(ctx context.Context, rec db.ExpiryRecord, summary *Summary) {
	if rec.User == "" {
		w.log.Warnf("Skipping expiry policy for mailbox %s: no account", rec.Mailbox)
		summary.Skipped++
		metrics.PoliciesSkipped.WithLabelValues("no_account").Inc()
		return
	}

	w.log.Debugf("Expunging %s - %s : %d", rec.User, rec.Mailbox, rec.ExpiryDays)

	w.listMessages(ctx, rec, summary)

	if w.dryRun {
		return
	}

	// A failed expunge is reported but never stops the run.
	out, err := w.store.Expunge(ctx, rec.User, rec.Mailbox, rec.ExpiryDays)
	summary.Expunged++
	if err != nil {
		w.log.Warnf("Expunge for user %s failed: %v", rec.User, err)
	}
	if out != "" {
		w.log.Infof("Expunge for user %s returned: %s", rec.User, out)
		summary.ExpungeOutputs++
		metrics.ExpungeOutputs.Inc()
	}
}

// listMessages logs the messages about to be expunged. Failures are swallowed,
// after logging whatever was listed before the failure.
func (w *Worker) listMessages(ctx context.Context, rec db.ExpiryRecord, summary *Summary) {
	messages, err := w.store.Fetch(ctx, rec.User, rec.Mailbox, rec.ExpiryDays)
	if err != nil {
		summary.ListingFailures++
		metrics.ListingFailures.Inc()
	}

	summary.MessagesListed += len(messages)
	metrics.MessagesListed.Add(float64(len(messages)))

	for _, msg := range messages {
		if w.dryRun {
			w.log.Infof("Would expunge message %s of %s in %s, from %s : %s",
				msg.UID(), rec.User, rec.Mailbox, msg.From(), msg.Subject())
			continue
		}
		w.log.Debugf("Will expunge message %s, from %s : %s", msg.UID(), msg.From(), msg.Subject())
	}
}
