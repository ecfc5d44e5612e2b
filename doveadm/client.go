package doveadm

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/migadu/dovecot-expunge/pkg/metrics"
)

// FetchFields are the fields requested from doveadm fetch.
const FetchFields = "uid hdr.subject hdr.from"

// SavedBefore formats a day count as a doveadm search date, e.g. "30d".
func SavedBefore(days int) string {
	return strconv.Itoa(days) + "d"
}

// FetchArgs lists the messages of mailbox saved more than days ago.
func FetchArgs(user, mailbox string, days int) []string {
	return []string{
		"fetch",
		"-u", user,
		FetchFields,
		"mailbox", mailbox,
		"savedbefore", SavedBefore(days),
	}
}

// ExpungeArgs deletes the messages of mailbox saved more than days ago.
func ExpungeArgs(user, mailbox string, days int) []string {
	return []string{
		"expunge",
		"-u", user,
		"mailbox", mailbox,
		"savedbefore", SavedBefore(days),
	}
}

// Client issues the fetch and expunge commands through a Runner.
type Client struct {
	runner Runner
}

func NewClient(runner Runner) *Client {
	return &Client{runner: runner}
}

// Fetch lists the messages that Expunge with the same arguments would delete.
// On malformed output the messages parsed so far come back with the error.
func (c *Client) Fetch(ctx context.Context, user, mailbox string, days int) ([]Message, error) {
	out, err := c.run(ctx, FetchArgs(user, mailbox, days))
	if err != nil {
		return nil, err
	}
	return ParseFetchOutput(out)
}

// Expunge deletes the messages and returns whatever doveadm printed, trimmed.
// doveadm is silent on success, so non-empty output is worth reporting.
func (c *Client) Expunge(ctx context.Context, user, mailbox string, days int) (string, error) {
	out, err := c.run(ctx, ExpungeArgs(user, mailbox, days))
	return strings.TrimSpace(string(out)), err
}

func (c *Client) run(ctx context.Context, args []string) ([]byte, error) {
	start := time.Now()
	out, err := c.runner.Run(ctx, args...)
	metrics.DoveadmDuration.WithLabelValues(args[0]).Observe(time.Since(start).Seconds())
	metrics.DoveadmInvocations.WithLabelValues(args[0], metrics.StatusLabel(err)).Inc()
	return out, err
}
