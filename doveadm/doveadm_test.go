package doveadm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls  [][]string
	output map[string]string
	err    map[string]error
}

func (f *fakeRunner) Run(_ context.Context, args ...string) ([]byte, error) {
	f.calls = append(f.calls, args)
	return []byte(f.output[args[0]]), f.err[args[0]]
}

func TestFetchArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"fetch", "-u", "a@b.com", "uid hdr.subject hdr.from", "mailbox", "INBOX", "savedbefore", "30d"},
		FetchArgs("a@b.com", "INBOX", 30))
}

func TestExpungeArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"expunge", "-u", "c@d.com", "mailbox", "Trash", "savedbefore", "7d"},
		ExpungeArgs("c@d.com", "Trash", 7))
}

func TestParseFetchOutput(t *testing.T) {
	out := "uid: 4\nhdr.subject: Re: lunch\nhdr.from: Alice <alice@example.com>\n\f\n" +
		"uid: 9\nhdr.subject: =?UTF-8?B?w4RwZmVs?=\nhdr.from: =?ISO-8859-1?Q?J=F6rg?= <jorg@example.com>\n\f\n"

	messages, err := ParseFetchOutput([]byte(out))
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, "4", messages[0].UID())
	assert.Equal(t, "Re: lunch", messages[0].Subject())
	assert.Equal(t, "Alice <alice@example.com>", messages[0].From())

	assert.Equal(t, "9", messages[1].UID())
	assert.Equal(t, "Äpfel", messages[1].Subject())
	assert.Equal(t, "Jörg <jorg@example.com>", messages[1].From())
}

func TestParseFetchOutput_Empty(t *testing.T) {
	messages, err := ParseFetchOutput(nil)
	require.NoError(t, err)
	assert.Empty(t, messages)

	messages, err = ParseFetchOutput([]byte("\n\f\n"))
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestParseFetchOutput_Malformed(t *testing.T) {
	messages, err := ParseFetchOutput([]byte("uid: 4\nthis line has no separator\n\f\n"))
	assert.ErrorIs(t, err, ErrMalformedOutput)
	assert.Empty(t, messages)
}

func TestParseFetchOutput_MalformedKeepsEarlierMessages(t *testing.T) {
	messages, err := ParseFetchOutput([]byte("uid: 1\nhdr.subject: ok\n\f\nuid: 2\nbroken\n\f\nuid: 3\n\f\n"))
	assert.ErrorIs(t, err, ErrMalformedOutput)
	require.Len(t, messages, 1)
	assert.Equal(t, "1", messages[0].UID())
}

func TestParseFetchOutput_EmptyHeaderValue(t *testing.T) {
	messages, err := ParseFetchOutput([]byte("uid: 5\nhdr.subject:\nhdr.from: bob@example.com"))
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "", messages[0].Subject())
}

func TestClient_Fetch(t *testing.T) {
	runner := &fakeRunner{output: map[string]string{"fetch": "uid: 1\nhdr.subject: hi\nhdr.from: x@y.z\n\f\n"}}
	client := NewClient(runner)

	messages, err := client.Fetch(context.Background(), "a@b.com", "INBOX", 30)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "1", messages[0].UID())
	assert.Equal(t, [][]string{FetchArgs("a@b.com", "INBOX", 30)}, runner.calls)
}

func TestClient_FetchRunnerError(t *testing.T) {
	runner := &fakeRunner{err: map[string]error{"fetch": errors.New("exit status 68")}}
	client := NewClient(runner)

	_, err := client.Fetch(context.Background(), "a@b.com", "INBOX", 30)
	assert.Error(t, err)
}

func TestClient_ExpungeTrimsOutput(t *testing.T) {
	runner := &fakeRunner{output: map[string]string{"expunge": "\n  Mailbox doesn't exist: Trash\n"}}
	client := NewClient(runner)

	out, err := client.Expunge(context.Background(), "c@d.com", "Trash", 7)
	require.NoError(t, err)
	assert.Equal(t, "Mailbox doesn't exist: Trash", out)
	assert.Equal(t, [][]string{ExpungeArgs("c@d.com", "Trash", 7)}, runner.calls)
}

func TestExecRunner(t *testing.T) {
	runner := NewExecRunner("echo")
	out, err := runner.Run(context.Background(), "expunge", "-u", "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "expunge -u a@b.com\n", string(out))

	script := filepath.Join(t.TempDir(), "doveadm")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho 'Error: Mailbox Trash: no such mailbox' >&2\nexit 68\n"), 0755))
	_, err = NewExecRunner(script).Run(context.Background(), "expunge")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error: Mailbox Trash: no such mailbox")

	runner = NewExecRunner("false")
	_, err = runner.Run(context.Background(), "fetch")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "false fetch")

	assert.Equal(t, "doveadm", NewExecRunner("").Path)
}
