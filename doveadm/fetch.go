package doveadm

import (
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/emersion/go-message/charset"
)

// ErrMalformedOutput is returned for fetch output lines that are not "key: value".
var ErrMalformedOutput = errors.New("malformed doveadm fetch output")

// entrySeparator ends each message in doveadm's flow formatter output.
const entrySeparator = "\n\f"

var wordDecoder = &mime.WordDecoder{CharsetReader: charset.Reader}

// Message is one entry of doveadm fetch output, keyed by field name.
type Message map[string]string

func (m Message) UID() string {
	return m["uid"]
}

// From returns hdr.from with RFC 2047 encoded-words decoded.
func (m Message) From() string {
	return decodeHeader(m["hdr.from"])
}

// Subject returns hdr.subject with RFC 2047 encoded-words decoded.
func (m Message) Subject() string {
	return decodeHeader(m["hdr.subject"])
}

// ParseFetchOutput splits doveadm fetch output into messages. Chunks without
// any ':' are skipped. A line without ':' inside a chunk stops the parse; the
// messages before it are returned along with the error.
func ParseFetchOutput(out []byte) ([]Message, error) {
	var messages []Message
	for _, chunk := range strings.Split(string(out), entrySeparator) {
		if !strings.Contains(chunk, ":") {
			continue
		}

		msg := make(Message)
		for _, line := range strings.Split(strings.TrimSpace(chunk), "\n") {
			key, value, ok := strings.Cut(line, ":")
			if !ok {
				return messages, fmt.Errorf("%w: %q", ErrMalformedOutput, line)
			}
			msg[key] = strings.TrimPrefix(value, " ")
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func decodeHeader(value string) string {
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}
