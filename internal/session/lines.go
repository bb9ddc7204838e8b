package session

import (
	"bytes"
	"strings"
	"unicode"
)

// lineBuffer accumulates raw output and yields complete lines. Bytes are kept
// until a newline arrives, so multi-byte characters split across reads are
// decoded intact.
type lineBuffer struct {
	pending []byte
}

// feed appends p and returns every complete line, with the newline and any
// trailing carriage return removed.
func (b *lineBuffer) feed(p []byte) []string {
	b.pending = append(b.pending, p...)
	var lines []string
	for {
		i := bytes.IndexByte(b.pending, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, decodeLine(bytes.TrimRight(b.pending[:i], "\r")))
		b.pending = b.pending[i+1:]
	}
	// Drop the backing array once everything is consumed.
	if len(b.pending) == 0 {
		b.pending = nil
	}
	return lines
}

// flush returns the buffered partial line, trimmed of trailing whitespace.
// Whitespace-only remainders (typically a shell prompt's padding) are dropped.
func (b *lineBuffer) flush() (string, bool) {
	rest := decodeLine(b.pending)
	b.pending = nil
	if strings.TrimSpace(rest) == "" {
		return "", false
	}
	return strings.TrimRightFunc(rest, unicode.IsSpace), true
}

func decodeLine(p []byte) string {
	return strings.ToValidUTF8(string(p), "�")
}

// trimLineEnding strips every trailing CR and LF.
func trimLineEnding(s string) string {
	return strings.TrimRight(s, "\r\n")
}
