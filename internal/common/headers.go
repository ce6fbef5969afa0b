// Package common provides shared header parsing utilities for go-mcnttp
package common

import (
	"fmt"
	"strings"
)

// ErrInvalidHeader is returned when a header block line matches neither a
// header line nor a folded continuation.
var ErrInvalidHeader = fmt.Errorf("invalid header line")

// HeaderEntry is one logical header: its name as it appeared on the wire,
// the unfolded value, and the original physical lines so edits to a raw
// header block can remove or rewrite exactly what was received.
type HeaderEntry struct {
	Name     string
	Value    string
	RawLines []string
}

// Key returns the case-insensitive lookup key for the entry.
func (e *HeaderEntry) Key() string {
	return strings.ToLower(e.Name)
}

// HeaderBlock is an ordered header sequence plus a case-insensitive index.
type HeaderBlock struct {
	entries []*HeaderEntry
	index   map[string][]*HeaderEntry
}

// ParseHeaderBlock parses raw header lines (no CRLF terminators, body not
// included) into a HeaderBlock. Folding: a line starting with space or tab
// continues the previous header, with the leading whitespace collapsed to a
// single space. A header name is one or more printable ASCII characters
// (0x21-0x7E) excluding the colon, followed by a colon and the value.
func ParseHeaderBlock(lines []string) (*HeaderBlock, error) {
	block := &HeaderBlock{
		index: make(map[string][]*HeaderEntry),
	}
	var current *HeaderEntry

	for _, line := range lines {
		if line == "" {
			return nil, fmt.Errorf("%w: empty line inside header block", ErrInvalidHeader)
		}
		if line[0] == ' ' || line[0] == '\t' {
			// Folded continuation
			if current == nil {
				return nil, fmt.Errorf("%w: continuation without header", ErrInvalidHeader)
			}
			current.Value += " " + strings.TrimLeft(line, " \t")
			current.RawLines = append(current.RawLines, line)
			continue
		}

		name, value, ok := splitHeaderLine(line)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, line)
		}
		current = &HeaderEntry{
			Name:     name,
			Value:    value,
			RawLines: []string{line},
		}
		block.entries = append(block.entries, current)
		block.index[current.Key()] = append(block.index[current.Key()], current)
	}

	return block, nil
}

// splitHeaderLine splits "Name: value" and validates the name charset. A
// single space after the colon is consumed; the value may be empty.
func splitHeaderLine(line string) (name, value string, ok bool) {
	colon := strings.IndexByte(line, ':')
	if colon <= 0 {
		return "", "", false
	}
	name = line[:colon]
	for i := 0; i < len(name); i++ {
		if name[i] <= 0x20 || name[i] > 0x7E {
			return "", "", false
		}
	}
	value = line[colon+1:]
	value = strings.TrimPrefix(value, " ")
	return name, value, true
}

// Get returns the first value for a header name, or "" when absent.
func (h *HeaderBlock) Get(name string) string {
	entries := h.index[strings.ToLower(name)]
	if len(entries) == 0 {
		return ""
	}
	return entries[0].Value
}

// Has reports whether at least one header with the given name is present.
func (h *HeaderBlock) Has(name string) bool {
	return len(h.index[strings.ToLower(name)]) > 0
}

// All returns every value for a header name in order of appearance.
func (h *HeaderBlock) All(name string) []string {
	entries := h.index[strings.ToLower(name)]
	values := make([]string, 0, len(entries))
	for _, e := range entries {
		values = append(values, e.Value)
	}
	return values
}

// Entries returns the ordered header sequence.
func (h *HeaderBlock) Entries() []*HeaderEntry {
	return h.entries
}

// RawLines reconstructs the original header block line for line.
func (h *HeaderBlock) RawLines() []string {
	var lines []string
	for _, e := range h.entries {
		lines = append(lines, e.RawLines...)
	}
	return lines
}

// RemoveHeaderLines deletes every occurrence of the named header (including
// folded continuations) from a raw header block and returns the result.
func RemoveHeaderLines(raw []string, name string) []string {
	prefix := strings.ToLower(name) + ":"
	var out []string
	skipping := false
	for _, line := range raw {
		if line != "" && (line[0] == ' ' || line[0] == '\t') {
			if skipping {
				continue
			}
			out = append(out, line)
			continue
		}
		skipping = strings.HasPrefix(strings.ToLower(line), prefix)
		if skipping {
			continue
		}
		out = append(out, line)
	}
	return out
}

// RewriteHeaderLine replaces the named header in a raw header block with a
// single new line, appending the line when the header was absent.
func RewriteHeaderLine(raw []string, name, newLine string) []string {
	prefix := strings.ToLower(name) + ":"
	var out []string
	replaced := false
	skipping := false
	for _, line := range raw {
		if line != "" && (line[0] == ' ' || line[0] == '\t') {
			if skipping {
				continue
			}
			out = append(out, line)
			continue
		}
		skipping = strings.HasPrefix(strings.ToLower(line), prefix)
		if skipping {
			if !replaced {
				out = append(out, newLine)
				replaced = true
			}
			continue
		}
		out = append(out, line)
	}
	if !replaced {
		out = append(out, newLine)
	}
	return out
}

// GetHeaderFromRaw extracts a single header value from a raw header block
// without a full parse, unfolding continuations. Used for HDR on headers
// that are not stored as dedicated columns.
func GetHeaderFromRaw(raw []string, name string) string {
	prefix := strings.ToLower(name) + ":"
	collecting := false
	var value string
	for _, line := range raw {
		if line != "" && (line[0] == ' ' || line[0] == '\t') {
			if collecting {
				value += " " + strings.TrimLeft(line, " \t")
			}
			continue
		}
		if collecting {
			break
		}
		if strings.HasPrefix(strings.ToLower(line), prefix) {
			value = strings.TrimPrefix(line[len(prefix):], " ")
			collecting = true
		}
	}
	return value
}
