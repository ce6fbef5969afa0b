package nntp

import (
	"compress/gzip"
	"strings"
)

// Compressed multiline replies for the XFEATURE COMPRESS GZIP TERMINATOR
// extension: the data block goes out as one gzip blob, then the usual
// CRLF.CRLF terminator in the clear.

// sendDataBlock emits the data lines of a multiline reply whose status line
// has already been written, honoring the session's compression state.
func (c *ClientConnection) sendDataBlock(lines []string) error {
	if c.compress {
		return c.sendCompressedBlock(lines)
	}
	for _, line := range lines {
		if err := c.sendLine(line); err != nil {
			return err
		}
	}
	return c.endMultiline()
}

// sendCompressedBlock writes the dot-stuffed data lines as a single gzip
// blob followed by the terminator.
func (c *ClientConnection) sendCompressedBlock(lines []string) error {
	var sb strings.Builder
	for _, line := range lines {
		if strings.HasPrefix(line, DOT) {
			sb.WriteString(DOT)
		}
		sb.WriteString(line)
		sb.WriteString(CRLF)
	}

	zw := gzip.NewWriter(c.writer)
	if _, err := zw.Write([]byte(sb.String())); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	if _, err := c.writer.WriteString(CRLF + DOT + CRLF); err != nil {
		return err
	}
	return c.writer.Flush()
}
