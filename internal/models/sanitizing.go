package models

import (
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Overview field sanitization.

// SanitizeOverviewField makes a header value safe for a tab-separated
// overview row: CR, LF, TAB and NUL are replaced with a single space.
func SanitizeOverviewField(value string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\r', '\n', '\t', 0:
			return ' '
		}
		return r
	}, value)
}

// ConvertToUTF8 decodes MIME encoded-words (RFC 2047) and converts legacy
// charset text to UTF-8. Used for header values emitted into overview rows.
func ConvertToUTF8(text string) string {
	decoder := mime.WordDecoder{
		CharsetReader: charsetReader,
	}
	decoded, err := decoder.DecodeHeader(text)
	if err != nil {
		decoded = text
	}

	if utf8.ValidString(decoded) {
		return decoded
	}

	// Non-UTF-8 without an encoded-word wrapper: assume Latin-1
	result, _, err := transform.String(charmap.ISO8859_1.NewDecoder(), decoded)
	if err != nil {
		return strings.ToValidUTF8(decoded, "�")
	}
	return result
}

// charsetReader resolves legacy charsets through htmlindex, which covers far
// more encodings than the standard mime package alone.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(normalizeCharsetName(charset))
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return input, nil
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

// normalizeCharsetName maps common aliases to htmlindex names.
func normalizeCharsetName(charset string) string {
	normalized := strings.ToLower(strings.TrimSpace(charset))
	switch normalized {
	case "iso8859-1", "iso_8859-1", "latin-1", "latin1":
		return "iso-8859-1"
	case "iso8859-15", "iso_8859-15", "latin-9", "latin9":
		return "iso-8859-15"
	case "cp1252", "win1252":
		return "windows-1252"
	case "us-ascii", "ascii":
		return "windows-1252"
	case "utf8":
		return "utf-8"
	}
	return normalized
}
