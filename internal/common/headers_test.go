package common

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseHeaderBlock(t *testing.T) {
	lines := []string{
		"From: a@b.invalid",
		"Subject: hello",
		" continued",
		"Newsgroups: misc.test",
		"X-Empty:",
	}

	block, err := ParseHeaderBlock(lines)
	if err != nil {
		t.Fatalf("ParseHeaderBlock failed: %v", err)
	}

	if got := block.Get("from"); got != "a@b.invalid" {
		t.Errorf("Get(from) = %q, want a@b.invalid", got)
	}
	if got := block.Get("Subject"); got != "hello continued" {
		t.Errorf("Get(Subject) = %q, want unfolded value", got)
	}
	if got := block.Get("x-empty"); got != "" {
		t.Errorf("Get(x-empty) = %q, want empty", got)
	}
	if !block.Has("NEWSGROUPS") {
		t.Error("Has(NEWSGROUPS) = false, want true")
	}
	if block.Has("missing") {
		t.Error("Has(missing) = true, want false")
	}
}

func TestParseHeaderBlockRoundTrip(t *testing.T) {
	lines := []string{
		"From: a@b.invalid",
		"Subject: a long subject",
		"\tfolded with tab",
		" and with space",
		"Message-ID: <t1@x>",
	}

	block, err := ParseHeaderBlock(lines)
	if err != nil {
		t.Fatalf("ParseHeaderBlock failed: %v", err)
	}
	if got := block.RawLines(); !reflect.DeepEqual(got, lines) {
		t.Errorf("RawLines() = %#v, want original lines", got)
	}
}

func TestParseHeaderBlockInvalid(t *testing.T) {
	cases := [][]string{
		{" leading continuation"},
		{"NoColonHere"},
		{": empty name"},
		{"Bad Name: has space"},
		{"From: ok", ""},
	}
	for _, lines := range cases {
		if _, err := ParseHeaderBlock(lines); !errors.Is(err, ErrInvalidHeader) {
			t.Errorf("ParseHeaderBlock(%q) err = %v, want ErrInvalidHeader", lines, err)
		}
	}
}

func TestRemoveHeaderLines(t *testing.T) {
	raw := []string{
		"From: a@b.invalid",
		"Approved: mod@example.org",
		" folded",
		"Subject: hi",
	}
	got := RemoveHeaderLines(raw, "approved")
	want := []string{"From: a@b.invalid", "Subject: hi"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RemoveHeaderLines = %#v, want %#v", got, want)
	}
}

func TestRewriteHeaderLine(t *testing.T) {
	raw := []string{
		"From: a@b.invalid",
		"Message-ID: bogus",
		"Subject: hi",
	}
	got := RewriteHeaderLine(raw, "Message-ID", "Message-ID: <new@host>")
	want := []string{
		"From: a@b.invalid",
		"Message-ID: <new@host>",
		"Subject: hi",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RewriteHeaderLine = %#v, want %#v", got, want)
	}

	// Absent header is appended
	got = RewriteHeaderLine(want, "Date", "Date: 01 Jan 2026 00:00:00 +0000")
	if got[len(got)-1] != "Date: 01 Jan 2026 00:00:00 +0000" {
		t.Errorf("RewriteHeaderLine append = %#v", got)
	}
}

func TestGetHeaderFromRaw(t *testing.T) {
	raw := []string{
		"From: a@b.invalid",
		"Organization: Example",
		" Org Continued",
		"Subject: hi",
	}
	if got := GetHeaderFromRaw(raw, "organization"); got != "Example Org Continued" {
		t.Errorf("GetHeaderFromRaw = %q", got)
	}
	if got := GetHeaderFromRaw(raw, "missing"); got != "" {
		t.Errorf("GetHeaderFromRaw(missing) = %q, want empty", got)
	}
}
