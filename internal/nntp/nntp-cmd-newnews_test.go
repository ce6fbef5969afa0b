package nntp

import (
	"testing"
	"time"
)

func TestParseNNTPDateTime(t *testing.T) {
	// Eight-digit date, GMT keyword
	got, err := parseNNTPDateTime("20260105", "103000", true)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2026, 1, 5, 10, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parseNNTPDateTime = %v, want %v", got, want)
	}

	// Six-digit date
	got, err = parseNNTPDateTime("260105", "103000", true)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(want) {
		t.Errorf("six-digit date = %v, want %v", got, want)
	}

	// Without GMT the stamp is local time converted to UTC
	got, err = parseNNTPDateTime("20260105", "103000", false)
	if err != nil {
		t.Fatal(err)
	}
	local := time.Date(2026, 1, 5, 10, 30, 0, 0, time.Local)
	if !got.Equal(local.UTC()) {
		t.Errorf("local stamp = %v, want %v", got, local.UTC())
	}

	for _, bad := range [][2]string{
		{"2026010", "103000"},
		{"20260105", "1030"},
		{"garbage!", "103000"},
	} {
		if _, err := parseNNTPDateTime(bad[0], bad[1], true); err == nil {
			t.Errorf("parseNNTPDateTime(%q, %q) accepted", bad[0], bad[1])
		}
	}
}

func TestHasGMTKeyword(t *testing.T) {
	if !hasGMTKeyword([]string{"GMT"}) || !hasGMTKeyword([]string{"gmt"}) {
		t.Error("GMT keyword not detected")
	}
	if hasGMTKeyword(nil) || hasGMTKeyword([]string{}) {
		t.Error("empty args must not read as GMT")
	}
}
