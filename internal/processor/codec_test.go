package processor

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestParseArticleMinimal(t *testing.T) {
	head := []string{
		"From: a@b.invalid",
		"Newsgroups: misc.test",
		"Subject: hi",
		"Message-ID: <t1@x>",
	}
	body := []string{"body"}

	article, err := ParseArticle(head, body)
	if err != nil {
		t.Fatalf("ParseArticle failed: %v", err)
	}
	if article.MessageID != "<t1@x>" {
		t.Errorf("MessageID = %q, want <t1@x>", article.MessageID)
	}
	if article.Subject != "hi" || article.FromHeader != "a@b.invalid" {
		t.Errorf("unexpected fields: %q %q", article.Subject, article.FromHeader)
	}
	if article.BodyText != "body" {
		t.Errorf("BodyText = %q", article.BodyText)
	}
	if got := article.NewsgroupList(); !reflect.DeepEqual(got, []string{"misc.test"}) {
		t.Errorf("NewsgroupList = %v", got)
	}
	// Date was absent, so it must have been defaulted and written back.
	if article.DateString == "" {
		t.Error("DateString not defaulted")
	}
	found := false
	for _, line := range article.RawHeaders {
		if strings.HasPrefix(line, "Date: ") {
			found = true
		}
	}
	if !found {
		t.Errorf("Date not written into RawHeaders: %v", article.RawHeaders)
	}
}

func TestParseArticleValidationOrder(t *testing.T) {
	tests := []struct {
		name string
		head []string
	}{
		{"bad header block", []string{"this is not a header"}},
		{"missing From", []string{"Newsgroups: misc.test", "Subject: hi"}},
		{"malformed From", []string{"From: no-at-sign", "Newsgroups: misc.test", "Subject: hi"}},
		{"missing Newsgroups", []string{"From: a@b.invalid", "Subject: hi"}},
		{"missing Subject", []string{"From: a@b.invalid", "Newsgroups: misc.test"}},
	}
	for _, tt := range tests {
		if _, err := ParseArticle(tt.head, nil); !errors.Is(err, ErrPostingRejected) {
			t.Errorf("%s: err = %v, want ErrPostingRejected", tt.name, err)
		}
	}
}

func TestParseArticleFromForms(t *testing.T) {
	valid := []string{
		"a@b.invalid",
		"Some Name <user@example.org>",
		"user@example.org, other@example.net",
	}
	for _, from := range valid {
		head := []string{"From: " + from, "Newsgroups: misc.test", "Subject: s"}
		if _, err := ParseArticle(head, nil); err != nil {
			t.Errorf("From %q rejected: %v", from, err)
		}
	}
}

func TestMessageIDPolicy(t *testing.T) {
	// Valid identifier is kept
	head := []string{
		"From: a@b.invalid", "Newsgroups: misc.test", "Subject: s",
		"Message-ID: <keep@me>",
	}
	article, err := ParseArticle(head, nil)
	if err != nil {
		t.Fatal(err)
	}
	if article.MessageID != "<keep@me>" {
		t.Errorf("valid MessageID replaced: %q", article.MessageID)
	}

	// Malformed identifier is replaced with an @mcnttp.invalid token
	head[3] = "Message-ID: bogus"
	article, err = ParseArticle(head, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(article.MessageID, "@"+GeneratedHostMalformed+">") {
		t.Errorf("malformed MessageID got %q, want @%s suffix", article.MessageID, GeneratedHostMalformed)
	}
	if !ValidMessageID(article.MessageID) {
		t.Errorf("generated identifier %q is not valid", article.MessageID)
	}
	// And the raw block carries the replacement
	if got := rawHeader(article.RawHeaders, "Message-ID"); got != "Message-ID: "+article.MessageID {
		t.Errorf("RawHeaders line = %q", got)
	}

	// Absent identifier generates an @mcnttp.auto token
	article, err = ParseArticle(head[:3], nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(article.MessageID, "@"+GeneratedHostAbsent+">") {
		t.Errorf("absent MessageID got %q, want @%s suffix", article.MessageID, GeneratedHostAbsent)
	}
}

func rawHeader(raw []string, name string) string {
	prefix := strings.ToLower(name) + ":"
	for _, line := range raw {
		if strings.HasPrefix(strings.ToLower(line), prefix) {
			return line
		}
	}
	return ""
}

func TestValidMessageID(t *testing.T) {
	valid := []string{"<a@b>", "<t1@x>", "<abc.def@news.example.org>"}
	invalid := []string{"", "a@b", "<a@b", "<a b@c>", "<ab>", "<a@b@c d>"}
	for _, id := range valid {
		if !ValidMessageID(id) {
			t.Errorf("ValidMessageID(%q) = false, want true", id)
		}
	}
	for _, id := range invalid {
		if ValidMessageID(id) {
			t.Errorf("ValidMessageID(%q) = true, want false", id)
		}
	}
}

func TestParseArticleIdempotent(t *testing.T) {
	// Already-normalized input survives a parse round-trip byte for byte.
	head := []string{
		"From: a@b.invalid",
		"Newsgroups: misc.test",
		"Subject: round trip",
		"Message-ID: <t9@x>",
		"Date: 01 Jan 2026 12:00:00 +0000",
	}
	body := []string{"line one", "line two"}

	first, err := ParseArticle(head, body)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ParseArticle(first.RawHeaders, strings.Split(first.BodyText, "\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.RawHeaders, second.RawHeaders) {
		t.Errorf("RawHeaders changed on re-parse:\n%v\n%v", first.RawHeaders, second.RawHeaders)
	}
	if first.BodyText != second.BodyText {
		t.Errorf("BodyText changed on re-parse")
	}
	if !reflect.DeepEqual(first.RawHeaders, head) {
		t.Errorf("normalized input was mutated: %v", first.RawHeaders)
	}
}

func TestParseNNTPDate(t *testing.T) {
	got := ParseNNTPDate("Mon, 05 Jan 2026 10:30:00 +0200")
	want := time.Date(2026, 1, 5, 8, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseNNTPDate = %v, want %v", got, want)
	}
	if !ParseNNTPDate("garbage").IsZero() {
		t.Error("garbage date should parse to zero time")
	}
}

func TestGenerateMessageID(t *testing.T) {
	id := GenerateMessageID(GeneratedHostAbsent)
	if !ValidMessageID(id) {
		t.Errorf("generated id %q invalid", id)
	}
	if id == GenerateMessageID(GeneratedHostAbsent) {
		t.Error("two generated ids collided")
	}
}
