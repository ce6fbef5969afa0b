package processor

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-while/go-mcnttp/internal/common"
	"github.com/go-while/go-mcnttp/internal/models"
)

// LocalHostnamePath is the hostname used in generated Path headers and in
// the default approver address. Set once at startup from configuration.
var LocalHostnamePath = "localhost"

// Hosts used in generated message identifiers.
const (
	GeneratedHostMalformed = "mcnttp.invalid" // replaced a malformed Message-ID
	GeneratedHostAbsent    = "mcnttp.auto"    // header was missing entirely
)

// DateHeaderFormat is the format written for defaulted Date and
// Injection-Date headers.
const DateHeaderFormat = "02 Jan 2006 15:04:05 +0000"

// ErrPostingRejected is returned when an incoming article fails validation.
var ErrPostingRejected = fmt.Errorf("posting rejected")

// nowUTC is replaceable in tests.
var nowUTC = func() time.Time { return time.Now().UTC() }

var (
	fromAddress = `((\s*\w+)*\s+<[^@]+@[^>]+>|[^@]+@[^>]+)`
	fromRegexp  = regexp.MustCompile(`^` + fromAddress + `(\s*,\s*` + fromAddress + `)*$`)

	// Usenet Message-ID: <id-left@id-right>, no whitespace or angle
	// brackets inside either part.
	msgIDRegexp = regexp.MustCompile(`^<[^<>@\s]+@[^<>@\s]+>$`)
)

// ValidMessageID reports whether a token satisfies the Message-ID grammar.
func ValidMessageID(id string) bool {
	return msgIDRegexp.MatchString(id)
}

// GenerateMessageID produces a fresh identifier of the form <HEX32@host>.
func GenerateMessageID(host string) string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is unrecoverable for identifier hygiene
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return fmt.Sprintf("<%s@%s>", hex.EncodeToString(buf), host)
}

// ParseArticle converts a received message (dot-unstuffed header and body
// lines, CRLF already stripped) into a structured Article. Validation order:
// header block parses, From present and well-formed, Newsgroups present,
// Subject present. The Message-ID and Date policies rewrite RawHeaders in
// place so the stored block matches what HEAD retransmits.
func ParseArticle(headLines, bodyLines []string) (*models.Article, error) {
	block, err := common.ParseHeaderBlock(headLines)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPostingRejected, err)
	}

	from := block.Get("From")
	if from == "" || !fromRegexp.MatchString(from) {
		return nil, fmt.Errorf("%w: missing or malformed From", ErrPostingRejected)
	}
	newsgroups := block.Get("Newsgroups")
	if newsgroups == "" {
		return nil, fmt.Errorf("%w: missing Newsgroups", ErrPostingRejected)
	}
	subject := block.Get("Subject")
	if subject == "" {
		return nil, fmt.Errorf("%w: missing Subject", ErrPostingRejected)
	}

	article := &models.Article{
		Subject:     subject,
		FromHeader:  from,
		Newsgroups:  newsgroups,
		BodyText:    strings.Join(bodyLines, "\n"),
		RawHeaders:  append([]string(nil), block.RawLines()...),
		ArticleNums: make(map[string]int64),
	}

	// Message-ID policy: keep a valid identifier, replace anything else.
	switch msgID := block.Get("Message-ID"); {
	case msgID == "":
		article.MessageID = GenerateMessageID(GeneratedHostAbsent)
		article.RawHeaders = common.RewriteHeaderLine(article.RawHeaders,
			"Message-ID", "Message-ID: "+article.MessageID)
	case !ValidMessageID(msgID):
		article.MessageID = GenerateMessageID(GeneratedHostMalformed)
		article.RawHeaders = common.RewriteHeaderLine(article.RawHeaders,
			"Message-ID", "Message-ID: "+article.MessageID)
	default:
		article.MessageID = msgID
	}

	// Date policy: default to current UTC when absent.
	article.DateString = block.Get("Date")
	if article.DateString == "" {
		article.DateString = nowUTC().Format(DateHeaderFormat)
		article.RawHeaders = common.RewriteHeaderLine(article.RawHeaders,
			"Date", "Date: "+article.DateString)
	}
	article.DateSent = ParseNNTPDate(article.DateString)

	article.Path = block.Get("Path")
	if article.Path == "" {
		article.Path = LocalHostnamePath + "!not-for-mail"
	}

	// Optional header set
	article.Approved = block.Get("Approved")
	article.Archive = block.Get("Archive")
	article.ContentDisposition = block.Get("Content-Disposition")
	article.ContentLanguage = block.Get("Content-Language")
	article.ContentTransferEncoding = block.Get("Content-Transfer-Encoding")
	article.ContentType = block.Get("Content-Type")
	article.Control = block.Get("Control")
	article.Distribution = block.Get("Distribution")
	article.Expires = block.Get("Expires")
	article.FollowupTo = block.Get("Followup-To")
	article.InjectionDate = block.Get("Injection-Date")
	article.InjectionInfo = block.Get("Injection-Info")
	article.MIMEVersion = block.Get("MIME-Version")
	article.Organization = block.Get("Organization")
	article.References = block.Get("References")
	article.Summary = block.Get("Summary")
	article.Supersedes = block.Get("Supersedes")
	article.UserAgent = block.Get("User-Agent")
	article.Xref = block.Get("Xref")

	return article, nil
}

// nntpDateFormats are the layouts accepted for incoming Date headers,
// most common first.
var nntpDateFormats = []string{
	time.RFC1123Z,                    // "Mon, 02 Jan 2006 15:04:05 -0700"
	time.RFC1123,                     // "Mon, 02 Jan 2006 15:04:05 MST"
	"Mon, 2 Jan 2006 15:04:05 -0700", // single digit day
	"Mon, 2 Jan 2006 15:04:05 MST",
	"02 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC822Z,
	time.RFC822,
}

// ParseNNTPDate parses a Date header into UTC, returning the zero time when
// no known layout applies.
func ParseNNTPDate(dateStr string) time.Time {
	dateStr = strings.TrimSpace(dateStr)
	for _, format := range nntpDateFormats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
