// Package models defines core data structures for go-mcnttp
package models

import (
	"strings"
	"time"
)

// Newsgroup represents a catalog of articles addressable as a.b.c
type Newsgroup struct {
	ID               int       `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	Description      string    `json:"description" db:"description"`
	Moderated        bool      `json:"moderated" db:"moderated"`
	DenyLocalPosting bool      `json:"deny_local_posting" db:"deny_local_posting"`
	DenyPeerPosting  bool      `json:"deny_peer_posting" db:"deny_peer_posting"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	CreatorEntity    string    `json:"creator_entity" db:"creator_entity"`

	// Derived counters, computed from the store
	MessageCount  int64 `json:"message_count" db:"message_count"`
	LowWatermark  int64 `json:"low_watermark" db:"low_watermark"`
	HighWatermark int64 `json:"high_watermark" db:"high_watermark"`

	// Virtual-catalog view flags. A real catalog has both false; the
	// name.deleted and name.pending views select the flagged subset while
	// sharing the parent's numbering.
	ViewCancelled bool `json:"-" db:"-"`
	ViewPending   bool `json:"-" db:"-"`
}

// Status returns the LIST ACTIVE status flag for the group.
func (n *Newsgroup) Status() string {
	switch {
	case n.Moderated:
		return StatusModerated
	case n.DenyLocalPosting && n.DenyPeerPosting:
		return StatusNoPost
	case n.DenyPeerPosting:
		return StatusNoPeer
	case n.DenyLocalPosting:
		return StatusNoLocal
	}
	return StatusActive
}

// GroupStatus constants for LIST ACTIVE
const (
	StatusActive    = "y" // posting allowed
	StatusNoPost    = "n" // read-only
	StatusModerated = "m" // moderated
	StatusNoPeer    = "x" // peer posting denied
	StatusNoLocal   = "j" // local posting denied
)

// Virtual catalog suffixes
const (
	SuffixDeleted = ".deleted"
	SuffixPending = ".pending"
)

// Article represents a posted message. Required headers are dedicated
// fields; the optional header set of RFC 5536 keeps one field each, empty
// string meaning absent. RawHeaders carries the header block exactly as the
// wire delivered it (one line per element, no CRLF) so HEAD/ARTICLE can
// retransmit verbatim.
type Article struct {
	MessageID  string    `json:"message_id" db:"message_id"`
	Subject    string    `json:"subject" db:"subject"`
	FromHeader string    `json:"from_header" db:"from_header"`
	Newsgroups string    `json:"newsgroups" db:"newsgroups"`
	DateString string    `json:"date_string" db:"date_string"`
	DateSent   time.Time `json:"date_sent" db:"date_sent"`
	Path       string    `json:"path" db:"path"`
	BodyText   string    `json:"body_text" db:"body_text"`

	// Optional headers
	Approved                string `json:"approved" db:"approved"`
	Archive                 string `json:"archive" db:"archive"`
	ContentDisposition      string `json:"content_disposition" db:"content_disposition"`
	ContentLanguage         string `json:"content_language" db:"content_language"`
	ContentTransferEncoding string `json:"content_transfer_encoding" db:"content_transfer_encoding"`
	ContentType             string `json:"content_type" db:"content_type"`
	Control                 string `json:"control" db:"control"`
	Distribution            string `json:"distribution" db:"distribution"`
	Expires                 string `json:"expires" db:"expires"`
	FollowupTo              string `json:"followup_to" db:"followup_to"`
	InjectionDate           string `json:"injection_date" db:"injection_date"`
	InjectionInfo           string `json:"injection_info" db:"injection_info"`
	MIMEVersion             string `json:"mime_version" db:"mime_version"`
	Organization            string `json:"organization" db:"organization"`
	References              string `json:"references" db:"references"`
	Summary                 string `json:"summary" db:"summary"`
	Supersedes              string `json:"supersedes" db:"supersedes"`
	UserAgent               string `json:"user_agent" db:"user_agent"`
	Xref                    string `json:"xref" db:"xref"`

	// RawHeaders preserves the header block as received, updated in place
	// when the injection step rewrites Message-ID, Date, Injection-Date or
	// strips headers.
	RawHeaders []string `json:"-" db:"-"`

	// Per-catalog numbers assigned at insertion, keyed by newsgroup name.
	ArticleNums map[string]int64 `json:"-" db:"-"`
}

// NewsgroupList splits the Newsgroups header into catalog names. Both
// space- and comma-separated forms occur in the wild; accept either.
func (a *Article) NewsgroupList() []string {
	var groups []string
	for _, field := range strings.FieldsFunc(a.Newsgroups, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	}) {
		if field != "" {
			groups = append(groups, field)
		}
	}
	return groups
}

// Bytes returns the overview byte count. The count is body length doubled, a
// transport approximation kept for wire compatibility with existing readers.
func (a *Article) Bytes() int {
	return len(a.BodyText) * 2
}

// Lines returns the body line count for overview rows.
func (a *Article) Lines() int {
	if a.BodyText == "" {
		return 0
	}
	return strings.Count(a.BodyText, "\n") + 1
}

// ArticleEntry is the (article, catalog, number) association. Numbers are
// catalog-local, strictly monotonic at insertion and never reused after
// cancel.
type ArticleEntry struct {
	Newsgroup  string   `json:"newsgroup" db:"newsgroup"`
	ArticleNum int64    `json:"article_num" db:"article_num"`
	Cancelled  bool     `json:"cancelled" db:"cancelled"`
	Pending    bool     `json:"pending" db:"pending"`
	Article    *Article `json:"-" db:"-"`
}

// Overview represents one OVER/XOVER row
type Overview struct {
	ArticleNum int64  `json:"article_num" db:"article_num"`
	Subject    string `json:"subject" db:"subject"`
	FromHeader string `json:"from_header" db:"from_header"`
	DateString string `json:"date_string" db:"date_string"`
	MessageID  string `json:"message_id" db:"message_id"`
	References string `json:"references" db:"references"`
	Bytes      int    `json:"bytes" db:"bytes"`
	Lines      int    `json:"lines" db:"lines"`
}

// Principal represents an authenticated NNTP identity with its capability
// set. Anonymous sessions carry a nil *Principal.
type Principal struct {
	ID       int    `json:"id" db:"id"`
	Username string `json:"username" db:"username"`
	Password string `json:"password" db:"password"` // salted SHA-512 "salt:hash" or bcrypt
	Mailbox  string `json:"mailbox" db:"mailbox"`

	CanApproveAny      bool `json:"can_approve_any" db:"can_approve_any"`
	CanCancel          bool `json:"can_cancel" db:"can_cancel"`
	CanCreateCatalogs  bool `json:"can_create_catalogs" db:"can_create_catalogs"`
	CanDeleteCatalogs  bool `json:"can_delete_catalogs" db:"can_delete_catalogs"`
	CanCheckCatalogs   bool `json:"can_check_catalogs" db:"can_check_catalogs"`
	CanInject          bool `json:"can_inject" db:"can_inject"`
	LocalAuthOnly      bool `json:"local_auth_only" db:"local_auth_only"`
	Posting            bool `json:"posting" db:"posting"`
	MaxConns           int  `json:"maxconns" db:"maxconns"`
	Moderates          []string `json:"moderates" db:"-"` // moderated group names or trailing-star patterns
	IsActive           bool `json:"is_active" db:"is_active"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
	LastLogin          *time.Time `json:"last_login" db:"last_login"`
}

// CanApprove reports whether the principal may approve postings to the
// given group, either globally or as a listed moderator.
func (p *Principal) CanApprove(group string) bool {
	if p == nil {
		return false
	}
	if p.CanApproveAny {
		return true
	}
	for _, pattern := range p.Moderates {
		if matchModeratedGroup(group, pattern) {
			return true
		}
	}
	return false
}

// matchModeratedGroup compares a group name against a moderator entry.
// Entries are plain names or trailing-star patterns (news.admin.*).
func matchModeratedGroup(group, pattern string) bool {
	if pattern == group {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(group, strings.TrimSuffix(pattern, "*"))
	}
	return false
}

// DistribPattern is one LIST DISTRIB.PATS entry: weight:wildmat:distribution
type DistribPattern struct {
	Weight       int    `json:"weight"`
	Wildmat      string `json:"wildmat"`
	Distribution string `json:"distribution"`
}

// Distribution is one LIST DISTRIBUTIONS entry
type Distribution struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
