// Package processor implements the article posting pipeline for go-mcnttp:
// codec validation, header hygiene, moderation routing and control-message
// dispatch.
package processor

import (
	"fmt"
	"log"
	"strings"

	"github.com/go-while/go-mcnttp/internal/common"
	"github.com/go-while/go-mcnttp/internal/models"
)

// ErrNotAuthorized is returned when the posting identity lacks the
// capability a control message demands. Maps to reply 480.
var ErrNotAuthorized = fmt.Errorf("not authorized")

// Store is the persistence surface the pipeline needs.
type Store interface {
	GetNewsgroup(name string) (*models.Newsgroup, error)
	InsertArticle(article *models.Article, group string, pending bool) (int64, error)
	MarkCancelled(messageID string) (int64, error)
	MarkApproved(group, messageID, approvedBy string) error
	CreateCatalog(name, description string, moderated bool, creator string) (*models.Newsgroup, error)
	RemoveCatalog(name string) error
}

// Processor runs incoming postings through the acceptance pipeline.
type Processor struct {
	store Store
}

// NewProcessor creates a processor over the given store.
func NewProcessor(store Store) *Processor {
	return &Processor{store: store}
}

// ProcessIncomingArticle validates and stores one posting. The pipeline
// order: codec validation, header hygiene by capability, control-message
// permission gate, moderation approval shortcut, then per-catalog insertion
// with pending flags and control dispatch.
func (p *Processor) ProcessIncomingArticle(headLines, bodyLines []string, principal *models.Principal) error {
	article, err := ParseArticle(headLines, bodyLines)
	if err != nil {
		return err
	}

	// Anonymous posters cannot carry moderator approval.
	if principal == nil && article.Approved != "" {
		article.Approved = ""
		article.RawHeaders = common.RemoveHeaderLines(article.RawHeaders, "Approved")
	}

	// Supersedes is a cancel in disguise; it needs the cancel capability.
	if (principal == nil || !principal.CanCancel) && article.Supersedes != "" {
		article.Supersedes = ""
		article.RawHeaders = common.RemoveHeaderLines(article.RawHeaders, "Supersedes")
	}

	// Non-injecting identities get a fresh injection stamp and lose any
	// relaying headers they tried to carry in.
	if principal == nil || !principal.CanInject {
		article.InjectionDate = nowInjectionDate()
		article.RawHeaders = common.RewriteHeaderLine(article.RawHeaders,
			"Injection-Date", "Injection-Date: "+article.InjectionDate)
		if article.InjectionInfo != "" {
			article.InjectionInfo = ""
			article.RawHeaders = common.RemoveHeaderLines(article.RawHeaders, "Injection-Info")
		}
		if article.Xref != "" {
			article.Xref = ""
			article.RawHeaders = common.RemoveHeaderLines(article.RawHeaders, "Xref")
		}
		// RFC 5536 3.2.6: Followup-To equal to Newsgroups is redundant.
		if article.FollowupTo != "" && article.FollowupTo == article.Newsgroups {
			article.FollowupTo = ""
			article.RawHeaders = common.RemoveHeaderLines(article.RawHeaders, "Followup-To")
		}
	}

	if article.Control != "" {
		if principal == nil || !canIssueControl(principal, article.Control) {
			return fmt.Errorf("%w: control %q", ErrNotAuthorized, article.Control)
		}
	}

	if approved, err := p.tryApprovalShortcut(article, principal); approved || err != nil {
		return err
	}

	for _, group := range article.NewsgroupList() {
		g, err := p.store.GetNewsgroup(group)
		if err != nil {
			log.Printf("Posting to unknown newsgroup %q skipped (msgid %s)", group, article.MessageID)
			continue
		}
		if g.DenyLocalPosting {
			log.Printf("Posting to %q denied for local posters, skipped (msgid %s)", group, article.MessageID)
			continue
		}

		pending := g.Moderated && !principal.CanApprove(group)
		if _, err := p.store.InsertArticle(article, group, pending); err != nil {
			return fmt.Errorf("%w: %v", ErrPostingRejected, err)
		}
	}

	if article.Supersedes != "" && principal != nil && principal.CanCancel {
		if _, err := p.store.MarkCancelled(article.Supersedes); err != nil {
			log.Printf("Supersede of %s failed: %v", article.Supersedes, err)
		}
	}

	if article.Control != "" {
		if err := p.dispatchControl(article, principal); err != nil {
			return fmt.Errorf("%w: %v", ErrPostingRejected, err)
		}
	}

	return nil
}

// tryApprovalShortcut handles moderator APPROVE postings: a body starting
// with APPROVE or APPROVED, a References header naming stored pending
// articles, and approve permission on the target group. The approval
// message itself is not stored.
func (p *Processor) tryApprovalShortcut(article *models.Article, principal *models.Principal) (bool, error) {
	if principal == nil || article.References == "" {
		return false, nil
	}
	firstLine, _, _ := strings.Cut(article.BodyText, "\n")
	verb := strings.ToUpper(strings.TrimSpace(firstLine))
	if verb != "APPROVE" && verb != "APPROVED" {
		return false, nil
	}

	approvedBy := principal.Mailbox
	if approvedBy == "" {
		approvedBy = principal.Username + "@" + LocalHostnamePath
	}

	approvedAny := false
	for _, group := range article.NewsgroupList() {
		if !principal.CanApprove(group) {
			continue
		}
		for _, ref := range strings.Fields(article.References) {
			if err := p.store.MarkApproved(group, ref, approvedBy); err != nil {
				continue // reference not pending in this group
			}
			log.Printf("Approved %s in %s by %s", ref, group, approvedBy)
			approvedAny = true
		}
	}
	return approvedAny, nil
}

// nowInjectionDate stamps Injection-Date in the canonical header format.
func nowInjectionDate() string {
	return nowUTC().Format(DateHeaderFormat)
}
