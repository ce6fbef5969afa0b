package processor

import (
	"fmt"
	"log"
	"strings"

	"github.com/go-while/go-mcnttp/internal/models"
)

// Control messages: the Control header carries "verb arguments". Permission
// is gated before insertion; dispatch here performs the side effects.

// canIssueControl maps a control verb to the capability it demands.
func canIssueControl(principal *models.Principal, control string) bool {
	verb, _, _ := strings.Cut(strings.TrimSpace(control), " ")
	switch strings.ToLower(verb) {
	case "cancel":
		return principal.CanCancel
	case "newgroup":
		return principal.CanCreateCatalogs
	case "rmgroup":
		return principal.CanDeleteCatalogs
	case "checkgroups":
		return principal.CanCheckCatalogs
	}
	return false
}

// dispatchControl performs the side effect of an already permission-checked
// control message.
func (p *Processor) dispatchControl(article *models.Article, principal *models.Principal) error {
	verb, rest, _ := strings.Cut(strings.TrimSpace(article.Control), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(verb) {
	case "cancel":
		if rest == "" {
			return fmt.Errorf("cancel without message-id")
		}
		affected, err := p.store.MarkCancelled(rest)
		if err != nil {
			return err
		}
		// The cancel message itself is cancelled as well.
		if _, err := p.store.MarkCancelled(article.MessageID); err != nil {
			return err
		}
		log.Printf("Cancelled %s (%d associations) by %s", rest, affected, principal.Username)
		return nil

	case "newgroup":
		name, flags, _ := strings.Cut(rest, " ")
		if name == "" {
			return fmt.Errorf("newgroup without group name")
		}
		moderated := strings.EqualFold(strings.TrimSpace(flags), "moderated")
		if _, err := p.store.CreateCatalog(name, "", moderated, principal.Username); err != nil {
			return err
		}
		log.Printf("Created newsgroup %s by %s (moderated=%v)", name, principal.Username, moderated)
		return nil

	case "rmgroup":
		if rest == "" {
			return fmt.Errorf("rmgroup without group name")
		}
		if err := p.store.RemoveCatalog(rest); err != nil {
			return err
		}
		log.Printf("Removed newsgroup %s by %s", rest, principal.Username)
		return nil

	case "checkgroups":
		// The catalog set is left unchanged: no store operation is
		// called; the dispatch only gates permission and logs.
		log.Printf("checkgroups accepted from %s", principal.Username)
		return nil
	}

	return fmt.Errorf("unknown control verb %q", verb)
}
