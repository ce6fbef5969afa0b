package nntp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-while/go-mcnttp/internal/models"
)

// ArticleRetrievalType defines what content to send
type ArticleRetrievalType int

const (
	RetrievalArticle ArticleRetrievalType = iota // Headers + Body
	RetrievalHead                                // Headers only
	RetrievalBody                                // Body only
	RetrievalStat                                // Status only (no content)
)

// retrievalCode maps the retrieval type to its success response code.
func retrievalCode(t ArticleRetrievalType) int {
	switch t {
	case RetrievalHead:
		return 221
	case RetrievalBody:
		return 222
	case RetrievalStat:
		return 223
	}
	return 220
}

// includeFlags derives which flagged associations a principal may address
// when looking up by message identifier.
func (c *ClientConnection) includeFlags() (includeCancelled, includePending bool) {
	if c.principal == nil {
		return false, false
	}
	return c.principal.CanCancel,
		c.principal.CanApproveAny || len(c.principal.Moderates) > 0
}

// retrieveArticleCommon handles the common logic for ARTICLE, HEAD, BODY
// and STAT. The argument is a message-id, an article number in the current
// catalog, or absent (current article). Virtual catalogs resolve through
// LookupCatalog like real ones.
func (c *ClientConnection) retrieveArticleCommon(args []string, retrievalType ArticleRetrievalType) error {
	var article *models.Article
	var articleNum int64

	if len(args) > 0 && strings.HasPrefix(args[0], "<") {
		includeCancelled, includePending := c.includeFlags()
		found, entries, err := c.server.Store.GetArticleByID(args[0], includeCancelled, includePending)
		if err != nil {
			return c.sendResponse(430, "No article with that message-id")
		}
		article = found
		// Report the current catalog's number when the article is in it,
		// the first association's number otherwise.
		if num, ok := article.ArticleNums[baseCatalogName(c.currentGroup)]; ok {
			articleNum = num
		} else if len(entries) > 0 {
			articleNum = entries[0].ArticleNum
		}
	} else {
		if c.currentGroup == "" {
			return c.sendResponse(412, "No newsgroup selected")
		}
		group, err := c.server.Store.LookupCatalog(c.currentGroup, c.principal)
		if err != nil {
			return c.sendResponse(411, "No such newsgroup")
		}

		if len(args) == 0 {
			if c.currentArticle == 0 {
				return c.sendResponse(420, "Current article number is invalid")
			}
			entry, err := c.server.Store.GetArticleEntry(group, c.currentArticle)
			if err != nil {
				return c.sendResponse(420, "Current article number is invalid")
			}
			article = entry.Article
			articleNum = entry.ArticleNum
		} else {
			num, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return c.sendResponse(501, "Invalid article number")
			}
			entry, lookupErr := c.server.Store.GetArticleEntry(group, num)
			if lookupErr != nil {
				return c.sendResponse(423, "No article with that number")
			}
			article = entry.Article
			articleNum = entry.ArticleNum
			c.currentArticle = articleNum
		}
	}

	code := retrievalCode(retrievalType)
	if err := c.sendResponse(code, fmt.Sprintf("%d %s", articleNum, article.MessageID)); err != nil {
		return err
	}

	switch retrievalType {
	case RetrievalArticle:
		lines := append([]string(nil), article.RawHeaders...)
		lines = append(lines, "")
		lines = append(lines, bodyLines(article)...)
		return c.sendDataBlock(lines)
	case RetrievalHead:
		return c.sendDataBlock(article.RawHeaders)
	case RetrievalBody:
		return c.sendDataBlock(bodyLines(article))
	}
	return nil // STAT carries no content
}

// bodyLines splits the stored body for transmission.
func bodyLines(article *models.Article) []string {
	if article.BodyText == "" {
		return nil
	}
	return strings.Split(article.BodyText, "\n")
}

// baseCatalogName strips a virtual-catalog suffix, since article numbers
// are keyed by the parent catalog's name.
func baseCatalogName(name string) string {
	name = strings.TrimSuffix(name, models.SuffixDeleted)
	return strings.TrimSuffix(name, models.SuffixPending)
}
