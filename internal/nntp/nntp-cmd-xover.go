package nntp

import (
	"fmt"
	"strings"

	"github.com/go-while/go-mcnttp/internal/models"
)

// resolveRangeArg turns an optional range argument into an ArticleRange,
// defaulting to the current article. Returns ok=false after a response has
// already been sent.
func (c *ClientConnection) resolveRangeArg(arg string) (ArticleRange, bool, error) {
	if arg == "" {
		if c.currentArticle == 0 {
			return ArticleRange{}, false, c.sendResponse(420, "Current article number is invalid")
		}
		return ArticleRange{Low: c.currentArticle, High: c.currentArticle}, true, nil
	}
	r, ok := ParseRange(arg)
	if !ok {
		return ArticleRange{}, false, c.sendResponse(501, "Invalid range")
	}
	return r, true, nil
}

// handleOver handles OVER (and XOVER): tab-separated overview rows for a
// range or a message identifier.
func (c *ClientConnection) handleOver(args []string) error {
	if len(args) > 0 && strings.HasPrefix(args[0], "<") {
		includeCancelled, includePending := c.includeFlags()
		article, _, err := c.server.Store.GetArticleByID(args[0], includeCancelled, includePending)
		if err != nil {
			return c.sendResponse(430, "No article with that message-id")
		}
		// Number is zero unless the article is in the current catalog.
		var num int64
		if n, ok := article.ArticleNums[baseCatalogName(c.currentGroup)]; ok {
			num = n
		}
		if err := c.sendResponse(224, "Overview information follows"); err != nil {
			return err
		}
		return c.sendDataBlock([]string{formatOverviewLine(num, article)})
	}

	if c.currentGroup == "" {
		return c.sendResponse(412, "No newsgroup selected")
	}

	var arg string
	if len(args) > 0 {
		arg = args[0]
	}
	overRange, ok, err := c.resolveRangeArg(arg)
	if !ok {
		return err
	}

	group, err := c.server.Store.LookupCatalog(c.currentGroup, c.principal)
	if err != nil {
		return c.sendResponse(411, "No such newsgroup")
	}

	entries, err := c.server.Store.RangeArticles(group, overRange.Low, overRange.High)
	if err != nil {
		return c.sendResponse(403, "Archive server temporarily offline")
	}

	if err := c.sendResponse(224, "Overview information follows"); err != nil {
		return err
	}
	var lines []string
	for _, entry := range entries {
		lines = append(lines, formatOverviewLine(entry.ArticleNum, entry.Article))
	}
	return c.sendDataBlock(lines)
}

// handleXOver handles the XOVER alias.
func (c *ClientConnection) handleXOver(args []string) error {
	return c.handleOver(args)
}

// formatOverviewLine formats one overview row:
// number, Subject, From, Date, Message-ID, References, bytes, lines.
// Subject and From carry RFC 2047 encoded-words and legacy charsets, so
// they are decoded to UTF-8 before sanitization. The byte count is body
// length doubled, kept for wire compatibility.
func formatOverviewLine(num int64, article *models.Article) string {
	return fmt.Sprintf("%d\t%s\t%s\t%s\t%s\t%s\t%d\t%d",
		num,
		models.SanitizeOverviewField(models.ConvertToUTF8(article.Subject)),
		models.SanitizeOverviewField(models.ConvertToUTF8(article.FromHeader)),
		models.SanitizeOverviewField(article.DateString),
		models.SanitizeOverviewField(article.MessageID),
		models.SanitizeOverviewField(article.References),
		article.Bytes(),
		article.Lines(),
	)
}
