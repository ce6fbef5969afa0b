package nntp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-while/go-mcnttp/internal/common"
	"github.com/go-while/go-mcnttp/internal/models"
)

// headerValue resolves a header name against an article. The required and
// optional header set maps to dedicated fields; anything else parses out of
// the stored raw header block. The metadata pseudo-headers :bytes and
// :lines come from the overview computation.
func headerValue(article *models.Article, name string) string {
	switch strings.ToLower(name) {
	case "subject":
		return article.Subject
	case "from":
		return article.FromHeader
	case "date":
		return article.DateString
	case "message-id":
		return article.MessageID
	case "references":
		return article.References
	case "newsgroups":
		return article.Newsgroups
	case "path":
		return article.Path
	case "approved":
		return article.Approved
	case "archive":
		return article.Archive
	case "content-disposition":
		return article.ContentDisposition
	case "content-language":
		return article.ContentLanguage
	case "content-transfer-encoding":
		return article.ContentTransferEncoding
	case "content-type":
		return article.ContentType
	case "control":
		return article.Control
	case "distribution":
		return article.Distribution
	case "expires":
		return article.Expires
	case "followup-to":
		return article.FollowupTo
	case "injection-date":
		return article.InjectionDate
	case "injection-info":
		return article.InjectionInfo
	case "mime-version":
		return article.MIMEVersion
	case "organization":
		return article.Organization
	case "summary":
		return article.Summary
	case "supersedes":
		return article.Supersedes
	case "user-agent":
		return article.UserAgent
	case "xref":
		return article.Xref
	case ":bytes":
		return strconv.Itoa(article.Bytes())
	case ":lines":
		return strconv.Itoa(article.Lines())
	}
	return common.GetHeaderFromRaw(article.RawHeaders, name)
}

// handleHdr handles HDR: one header value per selected article.
func (c *ClientConnection) handleHdr(args []string) error {
	return c.headerRetrieval(args, 225, nil)
}

// handleXHdr handles the XHDR alias, which replies 221.
func (c *ClientConnection) handleXHdr(args []string) error {
	return c.headerRetrieval(args, 221, nil)
}

// handleXPat handles XPAT: like HDR but rows are filtered by wildmats on
// the header value.
func (c *ClientConnection) handleXPat(args []string) error {
	if len(args) < 3 {
		return c.sendResponse(501, "XPAT requires header, range and pattern")
	}
	patterns := make([]*Wildmat, 0, len(args)-2)
	for _, expr := range args[2:] {
		patterns = append(patterns, ParseWildmat(expr))
	}
	filter := func(value string) bool {
		for _, p := range patterns {
			if p.Match(value) {
				return true
			}
		}
		return false
	}
	return c.headerRetrieval(args[:2], 221, filter)
}

// headerRetrieval implements HDR/XHDR/XPAT over a range or message-id.
func (c *ClientConnection) headerRetrieval(args []string, code int, filter func(string) bool) error {
	if len(args) < 1 {
		return c.sendResponse(501, "Command requires a header field argument")
	}
	headerField := args[0]

	if len(args) > 1 && strings.HasPrefix(args[1], "<") {
		includeCancelled, includePending := c.includeFlags()
		article, _, err := c.server.Store.GetArticleByID(args[1], includeCancelled, includePending)
		if err != nil {
			return c.sendResponse(430, "No article with that message-id")
		}
		var num int64
		if n, ok := article.ArticleNums[baseCatalogName(c.currentGroup)]; ok {
			num = n
		}
		value := models.SanitizeOverviewField(models.ConvertToUTF8(headerValue(article, headerField)))
		if filter != nil && !filter(value) {
			return c.sendMultilineResponse(code, fmt.Sprintf("Header %s follows", headerField), nil)
		}
		return c.sendMultilineResponse(code, fmt.Sprintf("Header %s follows", headerField),
			[]string{fmt.Sprintf("%d %s", num, value)})
	}

	if c.currentGroup == "" {
		return c.sendResponse(412, "No newsgroup selected")
	}

	var arg string
	if len(args) > 1 {
		arg = args[1]
	}
	hdrRange, ok, err := c.resolveRangeArg(arg)
	if !ok {
		return err
	}

	group, err := c.server.Store.LookupCatalog(c.currentGroup, c.principal)
	if err != nil {
		return c.sendResponse(411, "No such newsgroup")
	}

	entries, err := c.server.Store.RangeArticles(group, hdrRange.Low, hdrRange.High)
	if err != nil {
		return c.sendResponse(403, "Archive server temporarily offline")
	}

	if err := c.sendResponse(code, fmt.Sprintf("Header %s follows", headerField)); err != nil {
		return err
	}
	var lines []string
	for _, entry := range entries {
		value := models.SanitizeOverviewField(models.ConvertToUTF8(headerValue(entry.Article, headerField)))
		if filter != nil && !filter(value) {
			continue
		}
		lines = append(lines, fmt.Sprintf("%d %s", entry.ArticleNum, value))
	}
	return c.sendDataBlock(lines)
}
