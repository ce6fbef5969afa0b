package nntp

import (
	"fmt"

	"github.com/go-while/go-mcnttp/internal/models"
)

// LAST and NEXT move the current article pointer to the adjacent
// non-cancelled, non-pending article. At the boundary the error code goes
// out and the pointer stays put, so NEXT and LAST remain inverses.

// handleLast handles LAST command
func (c *ClientConnection) handleLast(args []string) error {
	return c.moveCurrentArticle(func(group *models.Newsgroup) (*models.ArticleEntry, error) {
		return c.server.Store.LastArticleBefore(group, c.currentArticle)
	}, 422, "No previous article in this group")
}

// handleNext handles NEXT command
func (c *ClientConnection) handleNext(args []string) error {
	return c.moveCurrentArticle(func(group *models.Newsgroup) (*models.ArticleEntry, error) {
		return c.server.Store.NextArticleAfter(group, c.currentArticle)
	}, 421, "No next article in this group")
}

func (c *ClientConnection) moveCurrentArticle(
	move func(group *models.Newsgroup) (*models.ArticleEntry, error),
	failCode int, failText string) error {

	if c.currentGroup == "" {
		return c.sendResponse(412, "No newsgroup selected")
	}
	if c.currentArticle == 0 {
		return c.sendResponse(420, "Current article number is invalid")
	}

	group, err := c.server.Store.LookupCatalog(c.currentGroup, c.principal)
	if err != nil {
		return c.sendResponse(411, "No such newsgroup")
	}

	entry, err := move(group)
	if err != nil {
		return c.sendResponse(failCode, failText)
	}

	c.currentArticle = entry.ArticleNum
	return c.sendResponse(223, fmt.Sprintf("%d %s", entry.ArticleNum, entry.Article.MessageID))
}
