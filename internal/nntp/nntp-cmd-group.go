package nntp

import (
	"fmt"
	"math"
)

// handleGroup handles GROUP command. On success the current catalog moves
// to the named group and the current article number to its low watermark
// (unset when the group is empty).
func (c *ClientConnection) handleGroup(args []string) error {
	if len(args) == 0 {
		return c.sendResponse(501, "GROUP command requires a group name")
	}

	group, err := c.server.Store.LookupCatalog(args[0], c.principal)
	if err != nil {
		return c.sendResponse(411, "No such newsgroup")
	}

	c.currentGroup = args[0]
	c.currentArticle = group.LowWatermark // 0 when the group is empty

	return c.sendResponse(211, fmt.Sprintf("%d %d %d %s",
		group.MessageCount, group.LowWatermark, group.HighWatermark, args[0]))
}

// handleListGroup handles LISTGROUP: like GROUP plus one article number per
// line. An optional range restricts the listing.
func (c *ClientConnection) handleListGroup(args []string) error {
	groupName := c.currentGroup
	if len(args) > 0 {
		groupName = args[0]
	}
	if groupName == "" {
		return c.sendResponse(412, "No newsgroup selected")
	}

	group, err := c.server.Store.LookupCatalog(groupName, c.principal)
	if err != nil {
		return c.sendResponse(411, "No such newsgroup")
	}

	listRange := ArticleRange{Low: 1, High: math.MaxInt64}
	if len(args) > 1 {
		parsed, ok := ParseRange(args[1])
		if !ok {
			return c.sendResponse(501, "Invalid range")
		}
		listRange = parsed
	}

	c.currentGroup = groupName
	c.currentArticle = group.LowWatermark

	entries, err := c.server.Store.RangeArticles(group, listRange.Low, listRange.High)
	if err != nil {
		return c.sendResponse(403, "Archive server temporarily offline")
	}

	if err := c.sendResponse(211, fmt.Sprintf("%d %d %d %s list follows",
		group.MessageCount, group.LowWatermark, group.HighWatermark, groupName)); err != nil {
		return err
	}
	var lines []string
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("%d", entry.ArticleNum))
	}
	return c.sendDataBlock(lines)
}
