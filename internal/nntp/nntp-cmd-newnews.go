package nntp

import (
	"fmt"
	"strings"
	"time"
)

// parseNNTPDateTime parses the NEWGROUPS/NEWNEWS "date time [GMT]" triple.
// The date is YYMMDD or YYYYMMDD; with the GMT keyword the stamp is taken
// as UTC, otherwise as server local time converted to UTC.
func parseNNTPDateTime(dateStr, timeStr string, gmt bool) (time.Time, error) {
	var layout string
	switch len(dateStr) {
	case 6:
		layout = "060102 150405"
	case 8:
		layout = "20060102 150405"
	default:
		return time.Time{}, fmt.Errorf("invalid date %q", dateStr)
	}
	if len(timeStr) != 6 {
		return time.Time{}, fmt.Errorf("invalid time %q", timeStr)
	}

	loc := time.Local
	if gmt {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(layout, dateStr+" "+timeStr, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// hasGMTKeyword checks the optional trailing GMT argument.
func hasGMTKeyword(args []string) bool {
	return len(args) > 0 && strings.EqualFold(args[len(args)-1], "GMT")
}

// handleNewGroups lists catalogs created at or after the supplied stamp.
func (c *ClientConnection) handleNewGroups(args []string) error {
	if len(args) < 2 {
		return c.sendResponse(501, "NEWGROUPS requires date and time")
	}

	since, err := parseNNTPDateTime(args[0], args[1], hasGMTKeyword(args[2:]))
	if err != nil {
		return c.sendResponse(501, "Invalid date or time")
	}

	groups, err := c.server.Store.GroupsSince(since)
	if err != nil {
		return c.sendResponse(403, "Archive server temporarily offline")
	}

	var lines []string
	for _, group := range groups {
		lines = append(lines, fmt.Sprintf("%s %d %d %s",
			group.Name, group.HighWatermark, group.LowWatermark, group.Status()))
	}
	return c.sendMultilineResponse(231, "New newsgroups follow", lines)
}

// handleNewNews lists message-ids of articles posted at or after the stamp
// in catalogs matching the wildmat.
func (c *ClientConnection) handleNewNews(args []string) error {
	if len(args) < 3 {
		return c.sendResponse(501, "NEWNEWS requires wildmat, date and time")
	}

	wildmat := ParseWildmat(args[0])
	since, err := parseNNTPDateTime(args[1], args[2], hasGMTKeyword(args[3:]))
	if err != nil {
		return c.sendResponse(501, "Invalid date or time")
	}

	entries, err := c.server.Store.ArticlesSince(since)
	if err != nil {
		return c.sendResponse(403, "Archive server temporarily offline")
	}

	seen := make(map[string]bool)
	var lines []string
	for _, entry := range entries {
		if !wildmat.Match(entry.Newsgroup) {
			continue
		}
		msgID := entry.Article.MessageID
		if seen[msgID] {
			continue
		}
		seen[msgID] = true
		lines = append(lines, msgID)
	}
	return c.sendMultilineResponse(230, "List of new articles follows", lines)
}
