package nntp

import (
	"fmt"
	"os"
	"strings"
)

// overviewFormat is the fixed LIST OVERVIEW.FMT field order, matching the
// OVER/XOVER row layout.
var overviewFormat = []string{
	"Subject:",
	"From:",
	"Date:",
	"Message-ID:",
	"References:",
	":bytes",
	":lines",
}

// hdrSupportedHeaders enumerates the names LIST HEADERS advertises for HDR.
var hdrSupportedHeaders = []string{
	"Subject", "From", "Date", "Message-ID", "References", "Path",
	"Newsgroups", "Approved", "Archive", "Content-Disposition",
	"Content-Language", "Content-Transfer-Encoding", "Content-Type",
	"Control", "Distribution", "Expires", "Followup-To", "Injection-Date",
	"Injection-Info", "MIME-Version", "Organization", "Summary",
	"Supersedes", "User-Agent", "Xref", ":bytes", ":lines",
}

// handleList dispatches the LIST keyword family.
func (c *ClientConnection) handleList(args []string) error {
	keyword := "ACTIVE"
	if len(args) > 0 {
		keyword = strings.ToUpper(args[0])
	}

	switch keyword {
	case "ACTIVE":
		return c.handleListActive(args[1:])
	case "ACTIVE.TIMES":
		return c.handleListActiveTimes(args[1:])
	case "NEWSGROUPS":
		return c.handleListNewsgroups()
	case "OVERVIEW.FMT":
		return c.sendMultilineResponse(215, "Order of fields in overview database", overviewFormat)
	case "DISTRIB.PATS":
		return c.handleListDistribPats()
	case "DISTRIBUTIONS":
		if len(args) > 1 {
			return c.sendResponse(501, "LIST DISTRIBUTIONS takes no argument")
		}
		return c.handleListDistributions()
	case "HEADERS":
		return c.sendMultilineResponse(215, "Headers supported", hdrSupportedHeaders)
	case "MOTD":
		return c.handleListMOTD()
	default:
		return c.sendResponse(501, fmt.Sprintf("Unknown LIST keyword: %s", keyword))
	}
}

// handleListActive lists catalogs as "name high low status", optionally
// filtered by wildmat.
func (c *ClientConnection) handleListActive(args []string) error {
	groups, err := c.server.Store.ListCatalogs(c.principal)
	if err != nil {
		return c.sendResponse(403, "Archive server temporarily offline")
	}

	var filter *Wildmat
	if len(args) > 0 {
		filter = ParseWildmat(args[0])
	}

	var lines []string
	for _, group := range groups {
		if filter != nil && !filter.Match(group.Name) {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %d %d %s",
			group.Name, group.HighWatermark, group.LowWatermark, group.Status()))
	}
	return c.sendMultilineResponse(215, "Newsgroups follow", lines)
}

// handleListActiveTimes lists "name seconds-since-epoch creator".
func (c *ClientConnection) handleListActiveTimes(args []string) error {
	groups, err := c.server.Store.ListCatalogs(c.principal)
	if err != nil {
		return c.sendResponse(403, "Archive server temporarily offline")
	}

	var filter *Wildmat
	if len(args) > 0 {
		filter = ParseWildmat(args[0])
	}

	var lines []string
	for _, group := range groups {
		if filter != nil && !filter.Match(group.Name) {
			continue
		}
		creator := group.CreatorEntity
		if creator == "" {
			creator = ServerName
		}
		lines = append(lines, fmt.Sprintf("%s %d %s",
			group.Name, group.CreatedAt.UTC().Unix(), creator))
	}
	return c.sendMultilineResponse(215, "Group creation times follow", lines)
}

// handleListNewsgroups lists newsgroups with descriptions
func (c *ClientConnection) handleListNewsgroups() error {
	groups, err := c.server.Store.ListCatalogs(c.principal)
	if err != nil {
		return c.sendResponse(403, "Archive server temporarily offline")
	}

	var lines []string
	for _, group := range groups {
		lines = append(lines, fmt.Sprintf("%s\t%s", group.Name, group.Description))
	}
	return c.sendMultilineResponse(215, "Descriptions follow", lines)
}

// handleListDistribPats emits the configured weight:wildmat:distribution
// patterns.
func (c *ClientConnection) handleListDistribPats() error {
	var lines []string
	for _, pat := range c.server.Config.NNTP.DistribPats {
		lines = append(lines, fmt.Sprintf("%d:%s:%s", pat.Weight, pat.Wildmat, pat.Distribution))
	}
	return c.sendMultilineResponse(215, "Distribution patterns follow", lines)
}

// handleListDistributions emits the configured distributions.
func (c *ClientConnection) handleListDistributions() error {
	var lines []string
	for _, dist := range c.server.Config.NNTP.Distributions {
		lines = append(lines, fmt.Sprintf("%s %s", dist.Name, dist.Description))
	}
	return c.sendMultilineResponse(215, "Distributions follow", lines)
}

// handleListMOTD emits the message-of-the-day file when configured.
func (c *ClientConnection) handleListMOTD() error {
	path := c.server.Config.NNTP.MOTDFile
	if path == "" {
		return c.sendMultilineResponse(215, "Message of the day follows", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c.sendResponse(503, "No message of the day available")
	}
	lines := strings.Split(strings.TrimRight(strings.ReplaceAll(string(data), CRLF, LF), LF), LF)
	return c.sendMultilineResponse(215, "Message of the day follows", lines)
}
