package nntp

import (
	"fmt"
	"strings"
	"time"
)

// handleCapabilities responds with server capabilities
func (c *ClientConnection) handleCapabilities(args []string) error {
	return c.sendMultilineResponse(101, "Capability list:", c.getServerCapabilities())
}

// getServerCapabilities returns the capability list for this session's
// current TLS and posting posture.
func (c *ClientConnection) getServerCapabilities() []string {
	capabilities := []string{
		"VERSION 2",
		"READER",
		"HDR",
		"LIST ACTIVE NEWSGROUPS ACTIVE.TIMES DISTRIB.PATS HEADERS OVERVIEW.FMT",
		"MODE-READER",
		"NEWNEWS",
		"OVER MSGID",
		"AUTHINFO USER",
		"XFEATURE-COMPRESS GZIP TERMINATOR",
	}

	if c.server.Config.NNTP.AllowPosting && c.server.Processor != nil {
		capabilities = append(capabilities, "POST")
	}
	if c.kind == listenerStartTLS && !c.isTLS && c.server.tlsConfig != nil {
		capabilities = append(capabilities, "STARTTLS")
	}
	capabilities = append(capabilities,
		fmt.Sprintf("IMPLEMENTATION %s %s", ServerName, ServerVersion))

	return capabilities
}

// handleDate emits the server clock: 111 yyyymmddhhmmss in UTC.
func (c *ClientConnection) handleDate(args []string) error {
	return c.sendResponse(111, time.Now().UTC().Format("20060102150405"))
}

// handleMode handles MODE command (typically MODE READER)
func (c *ClientConnection) handleMode(args []string) error {
	if len(args) == 0 {
		return c.sendResponse(501, "MODE command requires an argument")
	}

	switch strings.ToUpper(args[0]) {
	case "READER":
		return c.sendWelcome()
	default:
		return c.sendResponse(500, fmt.Sprintf("Unknown MODE: %s", args[0]))
	}
}

// handleHelp handles HELP command
func (c *ClientConnection) handleHelp(args []string) error {
	helpLines := []string{
		"Commands supported:",
		"  CAPABILITIES - List server capabilities",
		"  MODE READER - Switch to reader mode",
		"  AUTHINFO USER|PASS - Authenticate",
		"  LIST [ACTIVE|NEWSGROUPS|ACTIVE.TIMES|OVERVIEW.FMT|DISTRIB.PATS|DISTRIBUTIONS|HEADERS|MOTD]",
		"  GROUP <group> - Select newsgroup",
		"  LISTGROUP [<group> [range]] - List articles in group",
		"  NEWGROUPS date time [GMT] - Groups created since",
		"  NEWNEWS wildmat date time [GMT] - Articles posted since",
		"  STAT|HEAD|BODY|ARTICLE [<msgid>|<num>] - Retrieve article",
		"  LAST / NEXT - Move the current article pointer",
		"  OVER|XOVER [<range>] - Article overview",
		"  HDR|XHDR <header> [<range>|<msgid>] - Header values",
		"  XPAT <header> <range>|<msgid> <wildmat> - Pattern-matched headers",
		"  POST - Post an article",
		"  STARTTLS - Negotiate TLS",
		"  XFEATURE COMPRESS GZIP TERMINATOR - Enable compressed replies",
		"  QUIT - Close connection",
		"",
		"For more information, see RFC 3977.",
	}
	return c.sendMultilineResponse(100, "Help text follows", helpLines)
}

// handleQuit handles QUIT command
func (c *ClientConnection) handleQuit(args []string) error {
	c.sendResponse(205, "Connection closing")
	return errSessionClosed
}
