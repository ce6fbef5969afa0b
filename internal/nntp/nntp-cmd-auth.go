package nntp

import (
	"fmt"
	"strings"
)

// handleAuthInfo handles AUTHINFO USER / AUTHINFO PASS. USER stores the
// username and demands PASS as the very next command; the dispatch loop
// answers 482 to anything else in between.
func (c *ClientConnection) handleAuthInfo(args []string) error {
	if len(args) < 2 {
		return c.sendResponse(501, "AUTHINFO command requires subcommand and argument")
	}

	subcommand := strings.ToUpper(args[0])
	argument := args[1]

	switch subcommand {
	case "USER":
		c.authUsername = argument
		return c.sendResponse(381, fmt.Sprintf("Password required for %s", argument))

	case "PASS":
		if c.authUsername == "" {
			return c.sendResponse(482, "AUTHINFO USER required first")
		}

		username := c.authUsername
		c.authUsername = ""

		principal, err := c.server.AuthManager.AuthenticatePrincipal(username, argument)
		if err != nil {
			c.server.Stats.AuthFailure()
			return c.sendResponse(481, "Authentication failed")
		}
		if principal.LocalAuthOnly && !c.isLoopback() {
			c.server.Stats.AuthFailure()
			return c.sendResponse(481, "Authentication failed")
		}

		c.principal = principal
		c.server.Stats.AuthSuccess()
		return c.sendResponse(281, fmt.Sprintf("Authentication accepted for user %s", principal.Username))

	default:
		return c.sendResponse(500, fmt.Sprintf("Unknown AUTHINFO subcommand: %s", subcommand))
	}
}
