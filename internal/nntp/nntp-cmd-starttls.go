package nntp

import (
	"bufio"
	"crypto/tls"
	"log"
	"strings"
)

// handleStartTLS upgrades a clear-text session to TLS using the server
// certificate. Already-encrypted sessions get 502; a failed handshake gets
// 580 and the session ends.
func (c *ClientConnection) handleStartTLS(args []string) error {
	if c.isTLS {
		return c.sendResponse(502, "TLS already active")
	}
	if c.kind != listenerStartTLS || c.server.tlsConfig == nil {
		return c.sendResponse(502, "STARTTLS not available on this port")
	}

	if err := c.sendResponse(382, "Continue with TLS negotiation"); err != nil {
		return err
	}

	tlsConn := tls.Server(c.conn, c.server.tlsConfig)
	if err := tlsConn.Handshake(); err != nil {
		log.Printf("STARTTLS handshake failed from %s: %v", c.conn.RemoteAddr(), err)
		c.sendResponse(580, "Can not initiate TLS negotiation")
		return errSessionClosed
	}

	// Swap the socket and reset protocol state accumulated in the clear.
	c.conn = tlsConn
	c.reader = bufio.NewReader(tlsConn)
	c.writer = bufio.NewWriter(tlsConn)
	c.isTLS = true
	c.principal = nil
	c.authUsername = ""
	c.UpdateDeadlines()
	return nil
}

// handleXFeature enables the non-standard compressed-reply extension:
// XFEATURE COMPRESS GZIP [TERMINATOR].
func (c *ClientConnection) handleXFeature(args []string) error {
	if len(args) >= 2 &&
		strings.EqualFold(args[0], "COMPRESS") &&
		strings.EqualFold(args[1], "GZIP") {
		c.compress = true
		return c.sendResponse(290, "feature enabled")
	}
	return c.sendResponse(501, "Unknown XFEATURE")
}
