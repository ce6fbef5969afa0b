package nntp

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/go-while/go-mcnttp/internal/config"
	"github.com/go-while/go-mcnttp/internal/models"
)

// errSessionClosed signals a clean session end (QUIT or failed STARTTLS).
var errSessionClosed = errors.New("session closed")

// errLineTooLong is returned when a read exceeds the line length cap.
var errLineTooLong = errors.New("line too long")

// continuationResult steers the dispatch loop while an in-process command
// (POST) is consuming input lines.
type continuationResult int

const (
	contConsume continuationResult = iota // still consuming lines
	contDone                              // finished, restore normal dispatch
	contQuit                              // terminate the session
)

// continuation is the in-process command handler installed on the session.
// While set, every input line bypasses normal dispatch.
type continuation func(line string) (continuationResult, error)

// commandHandler executes one dispatched command.
type commandHandler func(c *ClientConnection, args []string) error

// ClientConnection represents a client session on the NNTP server
type ClientConnection struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	server *NNTPServer
	kind   listenerKind
	isTLS  bool

	compress bool // XFEATURE COMPRESS GZIP TERMINATOR accepted

	principal    *models.Principal // nil until AUTHINFO PASS succeeds
	authUsername string            // pending AUTHINFO USER argument

	currentGroup   string // current catalog name; resolved per command
	currentArticle int64  // 0 means no current article

	continuation continuation

	created     time.Time
	lastCommand time.Time
}

// NewClientConnection creates a new client session
func NewClientConnection(conn net.Conn, server *NNTPServer, kind listenerKind) *ClientConnection {
	return &ClientConnection{
		conn:        conn,
		reader:      bufio.NewReader(conn),
		writer:      bufio.NewWriter(conn),
		server:      server,
		kind:        kind,
		isTLS:       kind == listenerTLS,
		created:     time.Now(),
		lastCommand: time.Now(),
	}
}

// UpdateDeadlines refreshes the socket deadlines after each command.
func (c *ClientConnection) UpdateDeadlines() {
	timeout := c.server.Config.NNTP.IdleTimeout
	if timeout <= 0 {
		timeout = config.DefaultIdleTimeout
	}
	c.conn.SetReadDeadline(time.Now().Add(timeout))
	c.conn.SetWriteDeadline(time.Now().Add(timeout))
}

// Handle runs the session: greeting, then the command loop. Responses are
// emitted strictly in command-receipt order because a session is a single
// goroutine performing at most one store operation at a time.
func (c *ClientConnection) Handle() error {
	if err := c.sendWelcome(); err != nil {
		return fmt.Errorf("failed to send welcome: %w", err)
	}

	for {
		limit := config.MaxCommandLineLength
		if c.continuation != nil {
			limit = 4096 // article transfer lines are larger than commands
		}
		line, err := c.readLine(limit)
		if err != nil {
			if errors.Is(err, errLineTooLong) {
				if c.continuation != nil {
					c.continuation = nil
					c.sendResponse(441, "Posting failed (line too long)")
					continue
				}
				if err := c.sendResponse(501, "Line too long"); err != nil {
					return err
				}
				continue
			}
			// IO error or client hangup: drop without reply
			return nil
		}
		c.UpdateDeadlines()
		c.lastCommand = time.Now()

		if c.continuation != nil {
			result, err := c.continuation(line)
			if err != nil {
				return err
			}
			switch result {
			case contDone:
				c.continuation = nil
			case contQuit:
				return nil
			}
			continue
		}

		if err := c.dispatch(line); err != nil {
			if errors.Is(err, errSessionClosed) {
				return nil
			}
			log.Printf("Command error from %s: %v", c.conn.RemoteAddr(), err)
			c.sendResponse(403, "Archive server temporarily offline")
			return err
		}
	}
}

// dispatch parses a command line and routes it through the command table.
func (c *ClientConnection) dispatch(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return c.sendResponse(500, "Unknown command")
	}

	command := strings.ToUpper(parts[0])
	args := parts[1:]

	// After AUTHINFO USER the only acceptable command is AUTHINFO PASS.
	if c.authUsername != "" {
		isPass := command == "AUTHINFO" && len(args) > 0 && strings.EqualFold(args[0], "PASS")
		if !isPass {
			c.authUsername = ""
			return c.sendResponse(482, "AUTHINFO PASS expected")
		}
	}

	c.server.Stats.CommandExecuted(command)

	handler, known := c.server.handlers[command]
	if !known {
		return c.sendResponse(500, "Unknown command")
	}
	return handler(c, args)
}

// commandTable builds the verb dispatch map once at server construction.
func commandTable() map[string]commandHandler {
	return map[string]commandHandler{
		"CAPABILITIES": (*ClientConnection).handleCapabilities,
		"DATE":         (*ClientConnection).handleDate,
		"MODE":         (*ClientConnection).handleMode,
		"HELP":         (*ClientConnection).handleHelp,
		"QUIT":         (*ClientConnection).handleQuit,
		"AUTHINFO":     (*ClientConnection).handleAuthInfo,
		"GROUP":        (*ClientConnection).handleGroup,
		"LISTGROUP":    (*ClientConnection).handleListGroup,
		"LIST":         (*ClientConnection).handleList,
		"NEWGROUPS":    (*ClientConnection).handleNewGroups,
		"NEWNEWS":      (*ClientConnection).handleNewNews,
		"ARTICLE":      (*ClientConnection).handleArticle,
		"HEAD":         (*ClientConnection).handleHead,
		"BODY":         (*ClientConnection).handleBody,
		"STAT":         (*ClientConnection).handleStat,
		"LAST":         (*ClientConnection).handleLast,
		"NEXT":         (*ClientConnection).handleNext,
		"HDR":          (*ClientConnection).handleHdr,
		"XHDR":         (*ClientConnection).handleXHdr,
		"OVER":         (*ClientConnection).handleOver,
		"XOVER":        (*ClientConnection).handleXOver,
		"XPAT":         (*ClientConnection).handleXPat,
		"POST":         (*ClientConnection).handlePost,
		"STARTTLS":     (*ClientConnection).handleStartTLS,
		"XFEATURE":     (*ClientConnection).handleXFeature,
	}
}

// readLine reads one CRLF-terminated line, capped at limit octets.
func (c *ClientConnection) readLine(limit int) (string, error) {
	var line []byte
	for {
		chunk, isPrefix, err := c.reader.ReadLine()
		if err != nil {
			return "", err
		}
		line = append(line, chunk...)
		if len(line) > limit {
			// Drain the rest of the oversized line
			for isPrefix {
				_, isPrefix, err = c.reader.ReadLine()
				if err != nil {
					return "", err
				}
			}
			return "", errLineTooLong
		}
		if !isPrefix {
			return string(line), nil
		}
	}
}

// sendWelcome emits the greeting after accept (and any implicit handshake).
func (c *ClientConnection) sendWelcome() error {
	if c.server.Config.NNTP.AllowPosting {
		return c.sendResponse(200, "Service available, posting allowed")
	}
	return c.sendResponse(201, "Service available, posting prohibited")
}

// sendResponse sends a single-line response
func (c *ClientConnection) sendResponse(code int, message string) error {
	if _, err := fmt.Fprintf(c.writer, "%d %s%s", code, message, CRLF); err != nil {
		return err
	}
	return c.writer.Flush()
}

// sendLine sends one data line of a multiline response, dot-stuffed.
func (c *ClientConnection) sendLine(line string) error {
	if strings.HasPrefix(line, DOT) {
		line = DOT + line
	}
	if _, err := c.writer.WriteString(line + CRLF); err != nil {
		return err
	}
	return c.writer.Flush()
}

// sendMultilineResponse sends a status line plus data block terminated by a
// lone dot. With compression enabled the data block goes out as a single
// gzip blob followed by the CRLF.CRLF terminator.
func (c *ClientConnection) sendMultilineResponse(code int, message string, lines []string) error {
	if err := c.sendResponse(code, message); err != nil {
		return err
	}
	if c.compress {
		return c.sendCompressedBlock(lines)
	}
	for _, line := range lines {
		if err := c.sendLine(line); err != nil {
			return err
		}
	}
	return c.endMultiline()
}

// endMultiline writes the terminating dot of an uncompressed reply.
func (c *ClientConnection) endMultiline() error {
	if _, err := c.writer.WriteString(DOT + CRLF); err != nil {
		return err
	}
	return c.writer.Flush()
}

// RemoteAddr returns the remote address of the connection
func (c *ClientConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// isLoopback reports whether the peer connects from the local host, for
// principals flagged LocalAuthenticationOnly.
func (c *ClientConnection) isLoopback() bool {
	host, _, err := net.SplitHostPort(c.conn.RemoteAddr().String())
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Close shuts the socket down; the dispatch loop exits on the next read.
func (c *ClientConnection) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
