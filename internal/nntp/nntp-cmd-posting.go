package nntp

import (
	"errors"
	"log"
	"strings"

	"github.com/go-while/go-mcnttp/internal/processor"
)

// Hard limits on accepted postings.
const (
	maxPostLines  = 16384
	maxPostHeader = 1024
)

// handlePost starts article reception. The posting state is an in-process
// continuation: every subsequent input line goes to it until the lone dot
// terminator, then the pipeline runs and the reply goes out.
func (c *ClientConnection) handlePost(args []string) error {
	if c.server.Processor == nil || !c.server.Config.NNTP.AllowPosting {
		return c.sendResponse(440, "Posting not permitted")
	}
	if !c.server.AuthManager.CanPost(c.principal) {
		return c.sendResponse(440, "Posting not permitted")
	}

	if err := c.sendResponse(340, "Send article to be posted"); err != nil {
		return err
	}

	var head, body []string
	inHeaders := true

	c.continuation = func(line string) (continuationResult, error) {
		if line == DOT {
			return contDone, c.finishPost(head, body)
		}

		// Dot-stuffing: a leading ".." collapses to "."
		if strings.HasPrefix(line, "..") {
			line = line[1:]
		}

		if inHeaders && line == "" {
			inHeaders = false
			return contConsume, nil
		}
		if inHeaders {
			head = append(head, line)
		} else {
			body = append(body, line)
		}

		if len(head) > maxPostHeader || len(head)+len(body) > maxPostLines {
			// Keep consuming to the terminator, then fail
			c.continuation = func(line string) (continuationResult, error) {
				if line == DOT {
					return contDone, c.sendResponse(441, "Posting failed (article too large)")
				}
				return contConsume, nil
			}
		}
		return contConsume, nil
	}
	return nil
}

// finishPost runs the pipeline on the accumulated posting and maps its
// outcome to the POST reply codes.
func (c *ClientConnection) finishPost(head, body []string) error {
	err := c.server.Processor.ProcessIncomingArticle(head, body, c.principal)
	switch {
	case err == nil:
		c.server.Stats.ArticlePosted()
		return c.sendResponse(240, "Article received OK")
	case errors.Is(err, processor.ErrNotAuthorized):
		log.Printf("Posting refused from %s: %v", c.conn.RemoteAddr(), err)
		return c.sendResponse(480, "Permission denied")
	default:
		log.Printf("Posting failed from %s: %v", c.conn.RemoteAddr(), err)
		return c.sendResponse(441, "Posting failed")
	}
}
