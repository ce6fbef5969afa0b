package nntp

// handleArticle handles ARTICLE command
func (c *ClientConnection) handleArticle(args []string) error {
	return c.retrieveArticleCommon(args, RetrievalArticle)
}

// handleHead handles HEAD command
func (c *ClientConnection) handleHead(args []string) error {
	return c.retrieveArticleCommon(args, RetrievalHead)
}

// handleBody handles BODY command
func (c *ClientConnection) handleBody(args []string) error {
	return c.retrieveArticleCommon(args, RetrievalBody)
}

// handleStat handles STAT command
func (c *ClientConnection) handleStat(args []string) error {
	return c.retrieveArticleCommon(args, RetrievalStat)
}
