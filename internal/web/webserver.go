// Package web provides the read-only admin/stats JSON API for go-mcnttp.
package web

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"

	"github.com/go-while/go-mcnttp/internal/config"
	"github.com/go-while/go-mcnttp/internal/database"
	"github.com/go-while/go-mcnttp/internal/nntp"
)

// WebServer serves operational state over HTTP. It is not a reader
// frontend; the API routes answer JSON for monitoring and /ping answers
// plain text.
type WebServer struct {
	DB     *database.Database
	Router *gin.Engine
	Config *config.WebConfig
	NNTP   *nntp.NNTPServer
}

// NewServer creates the admin API server.
func NewServer(db *database.Database, webconfig *config.WebConfig, nntpServer *nntp.NNTPServer) *WebServer {
	gin.SetMode(gin.ReleaseMode)

	router := gin.Default()
	router.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	secureConfig := secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}
	if webconfig.SSL {
		secureConfig.SSLRedirect = true
		secureConfig.STSSeconds = 31536000
		secureConfig.STSIncludeSubdomains = true
	}
	router.Use(secure.New(secureConfig))

	server := &WebServer{
		DB:     db,
		Router: router,
		Config: webconfig,
		NNTP:   nntpServer,
	}
	server.setupRoutes()
	return server
}

// setupRoutes configures the HTTP routes
func (s *WebServer) setupRoutes() {
	s.Router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	s.Router.GET("/api/v1/stats", s.getStats)
	s.Router.GET("/api/v1/groups", s.getGroups)
}

// getStats reports connection, command and posting counters.
func (s *WebServer) getStats(c *gin.Context) {
	stats := s.NNTP.Stats
	successes, failures := stats.GetAuthStats()
	c.JSON(http.StatusOK, gin.H{
		"uptime_seconds":     int64(stats.GetUptime().Seconds()),
		"active_connections": stats.GetActiveConnections(),
		"total_connections":  stats.GetTotalConnections(),
		"articles_posted":    stats.GetArticlesPosted(),
		"auth_successes":     successes,
		"auth_failures":      failures,
		"commands":           stats.GetAllCommandCounts(),
		"auth_cache":         s.DB.AuthCache.Stats(),
	})
}

// getGroups lists catalogs with counters.
func (s *WebServer) getGroups(c *gin.Context) {
	groups, err := s.DB.ListCatalogs(nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store unavailable"})
		return
	}
	c.JSON(http.StatusOK, groups)
}

// Start runs the admin API listener; it blocks, so run it in a goroutine.
func (s *WebServer) Start() error {
	addr := fmt.Sprintf(":%d", s.Config.ListenPort)
	log.Printf("[WEB]: admin API listening on %s", addr)
	if s.Config.SSL {
		return s.Router.RunTLS(addr, s.Config.CertFile, s.Config.KeyFile)
	}
	return s.Router.Run(addr)
}
