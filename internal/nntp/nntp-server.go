package nntp

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"log"
	"math/big"
	"net"
	"sync"
	"time"

	"github.com/go-while/go-mcnttp/internal/config"
	"github.com/go-while/go-mcnttp/internal/models"
)

// ArticleProcessor accepts a received posting (dot-unstuffed header and
// body lines) and runs it through the posting pipeline on behalf of the
// given principal. A nil principal is an anonymous poster.
type ArticleProcessor interface {
	ProcessIncomingArticle(headLines, bodyLines []string, principal *models.Principal) error
}

// CatalogStore is the persistence boundary the command handlers talk to.
// Implemented by *database.Database; sessions hold no catalog data between
// commands beyond the current group name and article number.
type CatalogStore interface {
	LookupCatalog(name string, principal *models.Principal) (*models.Newsgroup, error)
	ListCatalogs(principal *models.Principal) ([]*models.Newsgroup, error)
	GroupsSince(since time.Time) ([]*models.Newsgroup, error)
	GetArticleEntry(group *models.Newsgroup, num int64) (*models.ArticleEntry, error)
	GetArticleByID(messageID string, includeCancelled, includePending bool) (*models.Article, []*models.ArticleEntry, error)
	RangeArticles(group *models.Newsgroup, low, high int64) ([]*models.ArticleEntry, error)
	ArticlesSince(since time.Time) ([]*models.ArticleEntry, error)
	LastArticleBefore(group *models.Newsgroup, num int64) (*models.ArticleEntry, error)
	NextArticleAfter(group *models.Newsgroup, num int64) (*models.ArticleEntry, error)
	AuthenticatePrincipal(username, password string) (*models.Principal, error)
}

const (
	// NNTP protocol constants
	DOT  = "."
	CR   = "\r"
	LF   = "\n"
	CRLF = CR + LF
)

// ServerName and ServerVersion feed the CAPABILITIES IMPLEMENTATION line.
var (
	ServerName    = "go-mcnttp"
	ServerVersion = "-unset-"
)

// listenerKind tells a session which TLS posture its port has.
type listenerKind int

const (
	listenerPlain listenerKind = iota // clear-text, no STARTTLS
	listenerTLS                       // implicit TLS
	listenerStartTLS                  // clear-text, STARTTLS advertised
)

// NNTPServer represents the main NNTP server
type NNTPServer struct {
	Config      *config.ServerConfig
	Store       CatalogStore
	AuthManager *AuthManager
	Stats       *ServerStats
	Processor   ArticleProcessor // nil for read-only servers

	tlsConfig *tls.Config
	handlers  map[string]commandHandler
	listeners []net.Listener
	shutdown  chan struct{}
	wg        *sync.WaitGroup
	mu        sync.RWMutex
	running   bool
}

// NewNNTPServer creates a new NNTP server instance
func NewNNTPServer(store CatalogStore, cfg *config.ServerConfig, mainWG *sync.WaitGroup, processor ArticleProcessor) (*NNTPServer, error) {
	if store == nil {
		return nil, fmt.Errorf("catalog store cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("server config cannot be nil")
	}
	if mainWG == nil {
		return nil, fmt.Errorf("main waitgroup cannot be nil")
	}
	// processor can be nil for read-only NNTP servers

	server := &NNTPServer{
		Config:      cfg,
		Store:       store,
		AuthManager: NewAuthManager(store),
		Stats:       NewServerStats(),
		Processor:   processor,
		shutdown:    make(chan struct{}),
		wg:          mainWG,
	}
	server.handlers = commandTable()
	return server, nil
}

// Start starts the NNTP server on the configured ports
func (s *NNTPServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server is already running")
	}

	needTLS := s.Config.NNTP.TLSPort > 0 || s.Config.NNTP.StartTLSPort > 0
	if needTLS {
		tlsConfig, err := s.loadTLSConfig()
		if err != nil {
			return err
		}
		s.tlsConfig = tlsConfig
	}

	if s.Config.NNTP.Port > 0 {
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.Config.NNTP.Port))
		if err != nil {
			return fmt.Errorf("failed to start NNTP listener on port %d: %w", s.Config.NNTP.Port, err)
		}
		s.listeners = append(s.listeners, listener)
		log.Printf("[NNTP]: listening on port %d", s.Config.NNTP.Port)

		s.wg.Add(1)
		go s.serve(listener, listenerPlain)
	}

	if s.Config.NNTP.TLSPort > 0 {
		listener, err := tls.Listen("tcp", fmt.Sprintf(":%d", s.Config.NNTP.TLSPort), s.tlsConfig)
		if err != nil {
			return fmt.Errorf("failed to start NNTP TLS listener on port %d: %w", s.Config.NNTP.TLSPort, err)
		}
		s.listeners = append(s.listeners, listener)
		log.Printf("[NNTP]: TLS listening on port %d", s.Config.NNTP.TLSPort)

		s.wg.Add(1)
		go s.serve(listener, listenerTLS)
	}

	if s.Config.NNTP.StartTLSPort > 0 {
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.Config.NNTP.StartTLSPort))
		if err != nil {
			return fmt.Errorf("failed to start NNTP STARTTLS listener on port %d: %w", s.Config.NNTP.StartTLSPort, err)
		}
		s.listeners = append(s.listeners, listener)
		log.Printf("[NNTP]: STARTTLS listening on port %d", s.Config.NNTP.StartTLSPort)

		s.wg.Add(1)
		go s.serve(listener, listenerStartTLS)
	}

	if len(s.listeners) == 0 {
		return fmt.Errorf("no NNTP ports configured")
	}

	s.running = true
	log.Println("[NNTP]: server started successfully")
	return nil
}

// loadTLSConfig loads the configured certificate or generates a self-signed
// one when no files are configured.
func (s *NNTPServer) loadTLSConfig() (*tls.Config, error) {
	if s.Config.NNTP.TLSCert != "" && s.Config.NNTP.TLSKey != "" {
		cert, err := tls.LoadX509KeyPair(s.Config.NNTP.TLSCert, s.Config.NNTP.TLSKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
		}
		return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
	}

	cert, err := generateSelfSignedCert(s.Config.Hostname)
	if err != nil {
		return nil, fmt.Errorf("failed to generate self-signed certificate: %w", err)
	}
	log.Printf("[NNTP]: no TLS certificate configured, generated self-signed for %s", s.Config.Hostname)
	return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
}

// generateSelfSignedCert creates an ECDSA P-256 certificate valid one year.
func generateSelfSignedCert(hostname string) (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, err
	}

	template := x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: hostname},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{hostname},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}, nil
}

// serve handles incoming connections on the given listener
func (s *NNTPServer) serve(listener net.Listener, kind listenerKind) {
	defer s.wg.Done()

	for {
		select {
		case <-s.shutdown:
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-s.shutdown:
					return
				default:
					log.Printf("Error accepting connection: %v", err)
					continue
				}
			}

			if s.Stats.GetActiveConnections() >= s.Config.NNTP.MaxConns {
				log.Printf("Connection limit reached, rejecting connection from %s", conn.RemoteAddr())
				conn.Close()
				continue
			}

			s.wg.Add(1)
			go s.handleConnection(conn, kind)
		}
	}
}

// handleConnection processes a single client connection
func (s *NNTPServer) handleConnection(conn net.Conn, kind listenerKind) {
	defer s.wg.Done()
	defer conn.Close()

	s.Stats.ConnectionStarted()
	defer s.Stats.ConnectionEnded()

	client := NewClientConnection(conn, s, kind)
	client.UpdateDeadlines()
	if err := client.Handle(); err != nil {
		log.Printf("Connection error from %s: %v", conn.RemoteAddr(), err)
	}
}

// Stop gracefully shuts down the NNTP server
func (s *NNTPServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	log.Println("[NNTP]: shutting down...")
	close(s.shutdown)

	for _, listener := range s.listeners {
		listener.Close()
	}
	s.listeners = nil

	s.running = false
	return nil
}

// IsRunning returns whether the server is currently running
func (s *NNTPServer) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
