package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	prof "github.com/go-while/go-cpu-mem-profiler"

	"github.com/go-while/go-mcnttp/internal/config"
	"github.com/go-while/go-mcnttp/internal/database"
	"github.com/go-while/go-mcnttp/internal/nntp"
	"github.com/go-while/go-mcnttp/internal/processor"
	"github.com/go-while/go-mcnttp/internal/web"
)

var (
	hostname       string
	nntptcpport    int
	nntptlsport    int
	starttlsport   int
	nntpcertFile   string
	nntpkeyFile    string
	maxConnections int
	allowPosting   bool
	motdFile       string
	webPort        int
	pprofAddr      string
)

var appVersion = "-unset-"

var Prof *prof.Profiler

func main() {
	config.AppVersion = appVersion
	nntp.ServerVersion = appVersion
	log.Printf("Starting go-mcnttp NNTP server (version: %s)", appVersion)

	mainConfig := config.NewDefaultConfig()

	flag.StringVar(&hostname, "hostname", "", "Your hostname must be set!")
	flag.IntVar(&nntptcpport, "nntptcpport", 0, "NNTP TCP port (clear text)")
	flag.IntVar(&nntptlsport, "nntptlsport", 0, "NNTP implicit TLS port")
	flag.IntVar(&starttlsport, "starttlsport", 0, "NNTP clear-text port with STARTTLS")
	flag.StringVar(&nntpcertFile, "nntpcertfile", "", "TLS certificate file (/path/to/fullchain.pem); empty generates self-signed")
	flag.StringVar(&nntpkeyFile, "nntpkeyfile", "", "TLS key file (/path/to/privkey.pem)")
	flag.IntVar(&maxConnections, "maxconnections", config.NNTPServerMaxConns, "allow max of N concurrent connections")
	flag.BoolVar(&allowPosting, "allowposting", true, "accept POST from clients")
	flag.StringVar(&motdFile, "motdfile", "", "path to LIST MOTD file")
	flag.IntVar(&webPort, "webport", 0, "admin API port (0 disables)")
	flag.StringVar(&pprofAddr, "pprofweb", "", "pprof web listen address (e.g. :51111, empty disables)")
	flag.Parse()

	if hostname == "" {
		log.Fatalf("[NNTP]: Error: hostname must be set!")
	}
	if maxConnections <= 0 {
		log.Fatalf("[NNTP]: Error: max connections must be greater than 0")
	}
	if nntptcpport <= 0 && nntptlsport <= 0 && starttlsport <= 0 {
		log.Fatalf("[NNTP]: Error: at least one of -nntptcpport, -nntptlsport, -starttlsport must be set")
	}

	if pprofAddr != "" {
		Prof = prof.NewProf()
		go Prof.PprofWeb(pprofAddr)
		Prof.StartMemProfile(5*time.Minute, 30*time.Second)
	}

	mainConfig.Server.Hostname = hostname
	mainConfig.Server.NNTP.Port = nntptcpport
	mainConfig.Server.NNTP.TLSPort = nntptlsport
	mainConfig.Server.NNTP.StartTLSPort = starttlsport
	mainConfig.Server.NNTP.TLSCert = nntpcertFile
	mainConfig.Server.NNTP.TLSKey = nntpkeyFile
	mainConfig.Server.NNTP.MaxConns = maxConnections
	mainConfig.Server.NNTP.AllowPosting = allowPosting
	mainConfig.Server.NNTP.MOTDFile = motdFile
	processor.LocalHostnamePath = hostname

	db, err := database.OpenDatabase(&mainConfig.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Shutdown()

	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to apply database migrations: %v", err)
	}

	proc := processor.NewProcessor(db)

	wg := &sync.WaitGroup{}
	nntpServer, err := nntp.NewNNTPServer(db, &mainConfig.Server, wg, proc)
	if err != nil {
		log.Fatalf("Failed to create NNTP server: %v", err)
	}

	if err := nntpServer.Start(); err != nil {
		log.Fatalf("Failed to start NNTP server: %v", err)
	}
	log.Println("NNTP server started")

	if webPort > 0 {
		mainConfig.Web.Enabled = true
		mainConfig.Web.ListenPort = webPort
		webServer := web.NewServer(db, &mainConfig.Web, nntpServer)
		go func() {
			if err := webServer.Start(); err != nil {
				log.Printf("[WEB]: admin API stopped: %v", err)
			}
		}()
	}

	// Wait for interrupt signal to gracefully shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down NNTP server...")
	if err := nntpServer.Stop(); err != nil {
		log.Printf("Error shutting down NNTP server: %v", err)
	}
	wg.Wait()
	db.Shutdown()
	log.Println("NNTP server stopped")
}
