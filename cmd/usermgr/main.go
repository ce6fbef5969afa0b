package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/go-while/go-mcnttp/internal/config"
	"github.com/go-while/go-mcnttp/internal/database"
	"github.com/go-while/go-mcnttp/internal/models"
)

var appVersion = "-unset-"

func main() {
	config.AppVersion = appVersion
	log.Printf("go-mcnttp Principal Manager (version: %s)", appVersion)
	var (
		createUser = flag.Bool("create", false, "Create a new principal")
		listUsers  = flag.Bool("list", false, "List all principals")
		deleteUser = flag.Bool("delete", false, "Deactivate a principal")
		updateUser = flag.Bool("update", false, "Update a principal's password")
		grantMod   = flag.String("moderates", "", "Comma-separated moderated group patterns to grant")
		username   = flag.String("username", "", "Username for principal operations")
		mailbox    = flag.String("mailbox", "", "Mailbox recorded on approvals")
		approver   = flag.Bool("approveany", false, "Grant global approve capability")
		canceller  = flag.Bool("cancel", false, "Grant cancel capability")
		creator    = flag.Bool("creategroups", false, "Grant newgroup capability")
		deleter    = flag.Bool("deletegroups", false, "Grant rmgroup capability")
		checker    = flag.Bool("checkgroups", false, "Grant checkgroups capability")
		injector   = flag.Bool("inject", false, "Grant injection capability")
		localOnly  = flag.Bool("localonly", false, "Restrict authentication to loopback")
		posting    = flag.Bool("posting", true, "Allow posting")
		maxconns   = flag.Int("maxconns", 3, "Maximum concurrent connections")
	)
	flag.Parse()

	if !*createUser && !*listUsers && !*deleteUser && !*updateUser && *grantMod == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -create -username mod1 -mailbox mod1@example.org -approveany\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -moderates 'comp.lang.*' -username mod1\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -list\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -update -username mod1\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -delete -username mod1\n", os.Args[0])
		os.Exit(1)
	}

	db, err := database.OpenDatabase(nil)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Shutdown()

	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to apply database migrations: %v", err)
	}

	switch {
	case *createUser:
		if *username == "" {
			log.Fatal("Username is required for principal creation")
		}
		password, err := promptPassword("Password: ")
		if err != nil {
			log.Fatalf("Failed to read password: %v", err)
		}
		p := &models.Principal{
			Username:          *username,
			Password:          password,
			Mailbox:           *mailbox,
			CanApproveAny:     *approver,
			CanCancel:         *canceller,
			CanCreateCatalogs: *creator,
			CanDeleteCatalogs: *deleter,
			CanCheckCatalogs:  *checker,
			CanInject:         *injector,
			LocalAuthOnly:     *localOnly,
			Posting:           *posting,
			MaxConns:          *maxconns,
			IsActive:          true,
			Moderates:         splitPatterns(*grantMod),
		}
		if err := db.InsertPrincipal(p); err != nil {
			log.Fatalf("Failed to create principal: %v", err)
		}
		log.Printf("Principal %s created", *username)

	case *listUsers:
		principals, err := db.GetAllPrincipals()
		if err != nil {
			log.Fatalf("Failed to list principals: %v", err)
		}
		for _, p := range principals {
			flags := capabilityFlags(p)
			fmt.Printf("%-20s active=%v posting=%v maxconns=%d caps=[%s] moderates=%v\n",
				p.Username, p.IsActive, p.Posting, p.MaxConns, flags, p.Moderates)
		}

	case *updateUser:
		p := mustGetPrincipal(db, *username)
		password, err := promptPassword("New password: ")
		if err != nil {
			log.Fatalf("Failed to read password: %v", err)
		}
		if err := db.UpdatePrincipalPassword(p.ID, password); err != nil {
			log.Fatalf("Failed to update password: %v", err)
		}
		db.InvalidatePrincipalAuth(p.Username)
		log.Printf("Password updated for %s", p.Username)

	case *deleteUser:
		p := mustGetPrincipal(db, *username)
		if err := db.DeactivatePrincipal(p.ID); err != nil {
			log.Fatalf("Failed to deactivate principal: %v", err)
		}
		db.InvalidatePrincipalAuth(p.Username)
		log.Printf("Principal %s deactivated", p.Username)

	case *grantMod != "":
		p := mustGetPrincipal(db, *username)
		for _, pattern := range splitPatterns(*grantMod) {
			if err := db.GrantModeration(p.ID, pattern); err != nil {
				log.Fatalf("Failed to grant moderation of %s: %v", pattern, err)
			}
			log.Printf("Principal %s now moderates %s", p.Username, pattern)
		}
	}
}

func mustGetPrincipal(db *database.Database, username string) *models.Principal {
	if username == "" {
		log.Fatal("Username is required")
	}
	p, err := db.GetPrincipalByUsername(username)
	if err != nil {
		log.Fatalf("Principal not found: %v", err)
	}
	return p
}

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(password) == 0 {
		return "", fmt.Errorf("empty password")
	}
	return string(password), nil
}

func splitPatterns(s string) []string {
	var patterns []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

func capabilityFlags(p *models.Principal) string {
	var flags []string
	if p.CanApproveAny {
		flags = append(flags, "approveany")
	}
	if p.CanCancel {
		flags = append(flags, "cancel")
	}
	if p.CanCreateCatalogs {
		flags = append(flags, "creategroups")
	}
	if p.CanDeleteCatalogs {
		flags = append(flags, "deletegroups")
	}
	if p.CanCheckCatalogs {
		flags = append(flags, "checkgroups")
	}
	if p.CanInject {
		flags = append(flags, "inject")
	}
	if p.LocalAuthOnly {
		flags = append(flags, "localonly")
	}
	return strings.Join(flags, ",")
}
