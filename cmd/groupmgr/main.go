package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-while/go-mcnttp/internal/config"
	"github.com/go-while/go-mcnttp/internal/database"
)

var appVersion = "-unset-"

func main() {
	config.AppVersion = appVersion
	log.Printf("go-mcnttp Newsgroup Manager (version: %s)", appVersion)
	var (
		createGroup = flag.Bool("create", false, "Create a newsgroup")
		removeGroup = flag.Bool("remove", false, "Remove a newsgroup")
		listGroups  = flag.Bool("list", false, "List newsgroups")
		name        = flag.String("name", "", "Newsgroup name (a.b.c)")
		description = flag.String("description", "", "Newsgroup description")
		moderated   = flag.Bool("moderated", false, "Create as moderated")
		creator     = flag.String("creator", "admin", "Creator entity recorded on the group")
	)
	flag.Parse()

	if !*createGroup && !*removeGroup && !*listGroups {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -create -name misc.test -description 'Test postings'\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -create -name comp.lang.go.moderated -moderated\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -list\n", os.Args[0])
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
	case *createGroup:
		if *name == "" {
			log.Fatal("Group name is required")
		}
		group, err := db.CreateCatalog(*name, *description, *moderated, *creator)
		if err != nil {
			log.Fatalf("Failed to create newsgroup: %v", err)
		}
		log.Printf("Created newsgroup %s (moderated=%v)", group.Name, group.Moderated)

	case *removeGroup:
		if *name == "" {
			log.Fatal("Group name is required")
		}
		if err := db.RemoveCatalog(*name); err != nil {
			log.Fatalf("Failed to remove newsgroup: %v", err)
		}
		log.Printf("Removed newsgroup %s", *name)

	case *listGroups:
		groups, err := db.ListCatalogs(nil)
		if err != nil {
			log.Fatalf("Failed to list newsgroups: %v", err)
		}
		for _, g := range groups {
			fmt.Printf("%-40s %6d articles  low=%d high=%d status=%s  %s\n",
				g.Name, g.MessageCount, g.LowWatermark, g.HighWatermark, g.Status(), g.Description)
		}
	}
}
