package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/HerbHall/byggekatalog/internal/backup"
	"github.com/HerbHall/byggekatalog/internal/config"
)

func runBackup(args []string) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	output := fs.String("output", "", "output file path (default: byggekatalog-backup-{timestamp}.tar.gz)")
	configPath := fs.String("config", "", "path to configuration file")
	catalogPath := fs.String("catalog", "", "catalog file to include (default: catalog.path)")
	cachePath := fs.String("cache", "", "snapshot cache database to include (default: cache.path)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *catalogPath == "" {
		*catalogPath = cfg.GetString("catalog.path")
	}
	if *cachePath == "" {
		*cachePath = cfg.GetString("cache.path")
	}
	if *output == "" {
		*output = fmt.Sprintf("byggekatalog-backup-%s.tar.gz", time.Now().Format("20060102-150405"))
	}

	ctx := context.Background()
	if err := backup.Backup(ctx, *catalogPath, *cachePath, *output); err != nil {
		fmt.Fprintf(os.Stderr, "backup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Backup created: %s\n", *output)
}
