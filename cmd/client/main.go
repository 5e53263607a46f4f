package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mkrasnov/pagemark/internal/client/api"
	"github.com/mkrasnov/pagemark/internal/client/auth"
	"github.com/mkrasnov/pagemark/internal/client/cli"
	"github.com/mkrasnov/pagemark/internal/client/iocli"
	"github.com/mkrasnov/pagemark/internal/client/storage/boltdb"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dbPath := flag.String("db", "pagemark-client.db", "Path to local database")
	documentID := flag.String("document", os.Getenv("PAGEMARK_DOCUMENT"), "Document to work with")
	verbose := flag.Bool("v", false, "Verbose logging")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}
	command := args[0]

	// Команды сессии работают без привязки к документу
	if *documentID == "" && command != "login" && command != "logout" && command != "status" {
		fmt.Fprintln(os.Stderr, "Error: document is required (--document or PAGEMARK_DOCUMENT)")
		os.Exit(1)
	}

	// Клиентские логи по умолчанию не мешают выводу команд
	logOutput := io.Discard
	if *verbose {
		logOutput = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(logOutput, nil))

	ctx := context.Background()

	boltStorage, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	apiClient := api.NewClient(*serverURL)
	authService := auth.NewService(apiClient, boltStorage, logger)
	app := cli.New(iocli.NewStdio(), apiClient, authService, *documentID, logger)

	if err := app.Run(ctx, command, args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("Pagemark Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
