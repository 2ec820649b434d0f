package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/netesim/backend/internal/infrastructure/config"
	"github.com/netesim/backend/internal/infrastructure/logger"
	"github.com/netesim/backend/internal/infrastructure/migration"
)

const defaultMigrationsPath = "migrations"

func main() {
	var (
		migrationsPath string
		logLevel       string
	)

	flag.StringVar(&migrationsPath, "path", "", "Path to migrations directory (default: ./migrations)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	if migrationsPath == "" {
		migrationsPath = defaultMigrationsPath
	}
	absPath, err := filepath.Abs(migrationsPath)
	if err != nil {
		log.Fatal("Failed to resolve migrations path", zap.Error(err))
	}
	migrationsPath = absPath

	migrator, err := migration.NewFromURL(cfg.Database.DSN(), migrationsPath, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			log.Error("Error closing migrator", zap.Error(err))
		}
	}()

	switch command {
	case "up":
		if err := migrator.Up(); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
	case "down":
		if err := migrator.Down(); err != nil {
			log.Fatal("Rollback failed", zap.Error(err))
		}
	case "steps":
		if len(args) < 2 {
			log.Fatal("Step count required. Usage: migrate steps <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatal("Step count must be an integer", zap.String("arg", args[1]))
		}
		if err := migrator.Steps(n); err != nil {
			log.Fatal("Migration steps failed", zap.Error(err))
		}
	case "version":
		version, dirty, err := migrator.Version()
		if err != nil {
			log.Fatal("Failed to get version", zap.Error(err))
		}
		log.Info("Current migration version",
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
		)
	case "force":
		if len(args) < 2 {
			log.Fatal("Version required. Usage: migrate force <version>")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatal("Version must be an integer", zap.String("arg", args[1]))
		}
		if err := migrator.Force(v); err != nil {
			log.Fatal("Failed to force version", zap.Error(err))
		}
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: migrate [flags] <command>

Commands:
  up              Apply all pending migrations
  down            Roll back all migrations
  steps <n>       Apply n migrations (negative rolls back)
  version         Show current migration version
  force <version> Set version without running migrations (repair only)

Flags:
  -path string       Path to migrations directory (default "migrations")
  -log-level string  Log level (default "info")`)
}
