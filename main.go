package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"tradeup/internal/config"
	"tradeup/internal/db"
	"tradeup/internal/logger"
	"tradeup/internal/pipeline"
)

var version = "dev"

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: tradeup [-config file] <command>

Commands:
  catalog               import the item catalog
  update                ingest market prices and run the sanitizer
  scan                  search for profitable 1+9 contracts
  quote "<name>" [st]   predicted price curve of one item
  all                   catalog, update and scan in sequence
  history [n]           list the last n scan runs
  results <scan id>     show the stored contracts of a scan run
  forget <scan id>      delete a scan run and its contracts

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "tradeup.toml", "TOML config file")
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("CONFIG", fmt.Sprintf("%v, using defaults", err))
		cfg = config.Default()
	}
	logger.Configure(cfg.LogLevel, cfg.LogFormat)
	logger.Banner(version)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open SQLite database
	database, err := db.Open(cfg.Paths.DBPath)
	if err != nil {
		logger.Error("DB", fmt.Sprintf("Failed to open database: %v", err))
		os.Exit(1)
	}
	defer database.Close()

	runner := pipeline.New(cfg, database)
	if err := run(ctx, runner, args); err != nil {
		logger.Error(strings.ToUpper(args[0]), err.Error())
		database.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, r *pipeline.Runner, args []string) error {
	switch args[0] {
	case "catalog":
		_, err := r.Catalog(ctx)
		return err
	case "update":
		_, err := r.Update(ctx)
		return err
	case "scan":
		_, err := r.Scan(ctx)
		return err
	case "quote":
		if len(args) < 2 {
			return fmt.Errorf(`usage: quote "<name>" [st]`)
		}
		statTrak := len(args) > 2 && strings.EqualFold(args[2], "st")
		_, err := r.Quote(args[1], statTrak)
		return err
	case "all":
		if _, err := r.Catalog(ctx); err != nil {
			return err
		}
		if _, err := r.Update(ctx); err != nil {
			return err
		}
		_, err := r.Scan(ctx)
		return err
	case "history":
		limit := 20
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("history limit %q: %w", args[1], err)
			}
			limit = n
		}
		r.History(limit)
		return nil
	case "results", "forget":
		if len(args) < 2 {
			return fmt.Errorf("usage: %s <scan id>", args[0])
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("scan id %q: %w", args[1], err)
		}
		if args[0] == "forget" {
			return r.Forget(id)
		}
		_, err = r.Results(id, 10)
		return err
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
