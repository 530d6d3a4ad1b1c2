package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/teamsync/teamsync/internal/api"
	"github.com/teamsync/teamsync/internal/app"
	iauth "github.com/teamsync/teamsync/internal/auth"
	"github.com/teamsync/teamsync/internal/database"
	"github.com/teamsync/teamsync/internal/security"
	"github.com/teamsync/teamsync/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	global := flag.NewFlagSet("teamsyncctl", flag.ContinueOnError)
	global.SetOutput(out)
	configPath := global.String("config", "", "Path to configuration directory")
	if err := global.Parse(args); err != nil {
		return err
	}

	rest := global.Args()
	if len(rest) == 0 {
		printHelp(out)
		return nil
	}
	switch rest[0] {
	case "help", "--help", "-h":
		printHelp(out)
		return nil
	}

	// .env is optional for the operator tool
	_ = godotenv.Load()

	var paths []string
	if *configPath != "" {
		paths = append(paths, *configPath)
	}
	cfg, err := app.LoadConfig(paths...)
	if err != nil {
		return err
	}
	cfg.Server.LogLevel = "warn"
	if err := app.ConfigureLogging(cfg.Server, "teamsyncctl"); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	db, err := database.Open(cfg.Database.ConnectionConfig())
	if err != nil {
		return err
	}
	defer closeDB(db)

	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("auto-migrate database: %w", err)
	}

	svc, err := api.NewServices(db, cfg)
	if err != nil {
		return err
	}

	// an unset secret is generated at server start; the audit reports it as unknown
	var jwtSvc *iauth.JWTService
	if cfg.Auth.JWT.Secret != "" {
		if jwtSvc, err = iauth.NewJWTService(cfg.Auth.JWTServiceConfig()); err != nil {
			return err
		}
	}

	return newCLI(svc, cfg, security.NewAuditor(db, jwtSvc, cfg), out).dispatch(ctx, rest)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func printHelp(out io.Writer) {
	fmt.Fprint(out, `teamsyncctl - operate a TeamSync database directly

Usage:
  teamsyncctl [--config DIR] <command> [flags]

Commands:
  team list                                  List every team with its tier
  team set-tier --team ID --tier TIER        Move a team to another plan
  roster --team ID                           Show a team's members and capacity
  invite create --team ID --role ROLE        Issue an invite (--expires, --max-uses, --copy)
  invite list --team ID [--status S]         List invites (active|expired|inactive|all)
  invite revoke --id ID                      Deactivate an invite
  activity --team ID [--action A]            Show a team's audit trail, newest first
  maintenance run                            Run every housekeeping job once
  doctor                                     Audit security-relevant settings
`)
}
