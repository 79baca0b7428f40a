// Package main provides catalogctl, the maintenance CLI for the catalog databases.
//
// It opens the same badger catalog and sqlite history files the server uses,
// so stop the server before running commands that write.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/samber/do/v2"

	"github.com/maktabaapp/maktaba-server/internal/config"
	"github.com/maktabaapp/maktaba-server/internal/di"
	"github.com/maktabaapp/maktaba-server/internal/logger"
)

// CLI is the complete command structure for catalogctl.
type CLI struct {
	DataPath string `help:"Directory holding the catalog and history databases (default: DATA_PATH or ~/Maktaba/data)"`
	EnvFile  string `help:"Path to .env file" default:".env"`
	LogLevel string `help:"Log level" default:"warn" enum:"debug,info,warn,error"`
	Quiet    bool   `short:"q" help:"Suppress log output"`
	Format   string `short:"o" help:"Output format" default:"json" enum:"json,yaml"`

	Renormalize  RenormalizeCmd  `cmd:"" help:"Recompute every stored normalized name and title"`
	SyncSubjects SyncSubjectsCmd `cmd:"" help:"Rebuild each category's cached subject list from its books"`
	History      HistoryCmd      `cmd:"" help:"Inspect and undo bulk reclassifications"`
	Search       SearchCmd       `cmd:"" help:"Search the catalog"`
}

// configArgs translates global flags into config loader arguments so the
// usual flag > env > .env > default precedence applies.
func (c *CLI) configArgs() []string {
	args := []string{"-env-file", c.EnvFile, "-log-level", c.LogLevel}
	if c.DataPath != "" {
		args = append(args, "-data-path", c.DataPath)
	}
	return args
}

// app is bound into every command's Run method.
type app struct {
	ctx      context.Context
	injector *do.RootScope
	log      *logger.Logger
	out      *printer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "catalogctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("catalogctl"),
		kong.Description("Maintenance commands for the Maktaba catalog."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return err
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cli.configArgs())
	if err != nil {
		return err
	}

	log := logger.Discard()
	if !cli.Quiet {
		log = logger.New(logger.Config{
			Writer:      stderr,
			Environment: cfg.App.Environment,
			Level:       logger.ParseLevel(cfg.Logger.Level),
		})
	}

	injector := di.NewToolContainer(cfg, log)
	defer func() {
		if report := injector.Shutdown(); report != nil && !report.Succeed {
			log.Error("Shutdown error", "error", report.Error())
		}
	}()

	a := &app{ctx: ctx, injector: injector, log: log, out: newPrinter(stdout, cli.Format)}
	return kctx.Run(a)
}
