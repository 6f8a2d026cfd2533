package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/auditmos/logseq-mcp/config"
	"github.com/auditmos/logseq-mcp/crypto"
	"github.com/auditmos/logseq-mcp/logging"
	"github.com/auditmos/logseq-mcp/logseq"
	"github.com/auditmos/logseq-mcp/pipeline"
	"github.com/auditmos/logseq-mcp/server"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	// A missing .env is fine; values then come from flags and the environment.
	_ = godotenv.Load()

	app := NewApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func NewApp() *cli.App {
	return &cli.App{
		Name:    "logseq-mcp",
		Usage:   "MCP server for Logseq with privacy-preserving tool call logs",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		Flags:   configFlags(),
		Action:  runServe,
		Commands: []*cli.Command{
			serveCommand(),
			keygenCommand(),
			logsCommand(),
		},
	}
}

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-mode",
			Value:   "privacy",
			Usage:   "tool call logging: privacy, minimal or debug",
			EnvVars: []string{"LOGSEQ_MCP_LOG_MODE"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "minimum level: debug, info, warning, error",
			EnvVars: []string{"LOGSEQ_MCP_LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-retention-days",
			Usage:   "delete rotated log files older than this many days (default: keep forever)",
			EnvVars: []string{"LOGSEQ_MCP_LOG_RETENTION_DAYS"},
		},
		&cli.StringFlag{
			Name:    "log-max-size",
			Value:   "10MB",
			Usage:   "rotate the log file at this size, e.g. 512KB, 10MB, 1GB",
			EnvVars: []string{"LOGSEQ_MCP_LOG_MAX_SIZE"},
		},
		&cli.StringFlag{
			Name:    "log-file",
			Usage:   "log file path (default: <project-root>/logs/logseq-mcp.log)",
			EnvVars: []string{"LOGSEQ_MCP_LOG_FILE"},
		},
		&cli.StringFlag{
			Name:    "project-root",
			Usage:   "base directory for the default log file (default: current directory)",
			EnvVars: []string{"LOGSEQ_MCP_PROJECT_ROOT"},
		},
		&cli.BoolFlag{
			Name:    "debug",
			Usage:   "echo sanitized tool call logs to stderr",
			EnvVars: []string{"LOGSEQ_MCP_DEBUG"},
		},
		&cli.StringFlag{
			Name:    "log-secret",
			Usage:   "base64 anonymizer secret, see keygen (default: random per run)",
			EnvVars: []string{"LOGSEQ_MCP_LOG_SECRET"},
		},
		&cli.StringFlag{
			Name:    "log-catalog",
			Usage:   "sqlite database tracking rotated log files",
			EnvVars: []string{"LOGSEQ_MCP_LOG_CATALOG"},
		},
		&cli.BoolFlag{
			Name:    "diag-json",
			Usage:   "write diagnostic output as JSON lines",
			EnvVars: []string{"LOGSEQ_MCP_DIAG_JSON"},
		},
		&cli.StringFlag{
			Name:    "diag-file",
			Usage:   "write diagnostic output to this file instead of stderr",
			EnvVars: []string{"LOGSEQ_MCP_DIAG_FILE"},
		},
		&cli.StringFlag{
			Name:    "logseq-host",
			Value:   config.DefaultLogseqHost,
			Usage:   "Logseq HTTP API host",
			EnvVars: []string{"LOGSEQ_API_HOST"},
		},
		&cli.IntFlag{
			Name:    "logseq-port",
			Value:   config.DefaultLogseqPort,
			Usage:   "Logseq HTTP API port",
			EnvVars: []string{"LOGSEQ_API_PORT"},
		},
		&cli.StringFlag{
			Name:    "logseq-token",
			Usage:   "Logseq HTTP API token",
			EnvVars: []string{"LOGSEQ_API_TOKEN"},
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "serve MCP over stdio (default)",
		Flags:  configFlags(),
		Action: runServe,
	}
}

func keygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "print a new anonymizer secret",
		Action: func(c *cli.Context) error {
			key, err := crypto.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, crypto.EncodeKey(key))
			return nil
		},
	}
}

func logsCommand() *cli.Command {
	return &cli.Command{
		Name:  "logs",
		Usage: "manage tool call log files",
		Subcommands: []*cli.Command{
			{
				Name:   "prune",
				Usage:  "rotate and delete expired log files, then exit",
				Flags:  configFlags(),
				Action: runPrune,
			},
		},
	}
}

// loadConfig reads the flags of the innermost command that defines them.
func loadConfig(c *cli.Context) (config.Config, error) {
	root := c.String("project-root")
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return config.Config{}, fmt.Errorf("resolve project root: %w", err)
		}
		root = wd
	}

	return config.Load(config.Raw{
		LogMode:       c.String("log-mode"),
		LogLevel:      c.String("log-level"),
		RetentionDays: c.String("log-retention-days"),
		MaxSize:       c.String("log-max-size"),
		LogFile:       c.String("log-file"),
		ProjectRoot:   root,
		Debug:         c.Bool("debug"),
		Secret:        c.String("log-secret"),
		Catalog:       c.String("log-catalog"),
		LogseqHost:    c.String("logseq-host"),
		LogseqPort:    c.Int("logseq-port"),
		LogseqToken:   c.String("logseq-token"),
	})
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	diag, cleanup, err := initLogger(c.Bool("diag-json"), diagLevel(cfg), c.String("diag-file"))
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := pipeline.Open(cfg.Logging, pipeline.Env{Diag: diag})
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			diag.WithError(err).Warn("main", "shutdown", "Closing log pipeline failed")
		}
	}()

	client := logseq.NewClient(cfg.Logseq.BaseURL(),
		logseq.WithToken(cfg.Logseq.Token),
		logseq.WithTimeout(cfg.Logseq.Timeout),
		logseq.WithDiagnostics(diag),
	)
	srv := server.New(client, p, server.Options{Version: version, Diag: diag})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = srv.ServeStdio(ctx, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		err = nil
	}
	diag.Info("main", "shutdown", "Server stopped")
	return err
}

func runPrune(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	diag, cleanup, err := initLogger(c.Bool("diag-json"), diagLevel(cfg), c.String("diag-file"))
	if err != nil {
		return err
	}
	defer cleanup()

	state, err := pipeline.Prune(cfg.Logging, pipeline.Env{Diag: diag})
	if err != nil {
		return err
	}

	diag.WithFields(logging.Fields{"retired": len(state.Retired)}).
		Info("main", "prune", "Log retention check finished")

	fmt.Fprintf(c.App.Writer, "active  %s (%d bytes)\n", state.ActivePath, state.ActiveSize)
	for _, f := range state.Retired {
		fmt.Fprintf(c.App.Writer, "retired %s (%d bytes, %s)\n", f.Path, f.Size, f.RetiredAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// diagLevel keeps operational output quiet unless the tool call logger is
// at debug level.
func diagLevel(cfg config.Config) string {
	if cfg.Logging.Level == logging.DEBUG {
		return "debug"
	}
	return "info"
}

// initLogger builds the diagnostic logger. It writes to stderr unless file
// is set, since stdout carries the MCP protocol.
func initLogger(jsonOutput bool, level, file string) (logging.Logger, func(), error) {
	lvl, ok := logging.LookupLevel(level)
	if !ok {
		return nil, nil, fmt.Errorf("unknown log level %q", level)
	}

	var out io.Writer = os.Stderr
	cleanup := func() {}
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		cleanup = func() { f.Close() }
	}

	var formatter logging.Formatter = logging.NewHumanFormatter(out)
	if jsonOutput {
		formatter = &logging.JSONFormatter{}
	}
	return logging.NewLogger(logging.LoggerConfig{
		Output:    out,
		Formatter: formatter,
		Level:     lvl,
		Sanitize:  true,
	}), cleanup, nil
}
