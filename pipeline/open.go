package pipeline

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/auditmos/logseq-mcp/config"
	"github.com/auditmos/logseq-mcp/crypto"
	"github.com/auditmos/logseq-mcp/logging"
	"github.com/auditmos/logseq-mcp/privacy"
	"github.com/auditmos/logseq-mcp/storage"
)

// Env carries the process-level collaborators Open needs besides config.
type Env struct {
	Diag    logging.Logger
	Console io.Writer
	Now     func() time.Time
}

// Open builds the production pipeline from cfg: anonymizer key, sanitizer,
// rotating file sink (plus the optional catalog and console echo), all
// behind an AsyncWriter.
func Open(cfg config.Logging, env Env) (*Pipeline, error) {
	diag := env.Diag
	if diag == nil {
		diag = logging.NopLogger{}
	}
	console := env.Console
	if console == nil {
		console = os.Stderr
	}

	key, generated, err := crypto.ResolveKey(cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("log secret: %w", err)
	}
	anon, err := privacy.NewAnonymizer(key)
	if err != nil {
		return nil, fmt.Errorf("log secret: %w", err)
	}
	if generated {
		diag.Debug("pipeline", "open", "Generated a fresh anonymizer secret for this run")
	}

	var closers []func() error
	rotCfg := storage.RotationConfig{
		Path:      cfg.File,
		MaxSize:   cfg.MaxSize,
		Retention: cfg.Retention(),
		Diag:      diag,
		Now:       env.Now,
	}
	if cfg.Catalog != "" {
		db, err := storage.OpenDB(cfg.Catalog)
		if err != nil {
			return nil, fmt.Errorf("log catalog: %w", err)
		}
		rotCfg.Catalog = storage.NewSQLiteCatalog(db)
		closers = append(closers, db.Close)
	}

	file, err := storage.OpenFileSink(rotCfg)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, err
	}

	var sink storage.EventWriter = file
	if cfg.ConsoleEcho {
		sink = storage.NewMultiSink(file, storage.NewConsoleSink(console))
	}

	p := New(Options{
		Sanitizer: privacy.NewSanitizer(cfg.Mode, anon),
		Writer:    storage.NewAsyncWriter(sink, storage.WithDiagnostics(diag)),
		MinLevel:  cfg.Level,
		Diag:      diag,
		Now:       env.Now,
		Closers:   closers,
	})

	diag.WithFields(logging.Fields{
		"log_file":       cfg.File,
		"log_mode":       cfg.Mode.String(),
		"log_level":      cfg.Level.String(),
		"max_file_size":  cfg.MaxSize,
		"retention_days": cfg.RetentionDays,
		"console_echo":   cfg.ConsoleEcho,
	}).Info("pipeline", "open", "Logging initialized")
	return p, nil
}

// Prune runs one rotation and retention check against the configured log
// file and returns what remains.
func Prune(cfg config.Logging, env Env) (storage.RotationState, error) {
	rotCfg := storage.RotationConfig{
		Path:      cfg.File,
		MaxSize:   cfg.MaxSize,
		Retention: cfg.Retention(),
		Diag:      env.Diag,
		Now:       env.Now,
	}
	if cfg.Catalog != "" {
		db, err := storage.OpenDB(cfg.Catalog)
		if err != nil {
			return storage.RotationState{}, fmt.Errorf("log catalog: %w", err)
		}
		defer db.Close()
		rotCfg.Catalog = storage.NewSQLiteCatalog(db)
	}

	rot, err := storage.NewRotationManager(rotCfg)
	if err != nil {
		return storage.RotationState{}, err
	}
	defer rot.Close()

	if err := rot.BeforeWrite(0); err != nil {
		return storage.RotationState{}, err
	}
	return rot.State(), nil
}
