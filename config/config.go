package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/auditmos/logseq-mcp/logging"
	"github.com/auditmos/logseq-mcp/privacy"
)

const (
	DefaultMaxSize     int64 = 10 * 1024 * 1024
	DefaultLogseqHost        = "localhost"
	DefaultLogseqPort        = 12315
	DefaultTimeout           = 30 * time.Second
	DefaultLogFileName       = "logseq-mcp.log"

	// UnboundedRetention as RetentionDays keeps retired files forever.
	UnboundedRetention = -1
)

// Config is built once at startup and never modified afterwards.
type Config struct {
	Logging Logging
	Logseq  Logseq
}

type Logging struct {
	Mode          privacy.Mode
	Level         logging.LogLevel
	RetentionDays int
	MaxSize       int64
	File          string
	ConsoleEcho   bool
	// Secret is the base64 encoded anonymizer key; empty means generate one.
	Secret string
	// Catalog is the sqlite database remembering retired files; empty
	// disables it.
	Catalog string
}

// Retention converts RetentionDays to a duration, negative when unbounded.
func (l Logging) Retention() time.Duration {
	if l.RetentionDays < 0 {
		return -1
	}
	return time.Duration(l.RetentionDays) * 24 * time.Hour
}

type Logseq struct {
	Host    string
	Port    int
	Token   string
	Timeout time.Duration
}

// BaseURL is the single endpoint every Logseq API call is posted to.
func (l Logseq) BaseURL() string {
	return "http://" + net.JoinHostPort(l.Host, strconv.Itoa(l.Port)) + "/api"
}

// Raw holds configuration values as read from flags and the environment.
type Raw struct {
	LogMode       string
	LogLevel      string
	RetentionDays string
	MaxSize       string
	LogFile       string
	ProjectRoot   string
	Debug         bool
	Secret        string
	Catalog       string

	LogseqHost  string
	LogseqPort  int
	LogseqToken string
}

// Load validates raw and produces the immutable Config. Unknown modes,
// levels and sizes are errors rather than silently defaulted.
func Load(raw Raw) (Config, error) {
	mode, err := privacy.ParseMode(raw.LogMode)
	if err != nil {
		return Config{}, err
	}

	level := logging.INFO
	if strings.TrimSpace(raw.LogLevel) != "" {
		l, ok := logging.LookupLevel(raw.LogLevel)
		if !ok {
			return Config{}, fmt.Errorf("unknown log level %q (want DEBUG, INFO, WARNING or ERROR)", raw.LogLevel)
		}
		level = l
	}

	retention, err := ParseRetention(raw.RetentionDays)
	if err != nil {
		return Config{}, err
	}

	maxSize := DefaultMaxSize
	if strings.TrimSpace(raw.MaxSize) != "" {
		if maxSize, err = ParseSize(raw.MaxSize); err != nil {
			return Config{}, err
		}
	}

	file := raw.LogFile
	if file == "" {
		file = DefaultLogFile(raw.ProjectRoot)
	}

	host := raw.LogseqHost
	if host == "" {
		host = DefaultLogseqHost
	}
	port := raw.LogseqPort
	if port == 0 {
		port = DefaultLogseqPort
	}
	if port < 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid Logseq API port %d", port)
	}

	return Config{
		Logging: Logging{
			Mode:          mode,
			Level:         level,
			RetentionDays: retention,
			MaxSize:       maxSize,
			File:          file,
			ConsoleEcho:   raw.Debug,
			Secret:        strings.TrimSpace(raw.Secret),
			Catalog:       raw.Catalog,
		},
		Logseq: Logseq{
			Host:    host,
			Port:    port,
			Token:   raw.LogseqToken,
			Timeout: DefaultTimeout,
		},
	}, nil
}

// DefaultLogFile is <root>/logs/logseq-mcp.log.
func DefaultLogFile(projectRoot string) string {
	return filepath.Join(projectRoot, "logs", DefaultLogFileName)
}

// ParseRetention reads a day count. Empty means UnboundedRetention.
func ParseRetention(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnboundedRetention, nil
	}
	days, err := strconv.Atoi(s)
	if err != nil || days < 0 {
		return 0, fmt.Errorf("invalid retention %q: want a non-negative number of days", s)
	}
	return days, nil
}

var sizeUnits = []struct {
	suffix string
	factor int64
}{
	{"GB", 1024 * 1024 * 1024},
	{"MB", 1024 * 1024},
	{"KB", 1024},
	{"B", 1},
}

// ParseSize accepts a byte count with an optional KB, MB or GB suffix
// (binary multiples, case insensitive), e.g. "10MB" or "1048576".
func ParseSize(s string) (int64, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	factor := int64(1)
	for _, u := range sizeUnits {
		if strings.HasSuffix(v, u.suffix) {
			v = strings.TrimSpace(strings.TrimSuffix(v, u.suffix))
			factor = u.factor
			break
		}
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q: want bytes or a KB, MB or GB value", s)
	}
	if n > 0 && factor > 1 && n > (1<<62)/factor {
		return 0, fmt.Errorf("size %q is too large", s)
	}
	return n * factor, nil
}
