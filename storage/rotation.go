package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/auditmos/logseq-mcp/logging"
)

// UnboundedRetention disables retention pruning.
const UnboundedRetention time.Duration = -1

const retiredStampLayout = "20060102-150405.000000"

// RetiredFile describes a log file that has been rotated out.
type RetiredFile struct {
	Path      string
	Size      int64
	CreatedAt time.Time
	RetiredAt time.Time
}

// RotationState is a snapshot of what the RotationManager tracks. Retired
// is ordered newest first.
type RotationState struct {
	ActivePath    string
	ActiveSize    int64
	ActiveCreated time.Time
	Retired       []RetiredFile
}

type RotationConfig struct {
	Path string
	// MaxSize is the active file size that triggers rotation. Zero disables
	// size based rotation.
	MaxSize int64
	// Retention is the maximum age of a retired file, measured from its
	// retirement. Negative means unbounded.
	Retention time.Duration
	Catalog   Catalog
	Diag      logging.Logger
	Now       func() time.Time
	// WarnLimit caps repeated warnings of one kind per minute. Zero means
	// the default, negative disables the cap.
	WarnLimit int
}

// RotationManager owns the active log file. It does no locking of its own;
// callers serialize BeforeWrite and Write.
type RotationManager struct {
	cfg     RotationConfig
	diag    logging.Logger
	now     func() time.Time
	file    *os.File
	state   RotationState
	retired *regexp.Regexp
	warns   *warnLimiter
}

func NewRotationManager(cfg RotationConfig) (*RotationManager, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("rotation: log path is required")
	}
	path, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("rotation: resolve %s: %w", cfg.Path, err)
	}
	cfg.Path = path

	m := &RotationManager{
		cfg:     cfg,
		diag:    cfg.Diag,
		now:     cfg.Now,
		retired: retiredPattern(path),
	}
	if m.diag == nil {
		m.diag = logging.NopLogger{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	limit := cfg.WarnLimit
	if limit == 0 {
		limit = defaultWarnLimit
	}
	m.warns = newWarnLimiter(limit, defaultWarnWindow, m.now)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("rotation: create log dir: %w", err)
	}
	if err := m.open(); err != nil {
		return nil, err
	}
	m.state.Retired = m.discover()
	return m, nil
}

// BeforeWrite rotates when n more bytes would push the active file past
// MaxSize or when the calendar day has changed since the file was created.
// Retention is enforced on every call. A failed rotation keeps the current
// file; only a missing active file is returned as an error.
func (m *RotationManager) BeforeWrite(n int) error {
	now := m.now()
	if m.shouldRotate(now, int64(n)) {
		if err := m.rotate(now); err != nil {
			m.warn(err, "rotate", "Log rotation failed")
		}
	}
	m.prune(now)

	if m.file == nil {
		if err := m.open(); err != nil {
			return err
		}
	}
	return nil
}

func (m *RotationManager) Write(p []byte) (int, error) {
	if m.file == nil {
		return 0, fmt.Errorf("rotation: no active log file")
	}
	n, err := m.file.Write(p)
	m.state.ActiveSize += int64(n)
	if err != nil {
		return n, fmt.Errorf("rotation: append: %w", err)
	}
	return n, nil
}

// Rotate retires the active file unconditionally if it has any content.
func (m *RotationManager) Rotate() error {
	now := m.now()
	if m.state.ActiveSize == 0 {
		return nil
	}
	if err := m.rotate(now); err != nil {
		return err
	}
	m.prune(now)
	return nil
}

// Prune runs one retention check without writing.
func (m *RotationManager) Prune() {
	m.prune(m.now())
}

func (m *RotationManager) State() RotationState {
	s := m.state
	s.Retired = append([]RetiredFile(nil), m.state.Retired...)
	return s
}

func (m *RotationManager) Close() error {
	if m.file == nil {
		return nil
	}
	err := m.file.Close()
	m.file = nil
	return err
}

// warn reports err unless warnings for action are being suppressed.
func (m *RotationManager) warn(err error, action, msg string) {
	ok, suppressed := m.warns.allow(action)
	if !ok {
		return
	}
	l := m.diag.WithError(err)
	if suppressed > 0 {
		l = l.WithFields(logging.Fields{"suppressed": suppressed})
	}
	l.Warn("rotation", action, msg)
}

func (m *RotationManager) shouldRotate(now time.Time, n int64) bool {
	if m.state.ActiveSize == 0 {
		return false
	}
	if m.cfg.MaxSize > 0 && m.state.ActiveSize+n > m.cfg.MaxSize {
		return true
	}
	return !sameDay(m.state.ActiveCreated, now)
}

func (m *RotationManager) rotate(now time.Time) error {
	if err := m.Close(); err != nil {
		m.warn(err, "close", "Closing active log file failed")
	}

	target := m.retiredName(now)
	if err := os.Rename(m.cfg.Path, target); err != nil {
		if openErr := m.open(); openErr != nil {
			return errors.Join(err, openErr)
		}
		return fmt.Errorf("rotation: rename: %w", err)
	}

	f := RetiredFile{
		Path:      target,
		Size:      m.state.ActiveSize,
		CreatedAt: m.state.ActiveCreated,
		RetiredAt: now,
	}
	m.state.Retired = append([]RetiredFile{f}, m.state.Retired...)
	if m.cfg.Catalog != nil {
		if err := m.cfg.Catalog.Add(m.cfg.Path, f); err != nil {
			m.warn(err, "catalog", "Recording retired log file failed")
		}
	}

	m.diag.WithFields(logging.Fields{"size": f.Size}).Debug("rotation", "rotate", "Log file rotated")
	return m.open()
}

func (m *RotationManager) prune(now time.Time) {
	if m.cfg.Retention < 0 || len(m.state.Retired) == 0 {
		return
	}

	kept := m.state.Retired[:0]
	for _, f := range m.state.Retired {
		if now.Sub(f.RetiredAt) <= m.cfg.Retention {
			kept = append(kept, f)
			continue
		}
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			m.warn(err, "prune", "Deleting expired log file failed")
			kept = append(kept, f)
			continue
		}
		if m.cfg.Catalog != nil {
			if err := m.cfg.Catalog.Remove(f.Path); err != nil {
				m.warn(err, "catalog", "Forgetting deleted log file failed")
			}
		}
	}
	m.state.Retired = kept
}

func (m *RotationManager) open() error {
	f, err := os.OpenFile(m.cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("rotation: open %s: %w", m.cfg.Path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("rotation: stat %s: %w", m.cfg.Path, err)
	}

	m.file = f
	m.state.ActivePath = m.cfg.Path
	m.state.ActiveSize = info.Size()
	m.state.ActiveCreated = m.now()
	if info.Size() > 0 {
		m.state.ActiveCreated = info.ModTime()
	}
	return nil
}

// retiredName is <stem>-<stamp><ext>, with -N added before the extension
// when a file of that name already exists.
func (m *RotationManager) retiredName(now time.Time) string {
	dir, base := filepath.Split(m.cfg.Path)
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]
	stamp := now.UTC().Format(retiredStampLayout)

	name := filepath.Join(dir, stem+"-"+stamp+ext)
	for i := 1; exists(name); i++ {
		name = filepath.Join(dir, stem+"-"+stamp+"-"+strconv.Itoa(i)+ext)
	}
	return name
}

// discover rebuilds the retired list from the catalog and the log directory.
func (m *RotationManager) discover() []RetiredFile {
	byPath := make(map[string]RetiredFile)

	if m.cfg.Catalog != nil {
		listed, err := m.cfg.Catalog.List(m.cfg.Path)
		if err != nil {
			m.warn(err, "catalog", "Loading retired log files failed")
		}
		for _, f := range listed {
			if !exists(f.Path) {
				if err := m.cfg.Catalog.Remove(f.Path); err != nil {
					m.warn(err, "catalog", "Forgetting missing log file failed")
				}
				continue
			}
			byPath[f.Path] = f
		}
	}

	dir := filepath.Dir(m.cfg.Path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		m.warn(err, "discover", "Scanning log directory failed")
	}
	for _, e := range entries {
		match := m.retired.FindStringSubmatch(e.Name())
		if match == nil || e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if _, known := byPath[path]; known {
			continue
		}
		retiredAt, err := time.ParseInLocation(retiredStampLayout, match[1], time.UTC)
		if err != nil {
			continue
		}
		f := RetiredFile{Path: path, RetiredAt: retiredAt, CreatedAt: retiredAt}
		if info, err := e.Info(); err == nil {
			f.Size = info.Size()
		}
		byPath[path] = f
	}

	files := make([]RetiredFile, 0, len(byPath))
	for _, f := range byPath {
		files = append(files, f)
	}
	sortNewestFirst(files)
	return files
}

func retiredPattern(path string) *regexp.Regexp {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]
	return regexp.MustCompile(`^` + regexp.QuoteMeta(stem) + `-(\d{8}-\d{6}\.\d{6})(?:-\d+)?` + regexp.QuoteMeta(ext) + `$`)
}

func sortNewestFirst(files []RetiredFile) {
	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].RetiredAt.Equal(files[j].RetiredAt) {
			return files[i].RetiredAt.After(files[j].RetiredAt)
		}
		return files[i].Path > files[j].Path
	})
}

func sameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
