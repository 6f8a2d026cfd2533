package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/auditmos/logseq-mcp/logging"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newDiag() (logging.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return logging.NewLogger(logging.LoggerConfig{
		Output:    buf,
		Formatter: &logging.JSONFormatter{},
		Level:     logging.DEBUG,
	}), buf
}

func writeRaw(t *testing.T, m *RotationManager, s string) {
	t.Helper()
	require.NoError(t, m.BeforeWrite(len(s)))
	_, err := m.Write([]byte(s))
	require.NoError(t, err)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func logPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "logs", "logseq-mcp.log")
}
