package advlab

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandler(t *testing.T) {
	var out bytes.Buffer
	log := slog.New(NewHandler(&out, &slog.HandlerOptions{Level: slog.LevelInfo}))

	log.Info("reading scans", "module", "config")
	assert.Regexp(t, `^\[\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}\] \[config\] reading scans\n$`, out.String())

	out.Reset()
	log.Warn("few peaks", "module", "peaks")
	assert.Regexp(t, `\] \[WARN\] \[peaks\] few peaks\n$`, out.String())

	out.Reset()
	log.Debug("hidden")
	assert.Empty(t, out.String())
}

func TestNewLogger(t *testing.T) {
	var stdout, stderr bytes.Buffer
	l := NewLogger(&stdout, &stderr, slog.LevelInfo)

	l.Info("starting", "vertexing")
	l.Warn("no secondary vertex", "selection")
	l.Error("singular matrix")

	assert.Contains(t, stdout.String(), "[vertexing] starting")
	assert.Contains(t, stderr.String(), `"level":"WARN"`)
	assert.Contains(t, stderr.String(), `"module":"selection"`)
	assert.Contains(t, stderr.String(), `"msg":"singular matrix"`)
	assert.NotContains(t, stdout.String(), "singular")
}

func TestSetLogger(t *testing.T) {
	var stdout, stderr bytes.Buffer
	SetLogger(NewLogger(&stdout, &stderr, slog.LevelInfo))
	t.Cleanup(func() { SetLogger(nil) })

	logger.Info("hello", "test")
	assert.Contains(t, stdout.String(), "[test] hello")

	SetLogger(nil)
	logger.Info("dropped", "test")
	assert.NotContains(t, stdout.String(), "dropped")
}
