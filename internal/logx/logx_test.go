package logx

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFromFlags(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LevelFromFlags(true, false))
	assert.Equal(t, slog.LevelDebug, LevelFromFlags(true, true))
	assert.Equal(t, slog.LevelWarn, LevelFromFlags(false, true))
	assert.Equal(t, slog.LevelInfo, LevelFromFlags(false, false))
}

func TestHandler_PlainLine(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelInfo, true)

	log.Warn("Missing shader!", "program", "progB", "missing", []string{"fragment"})
	assert.Equal(t, "WARN Missing shader! program=progB missing=fragment\n", buf.String())
}

func TestHandler_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelWarn, true)

	log.Info("scanning", "root", "shaders")
	log.Debug("dir", "name", "progA")
	assert.Empty(t, buf.String())

	log.Error("boom", "err", errors.New("disk full"))
	assert.Equal(t, "ERROR boom err=\"disk full\"\n", buf.String())
}

func TestHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelDebug, true).With("run", 1).WithGroup("emit")

	log.Debug("header", "program", "progA", slog.Group("stage", "file", "vertex.glsl"))
	assert.Equal(t, "DEBUG header run=1 emit.program=progA emit.stage.file=vertex.glsl\n", buf.String())
}

func TestHandler_QuotesValues(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, slog.LevelInfo, true).Info("scan", "root", "my shaders", "empty", "")
	assert.Equal(t, "INFO scan root=\"my shaders\" empty=\"\"\n", buf.String())
}
