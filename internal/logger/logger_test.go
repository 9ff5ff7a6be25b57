package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_FormatsAndFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Debug("hidden %d", 1)
	log.With("shop", "acme.myshopify.com").Info("synced %d customers", 3)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "synced 3 customers", entry["message"])
	assert.Equal(t, "acme.myshopify.com", entry["shop"])
}

func TestLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("verbose", &buf)

	log.Debug("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogger_PercentWithoutArgsIsLiteral(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("info", &buf).Error("100% failed")
	assert.Contains(t, buf.String(), "100% failed")
}
