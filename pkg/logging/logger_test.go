package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggingWithWriter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	InitLoggingWithWriter("warn", "json", &buf)
	t.Cleanup(func() { InitLoggingWithWriter("info", "json", &bytes.Buffer{}) })

	Infof("dropped %d", 1)
	Warnf("kept %s", "warning")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "kept warning", entry["message"])
	assert.Equal(t, "foodsnap-core", entry["service"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "debug", parseLevel("DEBUG").String())
	assert.Equal(t, "warn", parseLevel("warning").String())
	assert.Equal(t, "error", parseLevel(" error ").String())
	assert.Equal(t, "info", parseLevel("").String())
}
