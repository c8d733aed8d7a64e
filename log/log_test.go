// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLazyLoggerFollowsDefault(t *testing.T) {
	logger := WithContext("pkg", "test")

	var buf bytes.Buffer
	SetDefault(NewJSONHandler(&buf, LevelDebug))
	t.Cleanup(func() { SetDefault(DiscardHandler()) })

	logger.With("id", 7).Info("round closed", "value", 102)
	logger.Trace("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "round closed", record["msg"])
	assert.Equal(t, "test", record["pkg"])
	assert.Equal(t, float64(7), record["id"])
	assert.Equal(t, float64(102), record["value"])
}

func TestTerminalHandler(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewTerminalHandler(&buf, FromLegacyLevel(3), false))
	t.Cleanup(func() { SetDefault(DiscardHandler()) })

	Debug("dropped")
	Warn("kept", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
	assert.Contains(t, out, "k=v")
}
