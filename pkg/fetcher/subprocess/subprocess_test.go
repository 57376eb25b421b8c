package subprocess

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// catEchoCommand returns an OS command that echoes its stdin to stdout
// unchanged, used to exercise runJSON's stdin/stdout wiring without a real
// MCP server.
func catEchoCommand(t *testing.T) []string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("no portable stdin-echo command on windows")
	}
	return []string{"cat"}
}

func TestRunJSON_RoundTripsViaStdio(t *testing.T) {
	cmd := catEchoCommand(t)
	var out map[string]int
	err := runJSON(context.Background(), cmd, map[string]int{"count": 5}, &out)
	require.NoError(t, err)
	assert.Equal(t, 5, out["count"])
}

func TestRunJSON_EmptyCommandErrors(t *testing.T) {
	var out any
	err := runJSON(context.Background(), nil, map[string]int{}, &out)
	assert.Error(t, err)
}

func TestRunJSON_NonexistentBinaryErrors(t *testing.T) {
	var out any
	err := runJSON(context.Background(), []string{"definitely-not-a-real-binary-xyz"}, map[string]int{}, &out)
	assert.Error(t, err)
}
