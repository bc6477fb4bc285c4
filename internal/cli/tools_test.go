package cli

import (
	"encoding/json"
	"testing"

	"github.com/harun/toolbot/pkg/gateway"
	"github.com/harun/toolbot/pkg/toolexecutor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var catalogOrder = []string{"calculate", "get_current_time", "generate_random_number", "word_count"}

func TestToolsCommand(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		out, err := runCommand(t, "tools", "--config", isolatedConfig(t), "--log-level", "error", "-o", "table")
		require.NoError(t, err)

		assert.Contains(t, out, "NAME")
		for _, name := range catalogOrder {
			assert.Contains(t, out, name)
		}
		assert.Contains(t, out, "expression:string")
		assert.Contains(t, out, "min:integer?=0")
	})

	t.Run("json", func(t *testing.T) {
		out, err := runCommand(t, "tools", "--config", isolatedConfig(t), "--log-level", "error", "-o", "json")
		require.NoError(t, err)

		var resp gateway.ToolsResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		require.Len(t, resp.Tools, len(catalogOrder))
		for i, name := range catalogOrder {
			assert.Equal(t, name, resp.Tools[i].Name)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		out, err := runCommand(t, "tools", "--config", isolatedConfig(t), "--log-level", "error", "-o", "yaml")
		require.NoError(t, err)

		var resp struct {
			Tools []gateway.ToolInfo `yaml:"tools"`
		}
		require.NoError(t, yaml.Unmarshal([]byte(out), &resp))
		require.Len(t, resp.Tools, len(catalogOrder))
		assert.Equal(t, "word_count", resp.Tools[3].Name)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := runCommand(t, "tools", "--config", isolatedConfig(t), "--log-level", "error", "-o", "xml")
		assert.Error(t, err)
	})
}

func TestFormatParameters(t *testing.T) {
	assert.Equal(t, "-", formatParameters(nil))
	assert.Equal(t, "text:string, n:integer?=3", formatParameters([]toolexecutor.ToolParameter{
		{Name: "text", Type: "string", Required: true},
		{Name: "n", Type: "integer", Default: 3},
	}))
}
