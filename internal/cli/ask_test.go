package cli

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/harun/toolbot/pkg/agent"
	"github.com/harun/toolbot/pkg/composer"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskCommand(t *testing.T) {
	t.Run("tool reply", func(t *testing.T) {
		out, err := runCommand(t, "ask", "--config", isolatedConfig(t), "--log-level", "error", "--json=false", "calculate", "6", "*", "7")
		require.NoError(t, err)
		assert.Equal(t, "The result is: 42\n", out)
	})

	t.Run("greeting", func(t *testing.T) {
		out, err := runCommand(t, "ask", "--config", isolatedConfig(t), "--log-level", "error", "--json=false", "hello")
		require.NoError(t, err)
		assert.Equal(t, composer.GreetingMessage+"\n", out)
	})

	t.Run("json output", func(t *testing.T) {
		out, err := runCommand(t, "ask", "--config", isolatedConfig(t), "--log-level", "error", "--json", "count words: one two three")
		require.NoError(t, err)

		var msg agent.Message
		require.NoError(t, json.Unmarshal([]byte(out), &msg))
		assert.Equal(t, agent.RoleAssistant, msg.Role)
		assert.Equal(t, "Word count: 3 words, 13 characters", msg.Content)
		require.Len(t, msg.ToolCalls, 1)
		assert.Equal(t, "word_count", msg.ToolCalls[0].Name)
	})

	t.Run("default level is quiet", func(t *testing.T) {
		_, err := runCommand(t, "ask", "--config", isolatedConfig(t), "--log-level", "", "--json=false", "hi")
		require.NoError(t, err)
		assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	})

	t.Run("configured level is kept", func(t *testing.T) {
		configPath := isolatedConfig(t)
		require.NoError(t, os.WriteFile(configPath, []byte(`{"logging":{"level":"debug","console":false}}`), 0644))

		_, err := runCommand(t, "ask", "--config", configPath, "--log-level", "", "--json=false", "hi")
		require.NoError(t, err)
		assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	})

	t.Run("flag wins", func(t *testing.T) {
		configPath := isolatedConfig(t)
		require.NoError(t, os.WriteFile(configPath, []byte(`{"logging":{"level":"debug","console":false}}`), 0644))

		_, err := runCommand(t, "ask", "--config", configPath, "--log-level", "error", "--json=false", "hi")
		require.NoError(t, err)
		assert.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())
	})

	t.Run("requires a message", func(t *testing.T) {
		_, err := runCommand(t, "ask", "--config", isolatedConfig(t))
		assert.Error(t, err)
	})
}
