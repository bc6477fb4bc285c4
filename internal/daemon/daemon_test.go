package daemon

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harun/toolbot/internal/config"
	"github.com/harun/toolbot/internal/logger"
	"github.com/harun/toolbot/pkg/coretools"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// createTestDaemon creates a daemon bound to a free local port
func createTestDaemon(t *testing.T, configPath string) (*Daemon, *logger.Logger) {
	cfg := config.DefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = freePort(t)
	cfg.Server.ShutdownTimeout = 1

	log, err := logger.New(logger.Config{Level: "info"})
	require.NoError(t, err)

	daemon, err := New(cfg, configPath, log)
	require.NoError(t, err)

	return daemon, log
}

func TestNew(t *testing.T) {
	daemon, log := createTestDaemon(t, "")
	defer log.Close()

	assert.NotNil(t, daemon.GetAgentRunner())
	assert.NotNil(t, daemon.GetGatewayServer())
	assert.NotNil(t, daemon.GetMetrics())
	assert.Equal(t, 4, daemon.GetToolExecutor().GetToolCount())
	assert.False(t, daemon.Status().Running)
}

func TestNewRejectsUnknownPolicyTool(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tools.Deny = []string{"shell_exec"}

	log, err := logger.New(logger.Config{Level: "info"})
	require.NoError(t, err)

	_, err = New(cfg, "", log)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool")
}

func TestDaemonStartStop(t *testing.T) {
	daemon, log := createTestDaemon(t, "")
	defer log.Close()

	require.NoError(t, daemon.Start())
	assert.Error(t, daemon.Start())

	status := daemon.Status()
	assert.True(t, status.Running)

	url := fmt.Sprintf("http://%s/api/chat", daemon.GetConfig().Server.Address())
	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Post(url, "application/json",
			strings.NewReader(`{"messages":[{"role":"user","content":"calculate 6*7"}]}`))
		if err != nil {
			return false
		}
		resp = r
		return true
	}, 2*time.Second, 20*time.Millisecond)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, daemon.Stop())
	assert.False(t, daemon.Status().Running)
	assert.Error(t, daemon.Stop())
}

func TestDaemonStopRightAfterStart(t *testing.T) {
	for i := 0; i < 3; i++ {
		daemon, log := createTestDaemon(t, "")

		require.NoError(t, daemon.Start())
		begin := time.Now()
		require.NoError(t, daemon.Stop())
		assert.Less(t, time.Since(begin), 3*time.Second)

		_, err := net.DialTimeout("tcp", daemon.GetConfig().Server.Address(), 200*time.Millisecond)
		assert.Error(t, err, "listener still accepting after Stop")

		select {
		case err := <-daemon.Errors():
			t.Fatalf("unexpected serve error: %v", err)
		default:
		}
		log.Close()
	}
}

func TestDaemonReloadsLogLevel(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "toolbot.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"logging":{"level":"info"}}`), 0644))

	daemon, log := createTestDaemon(t, configPath)
	defer log.Close()

	require.NoError(t, daemon.Start())
	defer daemon.Stop()

	require.NoError(t, os.WriteFile(configPath, []byte(`{"logging":{"level":"debug"}}`), 0644))

	assert.Eventually(t, func() bool {
		return log.Level() == zerolog.DebugLevel
	}, 5*time.Second, 25*time.Millisecond)
}

func TestNewRuntime(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tools.RandomSeed = 7
	cfg.Tools.Deny = []string{coretools.ToolRandomNumber}

	runtime, err := NewRuntime(cfg, nil, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, []string{
		coretools.ToolCalculate,
		coretools.ToolCurrentTime,
		coretools.ToolRandomNumber,
		coretools.ToolWordCount,
	}, runtime.ToolExecutor.ListTools())

	// The catalog is sealed.
	assert.Error(t, coretools.RegisterCoreTools(runtime.ToolExecutor, coretools.Options{}))
}
