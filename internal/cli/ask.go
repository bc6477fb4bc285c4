package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harun/toolbot/internal/config"
	"github.com/harun/toolbot/internal/daemon"
	"github.com/harun/toolbot/pkg/agent"
	"github.com/spf13/cobra"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask <message...>",
	Short: "Answer a single message locally",
	Long: `Run one conversational turn without starting the server and print
the assistant reply. With --json the full message, including any tool
call, is printed instead.`,
	Example: `  toolbot ask what is 12 * 7
  toolbot ask --json "count the words in 'to be or not to be'"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the assistant message as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Logging.Level = askLogLevel(cfg)

	log, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	runtime, err := daemon.NewRuntime(cfg, nil, log.GetZerolog())
	if err != nil {
		return err
	}

	history := []agent.Message{{Role: agent.RoleUser, Content: strings.Join(args, " ")}}
	reply, err := runtime.Runner.Respond(commandContext(cmd), history)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if askJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reply)
	}

	_, err = fmt.Fprintln(out, reply.Content)
	return err
}

// askLogLevel quiets the default info logging so only the reply is printed.
// A level set by --log-level or in the config file is kept.
func askLogLevel(cfg *config.Config) string {
	if logLevel == "" && cfg.Logging.Level == config.DefaultConfig().Logging.Level {
		return "warn"
	}
	return cfg.Logging.Level
}
