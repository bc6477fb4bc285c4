package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/harun/toolbot/internal/daemon"
	"github.com/harun/toolbot/pkg/gateway"
	"github.com/harun/toolbot/pkg/toolexecutor"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var toolsOutput string

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tool catalog",
	Long:  `List every tool the assistant can call, in priority order.`,
	Args:  cobra.NoArgs,
	RunE:  runTools,
}

func init() {
	toolsCmd.Flags().StringVarP(&toolsOutput, "output", "o", "table", "output format (table, json, yaml)")
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	runtime, err := daemon.NewRuntime(cfg, nil, log.GetZerolog())
	if err != nil {
		return err
	}

	infos := gateway.ToolInfos(runtime.ToolExecutor.Definitions())
	out := cmd.OutOrStdout()

	switch toolsOutput {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(gateway.ToolsResponse{Tools: infos})
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(map[string]interface{}{"tools": infos})
	case "table":
		_, err := fmt.Fprintln(out, renderToolTable(infos))
		return err
	default:
		return fmt.Errorf("unknown output format %q (must be one of: table, json, yaml)", toolsOutput)
	}
}

func renderToolTable(infos []gateway.ToolInfo) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "DESCRIPTION", "PARAMETERS").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, info := range infos {
		t.Row(info.Name, info.Description, formatParameters(info.Parameters))
	}
	return t.String()
}

func formatParameters(params []toolexecutor.ToolParameter) string {
	if len(params) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(params))
	for _, p := range params {
		part := p.Name + ":" + p.Type
		if !p.Required {
			part += "?"
		}
		if p.Default != nil {
			part += fmt.Sprintf("=%v", p.Default)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}
