// -- cmd/run.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot-cli/internal/agent"
	"github.com/xkilldash9x/webpilot-cli/internal/browser"
	"github.com/xkilldash9x/webpilot-cli/internal/config"
	"github.com/xkilldash9x/webpilot-cli/internal/observability"
	"github.com/xkilldash9x/webpilot-cli/internal/oracle"
	"github.com/xkilldash9x/webpilot-cli/internal/reporting"
)

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	var scenarioNum int

	runCmd := &cobra.Command{
		Use:   "run [url]",
		Short: "Runs one AI-piloted testing session against a target URL",
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their Viper keys so command-line flags correctly
			// override values from the config file and environment.
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			if err := viper.BindPFlag("session.max_iterations", cmd.Flags().Lookup("max-iterations")); err != nil {
				return err
			}
			return viper.BindPFlag("report.output", cmd.Flags().Lookup("output"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			targetURL, task, err := resolveTarget(cmd, args, scenarioNum)
			if err != nil {
				return err
			}

			oracleClient, err := oracle.NewClient(cfg.Oracle, logger)
			if err != nil {
				return err
			}

			manager, err := browser.NewManager(ctx, cfg.Browser, logger)
			if err != nil {
				return fmt.Errorf("failed to start browser: %w", err)
			}
			defer manager.Shutdown()

			session, err := manager.NewSession()
			if err != nil {
				return fmt.Errorf("failed to open browser session: %w", err)
			}

			orchestrator := agent.NewOrchestrator(*cfg, session, oracleClient, logger)
			report, runErr := orchestrator.Run(ctx, targetURL, task)

			// The session always yields a report, whether the run ended
			// gracefully, by policy, or in error.
			if err := reporting.Write(report, cfg.Report.Output); err != nil {
				logger.Error("Failed to persist report.", zap.Error(err))
			}
			return runErr
		},
	}

	runCmd.Flags().String("task", "", "task description for the pilot")
	runCmd.Flags().IntVar(&scenarioNum, "scenario", 0, "run a built-in scenario by number (see `webpilot scenarios`)")
	runCmd.Flags().Bool("headless", true, "run the browser headless")
	runCmd.Flags().Int("max-iterations", 10, "maximum number of pilot iterations")
	runCmd.Flags().String("output", "", "report output path (default stdout)")

	return runCmd
}

// resolveTarget merges positional URL, --task and --scenario into one
// (url, task) pair.
func resolveTarget(cmd *cobra.Command, args []string, scenarioNum int) (string, string, error) {
	if scenarioNum > 0 {
		s, err := scenarioByNumber(scenarioNum)
		if err != nil {
			return "", "", err
		}
		return s.URL, s.Task, nil
	}

	if len(args) == 0 {
		return "", "", fmt.Errorf("a target URL is required unless --scenario is given")
	}
	task, err := cmd.Flags().GetString("task")
	if err != nil {
		return "", "", err
	}
	if task == "" {
		return "", "", fmt.Errorf("--task is required unless --scenario is given")
	}
	return args[0], task, nil
}

func init() {
	rootCmd.AddCommand(newRunCmd())
}
