// Command vira copies and reparents issues in the VIRA Jira instance across
// the Capability, Feature, Story and Sub-task hierarchy.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/peorobertsson/vira/internal/config"
	"github.com/peorobertsson/vira/internal/debug"
	"github.com/peorobertsson/vira/internal/telemetry"
	"github.com/peorobertsson/vira/internal/ui"
)

var (
	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc

	logger *slog.Logger

	urlFlag      string
	userFlag     string
	passwordFlag string
	tokenFlag    string
	forceFlag    bool
	dryRunFlag   bool
	verboseFlag  bool
	quietFlag    bool
)

func init() {
	if err := config.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize config: %v\n", err)
	}

	rootCmd.PersistentFlags().StringVar(&urlFlag, "url", "", "Jira URL (default: $VIRA_URL or "+config.DefaultURL+")")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "Jira user, i.e. your CDSID (prompted for if not set)")
	rootCmd.PersistentFlags().StringVar(&passwordFlag, "password", "", "Jira password (prompted for if not set)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "Personal access token; replaces --user and --password")
	rootCmd.PersistentFlags().BoolVarP(&forceFlag, "force", "f", false, "Do not ask for confirmation")
	rootCmd.PersistentFlags().BoolVarP(&dryRunFlag, "dry-run", "n", false, "Log what would be changed without changing anything")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")

	rootCmd.Flags().BoolP("version", "V", false, "Print version information")
}

var rootCmd = &cobra.Command{
	Use:   "vira",
	Short: "vira - copy and reparent VIRA issues",
	Long: `Copies Jira issues, alone or with their whole subtree, and moves issues
between parents in the Capability > Feature > Story > Sub-task hierarchy.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("vira version %s (%s)\n", Version, Build)
			return
		}
		_ = cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupSignalContext()
		applyVerbosityFlags()
		ui.InitColor()
		if err := telemetry.Init(rootCtx, "vira", Version); err != nil {
			WarnError("failed to initialize telemetry: %v", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		shutdown()
	},
}

func setupSignalContext() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// applyVerbosityFlags propagates --verbose and --quiet to the debug package
// and builds the structured logger at the matching level.
func applyVerbosityFlags() {
	debug.SetVerbose(verboseFlag)
	debug.SetQuiet(quietFlag)
	logger = debug.NewLogger(os.Stderr)
}

func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	telemetry.Shutdown(ctx)
	if rootCancel != nil {
		rootCancel()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		shutdown()
		FatalError("%v", err)
	}
}
