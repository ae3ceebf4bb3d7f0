package main

import (
	"errors"
	"os"

	"github.com/aretw0/awaken/internal/cli"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Walk the quiz, the ritual and the divination",
	Long:  `Starts one flow in the terminal. Use --tui for the full-screen interface.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.RunOptions{Config: cfg}
		opts.Code, _ = cmd.Flags().GetString("code")
		opts.Name, _ = cmd.Flags().GetString("name")
		opts.FlowID, _ = cmd.Flags().GetString("flow")
		opts.TUI, _ = cmd.Flags().GetBool("tui")
		opts.Headless, _ = cmd.Flags().GetBool("headless")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Debug, _ = cmd.Flags().GetBool("debug")
		opts.Speed, _ = cmd.Flags().GetFloat64("speed")
		opts.ExportDir, _ = cmd.Flags().GetString("export")

		if opts.TUI && !term.IsTerminal(int(os.Stdout.Fd())) {
			return errors.New("--tui needs an interactive terminal")
		}
		return cli.Execute(cmd.Context(), opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("code", "", "Skip the quiz with this four-letter code")
	runCmd.Flags().String("name", "", "Display name shown on the reveal card")
	runCmd.Flags().String("flow", "", "Flow ID (generated when empty)")
	runCmd.Flags().Bool("tui", false, "Run the full-screen interface")
	runCmd.Flags().Bool("headless", false, "Run without prompts on a virtual clock (needs --code)")
	runCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	runCmd.Flags().Float64("speed", 0, "Scale the ritual clock (2 runs twice as fast)")
	runCmd.Flags().String("export", "", "Directory to save the reveal card as markdown")

	// 'run' is the default when no command is provided.
	rootCmd.RunE = runCmd.RunE
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
}
