package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/awaken/pkg/classify"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <code>...",
	Short: "Classify personality codes without running the ritual",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := classify.New(classify.WithCacheSize(cfg.Classifier.CacheSize))
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		out := cmd.OutOrStdout()

		for _, code := range args {
			res := engine.Explain(code)
			if asJSON {
				data, err := json.Marshal(res)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				continue
			}
			note := res.Rule
			if res.Fallback {
				note = "fallback"
			}
			fmt.Fprintf(out, "%-6s %-12s (%s)\n", code, res.Archetype, note)
		}
		return nil
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the classification rules in evaluation order",
	Run: func(cmd *cobra.Command, args []string) {
		for i, rule := range classify.MustNew().Rules() {
			fmt.Fprintf(cmd.OutOrStdout(), "%2d. %s\n", i+1, rule)
		}
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.AddCommand(rulesCmd)
	classifyCmd.Flags().Bool("json", false, "Print one JSON result per line")
}
