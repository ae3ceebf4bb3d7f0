package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/awaken/internal/cli"
	"github.com/aretw0/awaken/internal/logging"
	"github.com/aretw0/awaken/pkg/ports"
	"github.com/spf13/cobra"
)

var flowsCmd = &cobra.Command{
	Use:   "flows",
	Short: "Manage stored flows",
	Long:  `List, inspect, and remove flow records kept by the configured store (useful with the redis and file drivers).`,
}

var flowsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored flows",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store ports.FlowStore) error {
			ids, err := store.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("error listing flows: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "No stored flows found.")
				return nil
			}
			fmt.Fprintln(out, "Stored Flows:")
			for _, id := range ids {
				fmt.Fprintln(out, "- "+id)
			}
			return nil
		})
	},
}

var flowsInspectCmd = &cobra.Command{
	Use:   "inspect <flow-id>",
	Short: "Print the record of a flow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store ports.FlowStore) error {
			record, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("error loading flow '%s': %w", args[0], err)
			}
			data, err := json.MarshalIndent(record, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		})
	},
}

var flowsRmCmd = &cobra.Command{
	Use:   "rm <flow-id>...",
	Short: "Remove one or more flows",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store ports.FlowStore) error {
			var errs []error
			for _, id := range args {
				if err := store.Delete(cmd.Context(), id); err != nil {
					errs = append(errs, fmt.Errorf("error removing '%s': %w", id, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed flow '%s'\n", id)
			}
			return errors.Join(errs...)
		})
	},
}

func init() {
	rootCmd.AddCommand(flowsCmd)
	flowsCmd.AddCommand(flowsLsCmd)
	flowsCmd.AddCommand(flowsInspectCmd)
	flowsCmd.AddCommand(flowsRmCmd)
}

func withStore(cmd *cobra.Command, fn func(ports.FlowStore) error) error {
	store, _, closeStore, err := cli.OpenStore(cmd.Context(), cfg, logging.NewNop())
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(store)
}
