package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/apicize/engine/pkg/engine"
	"github.com/apicize/engine/pkg/persistence"
)

func newRunCmd() *cobra.Command {
	var (
		ids     []string
		runs    int
		timeout time.Duration
		jsonOut bool
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "run <workbook.apicize>",
		Short: "Execute a workbook's requests and groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := persistence.LoadWorkspace(args[0])
			if err != nil {
				return err
			}

			ctx := context.Background()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			var overrideRuns *int
			if runs > 0 {
				overrideRuns = &runs
			}

			exec, err := engine.Run(ctx, ws, ids, time.Now(), overrideRuns)
			defer engine.ShutdownJSPlatform()
			if err != nil {
				return fmt.Errorf("running workbook: %w", err)
			}

			if err := emitExecution(exec, jsonOut, outPath); err != nil {
				return err
			}
			if code := exec.Counters.RequestsWithFailedTestsCount + exec.Counters.RequestsWithErrors; code > 0 {
				os.Exit(code)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&ids, "id", nil, "run only the named request/group ids (default: every top-level entry)")
	cmd.Flags().IntVar(&runs, "runs", 0, "override every node's configured run count")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "cancel the run after this long (0 = no timeout)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the raw execution result as JSON")
	cmd.Flags().StringVar(&outPath, "out", "", "also write the execution result JSON to this file")
	return cmd
}

func emitExecution(exec *engine.Execution, jsonOut bool, outPath string) error {
	if outPath != "" {
		data, err := json.MarshalIndent(exec, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding execution result: %w", err)
		}
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", outPath, err)
		}
	}

	if jsonOut {
		data, err := json.MarshalIndent(exec, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding execution result: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	printExecution(exec)
	return nil
}
