package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"revoice/internal/config"
	"revoice/internal/runs"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect pipeline runs",
	}
	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *runs.Store) error {
				listed, err := store.List(context.Background(), limit)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, listed)
				}
				if len(listed) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs yet")
					return nil
				}

				rows := make([][]string, 0, len(listed))
				for _, run := range listed {
					rows = append(rows, []string{
						run.ID,
						string(run.Step),
						formatProgress(run),
						truncatePath(run.SourcePath, 48),
						formatTimestamp(run.UpdatedAt),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "STEP", "PROGRESS", "SOURCE", "UPDATED"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit runs as JSON")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *runs.Store) error {
				run, err := store.GetByID(context.Background(), args[0])
				if err != nil {
					return err
				}
				artifacts, err := store.ArtifactsForRun(context.Background(), run.ID)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, map[string]any{
						"run":       run,
						"artifacts": artifacts,
					})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run:      %s\n", run.ID)
				fmt.Fprintf(out, "Source:   %s\n", run.SourcePath)
				fmt.Fprintf(out, "Step:     %s\n", run.Step)
				fmt.Fprintf(out, "Progress: %s\n", formatProgress(run))
				if run.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:    %s\n", run.ErrorMessage)
				}
				if run.OutputPath != "" {
					fmt.Fprintf(out, "Output:   %s\n", run.OutputPath)
				}
				fmt.Fprintf(out, "Created:  %s\n", formatTimestamp(run.CreatedAt))
				fmt.Fprintf(out, "Updated:  %s\n", formatTimestamp(run.UpdatedAt))

				if len(artifacts) == 0 {
					return nil
				}
				rows := make([][]string, 0, len(artifacts))
				for _, artifact := range artifacts {
					detail := artifact.Path
					if detail == "" {
						detail = artifact.MetadataJSON
					}
					rows = append(rows, []string{
						fmt.Sprintf("%d", artifact.ID),
						artifact.Kind,
						truncatePath(detail, 64),
						formatTimestamp(artifact.CreatedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "KIND", "DETAIL", "CREATED"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the run and artifacts as JSON")
	return cmd
}
