package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"revoice/internal/config"
	"revoice/internal/pipeline"
	"revoice/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report tool, directory, and provider health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			results := preflight.RunAll(context.Background(), cfg)
			results = append(results, preflight.CheckTranscriptionFromConfig(cfg))
			results = append(results, preflight.CheckVoiceFromConfig(cfg))

			probe := preflight.ProbeLocalEngine(cfg.Voice.LocalEngine)
			results = append(results, preflight.Result{
				Name:   "Local engine version",
				Passed: probe.Available,
				Detail: probe.EngineDetail(),
			})

			if jsonOut {
				return writeJSON(cmd, results)
			}

			rows := make([][]string, 0, len(results))
			for _, result := range results {
				rows = append(rows, []string{result.Name, checkMark(result.Passed), result.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"CHECK", "STATUS", "DETAIL"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			if !preflight.Passed(results) {
				return fmt.Errorf("one or more checks failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit checks as JSON")
	return cmd
}

func newSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove stale run workdirs and fail abandoned runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(func(runCtx context.Context, cfg *config.Config, p *pipeline.Pipeline) error {
				removed, err := p.SweepTemp(runCtx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d stale workdir(s)\n", removed)
				return nil
			})
		},
	}
}
