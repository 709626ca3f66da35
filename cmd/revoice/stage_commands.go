package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"revoice/internal/config"
	"revoice/internal/pipeline"
)

func newStageCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stage <" + strings.Join(stageNames(), "|") + "> <run-id>",
		Short: "Execute a single pipeline stage against an existing run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			step, ok := parseStage(args[0])
			if !ok {
				return fmt.Errorf("unknown stage %q (expected one of %s)", args[0], strings.Join(stageNames(), ", "))
			}
			return ctx.withPipeline(func(runCtx context.Context, cfg *config.Config, p *pipeline.Pipeline) error {
				run, err := p.RunStep(runCtx, args[1], step)
				if jsonOut && run != nil {
					if encodeErr := writeJSON(cmd, run); encodeErr != nil {
						return encodeErr
					}
				}
				if err != nil {
					return err
				}
				if !jsonOut {
					fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %s\n", run.ID, formatProgress(run))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the run record as JSON")
	return cmd
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "resume <run-id>",
		Short: "Continue an interrupted run from its current step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(func(runCtx context.Context, cfg *config.Config, p *pipeline.Pipeline) error {
				run, err := p.Resume(runCtx, args[0])
				if jsonOut && run != nil {
					if encodeErr := writeJSON(cmd, run); encodeErr != nil {
						return encodeErr
					}
				}
				if err != nil {
					return err
				}
				if !jsonOut {
					fmt.Fprintf(cmd.OutOrStdout(), "Run %s completed\nOutput: %s\n", run.ID, run.OutputPath)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the run record as JSON")
	return cmd
}
