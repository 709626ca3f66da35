package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"revoice/internal/config"
	"revoice/internal/pipeline"
	"revoice/internal/preflight"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "process <video>",
		Short: "Replace every speaker's voice in a video end to end",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(func(runCtx context.Context, cfg *config.Config, p *pipeline.Pipeline) error {
				if !skipPreflight {
					results := preflight.RunAll(runCtx, cfg)
					if !preflight.Passed(results) {
						for _, result := range results {
							if !result.Passed {
								fmt.Fprintf(cmd.ErrOrStderr(), "preflight: %s: %s\n", result.Name, result.Detail)
							}
						}
						return fmt.Errorf("preflight failed; fix the issues above or pass --skip-preflight")
					}
				}

				run, err := p.Process(runCtx, args[0])
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

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the final run record as JSON")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip environment checks before processing")
	return cmd
}
