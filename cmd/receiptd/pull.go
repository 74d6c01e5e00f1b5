package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func pullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Pull receipts from the remote service",
		Long: `Fetch the full receipt collection from the remote service and merge it
into the local store. Records the server has not acknowledged keep
their local edits; acknowledged records adopt the server's version.`,
		RunE: runPull,
	}
}

func runPull(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	pipe, err := initPipeline(ctx)
	if err != nil {
		return err
	}
	defer pipe.cleanup()

	slog.Info("Pulling receipts from remote service")
	if err := pipe.orchestrator.Pull(ctx); err != nil {
		return err
	}

	slog.Info("Pull completed")
	return nil
}
