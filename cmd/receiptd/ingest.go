package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/common"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/model"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Ingest receipt documents into the local store",
		Long: `Acquire text from receipt documents (PDF, PNG, JPEG, HEIC), extract
purchase fields, and save the results locally. Each saved receipt is
then uploaded to the remote service; upload failures are logged and
the local record is kept.

Examples:
  # Ingest a single PDF
  receiptd ingest ~/Downloads/costco_receipt.pdf

  # Ingest every scan in a directory
  receiptd ingest ~/scans/*.heic`,
		Args: cobra.MinimumNArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().Bool("no-progress", false, "Disable the acquisition progress bar")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	ctx := cmd.Context()

	pipe, err := initPipeline(ctx)
	if err != nil {
		return err
	}
	defer pipe.cleanup()

	var files []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				files = append(files, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
		} else {
			files = append(files, matches...)
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to ingest")
	}

	slog.Info("Ingesting receipt documents", "file_count", len(files))

	failed := 0
	for _, path := range files {
		if err := ingestFile(cmd, pipe, path, noProgress); err != nil {
			common.LogError(err, "Failed to ingest document", common.Fields{
				"file": filepath.Base(path),
			})
			failed++
		}
	}

	if failed == len(files) {
		return fmt.Errorf("all %d documents failed to ingest", failed)
	}
	if failed > 0 {
		slog.Warn("Some documents failed to ingest", "failed", failed, "total", len(files))
	}
	return nil
}

func ingestFile(cmd *cobra.Command, pipe *pipeline, path string, noProgress bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc := model.RawDocument{
		Data:        data,
		ContentType: contentTypeForFile(path),
	}

	if !noProgress {
		bar := progressbar.NewOptions(100,
			progressbar.OptionSetWriter(cmd.OutOrStdout()),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription(filepath.Base(path)),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(cmd.OutOrStdout())
			}),
		)
		pipe.acquirer.OnProgress = func(v float64) {
			_ = bar.Set(int(v * 100))
		}
		defer func() { pipe.acquirer.OnProgress = nil }()
	}

	record, err := pipe.orchestrator.Ingest(cmd.Context(), doc)
	if err != nil {
		return err
	}

	slog.Info("Receipt saved",
		"id", record.ID,
		"vendor", record.VendorName,
		"receipt_number", record.ReceiptNumber,
		"total", record.Total.StringFixed(2),
		"status", record.Status)
	return nil
}

// contentTypeForFile maps a file extension to the document content type the
// acquirer expects. Unknown extensions are treated as PDF only when the
// extension says so; everything else goes down the image path.
func contentTypeForFile(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".heic", ".heif":
		return "image/heic"
	default:
		return "application/octet-stream"
	}
}
