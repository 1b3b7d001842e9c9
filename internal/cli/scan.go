package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ecoscore/backend/internal/bootstrap"
	"github.com/ecoscore/backend/internal/display"
	"github.com/ecoscore/backend/internal/domain"
)

var scanCmd = &cobra.Command{
	Use:   "scan IMAGE",
	Short: "Extract line items from a receipt image and analyze them",
	Long: "Sends the receipt image to the configured extraction service\n" +
		"(extractor.base_url) and prints the emissions report for the items it returns.",
	Example: `  ecoscore scan receipt.jpg
  ECOSCORE_EXTRACTOR_BASE_URL=http://localhost:9000 ecoscore scan receipt.png --json`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	image, err := os.ReadFile(args[0])
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return invalidArgsError(fmt.Sprintf("receipt image not found: %s", args[0]))
		}
		return fmt.Errorf("reading receipt image: %w", err)
	}

	cfg, pipeline, err := loadPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Close()

	extractor := bootstrap.NewExtractor(cfg.Extractor, flagVerbose)
	if extractor == nil {
		return invalidArgsError(
			domain.ErrExtractorUnavailable.Error(),
			"Set extractor.base_url in config.yaml",
			"ECOSCORE_EXTRACTOR_BASE_URL=http://localhost:9000 ecoscore scan receipt.jpg",
		)
	}

	items, err := extractor.ExtractLineItems(cmd.Context(), image, "")
	if err != nil {
		return upstreamError("extracting line items", err)
	}
	if cfg.Server.MaxItems > 0 && len(items) > cfg.Server.MaxItems {
		return invalidArgsError(fmt.Sprintf("too many line items: %d (max %d)", len(items), cfg.Server.MaxItems))
	}

	report, err := pipeline.Service.AnalyzeReceipt(cmd.Context(), items)
	if err != nil {
		return err
	}

	if flagJSON {
		return display.PrintReportJSON(cmd.OutOrStdout(), report)
	}
	display.PrintReport(cmd.OutOrStdout(), report)
	return nil
}
