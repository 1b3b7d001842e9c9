package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ecoscore/backend/internal/display"
	"github.com/ecoscore/backend/internal/domain"
)

var flagFile string

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze receipt line items from a JSON file",
	Long: "Reads line items as a JSON array of {name, quantity, unit} objects, or an\n" +
		"object with an \"items\" array, and prints the emissions report.",
	Example: `  ecoscore analyze items.json
  ecoscore analyze --file - < items.json
  ecoscore analyze --file items.json --catalog catalog.csv --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&flagFile, "file", "f", "", "Path to line items JSON (\"-\" reads stdin)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := flagFile
	if len(args) == 1 {
		if path != "" && path != args[0] {
			return invalidArgsError("provide the line items file once, either as an argument or with --file")
		}
		path = args[0]
	}
	if path == "" {
		return invalidArgsError(
			"please provide a line items file",
			"ecoscore analyze items.json",
			"ecoscore analyze --file - < items.json",
		)
	}

	items, err := readLineItems(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	cfg, pipeline, err := loadPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Close()

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

// readLineItems loads line items from path, or from stdin when path is "-"
func readLineItems(stdin io.Reader, path string) ([]domain.RawLineItem, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, invalidArgsError(fmt.Sprintf("line items file not found: %s", path))
		}
		return nil, fmt.Errorf("reading line items: %w", err)
	}

	items, err := decodeLineItems(data)
	if err != nil {
		return nil, invalidArgsError(fmt.Sprintf("invalid line items in %s: %v", path, err))
	}
	return items, nil
}

// decodeLineItems accepts either a bare JSON array or an analyze request body
func decodeLineItems(data []byte) ([]domain.RawLineItem, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty input")
	}

	if data[0] == '[' {
		var items []domain.RawLineItem
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var body struct {
		Items []domain.RawLineItem `json:"items"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	if body.Items == nil {
		return nil, errors.New(`expected a JSON array or an object with an "items" array`)
	}
	return body.Items, nil
}
