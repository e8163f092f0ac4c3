package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"PriceTracker/internal/model"
	"PriceTracker/internal/notifier"
)

var (
	pricesJSON bool
	rangeFrom  string
	rangeTo    string
)

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Print today's per-gram prices",
	Args:  cobra.NoArgs,
	RunE:  runPrices,
}

var rangeCmd = &cobra.Command{
	Use:   "range",
	Short: "Print per-gram prices for a date range",
	Long: `Prints the prices recorded between --from and --to (inclusive, YYYY-MM-DD),
grouped by product. At most 10 entries are shown.`,
	Args: cobra.NoArgs,
	RunE: runRange,
}

func init() {
	pricesCmd.Flags().BoolVar(&pricesJSON, "json", false, "print the price board as JSON")
	rangeCmd.Flags().StringVar(&rangeFrom, "from", "", "first day of the range (YYYY-MM-DD)")
	rangeCmd.Flags().StringVar(&rangeTo, "to", "", "last day of the range (YYYY-MM-DD)")
	_ = rangeCmd.MarkFlagRequired("from")
	_ = rangeCmd.MarkFlagRequired("to")
}

func runPrices(cmd *cobra.Command, args []string) error {
	rec := newRecorder()
	defer rec.Close()

	board, err := newCollector(rec).CurrentPrices(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetch current prices: %w", err)
	}

	out := cmd.OutOrStdout()
	if pricesJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(board)
	}
	_, err = fmt.Fprintln(out, notifier.RenderCurrentTable(board).Text)
	return err
}

func runRange(cmd *cobra.Command, args []string) error {
	iv, err := model.ParseInterval(rangeFrom, rangeTo)
	if err != nil {
		return err
	}

	rec := newRecorder()
	defer rec.Close()

	groups, err := newCollector(rec).PriceRange(cmd.Context(), iv)
	if err != nil {
		return fmt.Errorf("fetch price range: %w", err)
	}

	table := notifier.RenderRangeTable(groups)
	if table.Truncated {
		logger.Warn("range table truncated",
			zap.Error(model.ErrRenderSizeExceeded),
			zap.Int("rows", table.Rows),
			zap.Int("dropped", table.Dropped))
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Price Range (%s)\n", iv.String())
	_, err = fmt.Fprintln(out, table.Text)
	return err
}
