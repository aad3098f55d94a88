package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sawpanic/cotlens/internal/assets"
	"github.com/sawpanic/cotlens/internal/config"
	"github.com/sawpanic/cotlens/internal/domain/combine"
	"github.com/sawpanic/cotlens/internal/domain/cot"
	"github.com/sawpanic/cotlens/internal/domain/seasonality"
	"github.com/sawpanic/cotlens/internal/feed"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		assetID string
		file    string
		year    int
		weeks   int
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one asset without touching the database",
		Long:  "Parses a disaggregated COT report (local file or live download), scores the asset, and prints the combined bias as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(assetID, file, year, weeks)
		},
	}

	cmd.Flags().StringVar(&assetID, "asset", "", "Asset ID to analyze (e.g. CL)")
	cmd.Flags().StringVar(&file, "file", "", "Path to a local report CSV (skips the download)")
	cmd.Flags().IntVar(&year, "year", time.Now().UTC().Year(), "Report year to download")
	cmd.Flags().IntVar(&weeks, "weeks", 26, "Number of trailing weeks to analyze")
	_ = cmd.MarkFlagRequired("asset")
	return cmd
}

func runAnalyze(assetID, file string, year, weeks int) error {
	asset, ok := assets.ByID(assetID)
	if !ok {
		return fmt.Errorf("unknown asset %q; run 'cotlens serve' and GET /v1/assets for the registry", assetID)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	var raw string
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		raw = string(data)
	} else {
		client := feed.NewClient(cfg.Feed.BaseURL, cfg.Feed.Timeout.Std())
		raw, err = client.FetchYear(context.Background(), year)
		if err != nil {
			return err
		}
	}

	records, err := feed.ParseMarket(raw, asset.CotCode)
	if err != nil {
		return err
	}
	if len(records) > weeks {
		records = records[len(records)-weeks:]
	}

	analysis, err := cot.Analyze(records)
	if err != nil {
		return err
	}

	model, err := loadSeasonalityModel(cfg.SeasonalityPath)
	if err != nil {
		return err
	}
	seasonal := seasonality.Result{AssetID: assetID}
	if asset.Seasonality {
		seasonal = model.Compute(assetID, time.Now().UTC())
	}

	combined, err := combine.ComputeFinalBias(
		analysis.Score, seasonal.NormalizedScore,
		analysis.Bias, seasonal.Bias(), cfg.Scoring,
	)
	if err != nil {
		return err
	}

	out := map[string]interface{}{
		"asset_id":    asset.ID,
		"asset_name":  asset.Name,
		"report_date": records[len(records)-1].ReportDate,
		"cot":         analysis,
		"seasonality": seasonal,
		"combined":    combined,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
