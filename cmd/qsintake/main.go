package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dellqs/qsintake/constants"
	"github.com/dellqs/qsintake/internal/boq"
	"github.com/dellqs/qsintake/internal/classify"
	"github.com/dellqs/qsintake/internal/common"
	"github.com/dellqs/qsintake/internal/geocode"
	"github.com/dellqs/qsintake/internal/intake"
	"github.com/dellqs/qsintake/internal/metadata"
	"github.com/dellqs/qsintake/internal/pdfparse"
	"github.com/dellqs/qsintake/internal/repository"
)

func main() {
	root := &cobra.Command{
		Use:           "qsintake",
		Short:         "Architectural drawing intake and BOQ export for quantity surveying",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var verbose bool
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	}

	root.AddCommand(newIntakeCmd(), newExportCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newIntakeCmd() *cobra.Command {
	var (
		projectID   string
		outputDir   string
		projectType string
		recursive   bool
	)

	cmd := &cobra.Command{
		Use:   "intake <input-path>",
		Short: "Analyze a PDF drawing package: classify, extract, assess completeness",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.Default()
			cfg := common.LoadConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}

			parser := pdfparse.NewParser(pdfparse.Config{
				Pdftoppm:  cfg.Parser.Pdftoppm,
				RasterDPI: cfg.Parser.RasterDPI,
				Rasterize: cfg.Parser.Rasterize,
			}, nil, logger)

			visionKey := cfg.Vision.AnthropicAPIKey
			if cfg.Vision.Provider == "openai" {
				visionKey = cfg.Vision.OpenAIAPIKey
			}
			classifier, err := classify.New(classify.Config{
				Provider:  cfg.Vision.Provider,
				Model:     cfg.Vision.Model,
				APIKey:    visionKey,
				ClaudeBin: cfg.Vision.ClaudeBin,
				Timeout:   cfg.Vision.Timeout,
			}, nil, logger)
			if err != nil {
				return err
			}

			var store *repository.Store
			var cache geocode.Cache
			if cfg.Store.DSN != "" {
				store, err = repository.Open(cfg.Store.DSN, logger)
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				cache = store.GeocodeCache()
			}

			geocoder := geocode.New(geocode.Config{
				GoogleAPIKey: cfg.Geocode.GoogleAPIKey,
				Timeout:      cfg.Geocode.Timeout,
			}, cache, logger)

			analyst := intake.NewAnalyst(intake.Config{
				OutputDir:   outputDir,
				ProjectType: constants.ParseProjectType(projectType),
				Recursive:   recursive,
			}, parser, classifier, metadata.NewExtractor(logger), geocoder, store, logger)

			result, err := analyst.Analyze(context.Background(), args[0], projectID)
			if err != nil {
				return err
			}

			printSummary(cmd, result)
			if result.Completeness.ProceedRecommendation == constants.Hold {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project-id", "", "project identifier (generated if omitted)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "./intake_output", "output directory")
	cmd.Flags().StringVarP(&projectType, "type", "t", "default",
		fmt.Sprintf("project type (%s)", joinProjectTypes()))
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "recurse into subdirectories")
	return cmd
}

func printSummary(cmd *cobra.Command, result *intake.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nProject: %s\n", result.ProjectID)
	fmt.Fprintf(out, "Documents: %d (%d pages, %d drawings)\n",
		len(result.Manifest.Documents), result.Manifest.TotalPages, result.Manifest.TotalDrawings)
	fmt.Fprintf(out, "Completeness: %.0f%% (%s)\n",
		result.Completeness.OverallCompletenessPct, result.Completeness.Status)
	fmt.Fprintf(out, "Recommendation: %s\n", result.Completeness.ProceedRecommendation)
	for _, reason := range result.Completeness.HoldReasons {
		fmt.Fprintf(out, "  - %s\n", reason)
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintf(out, "Warnings: %d\n", len(result.Warnings))
	}
	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "Errors: %d\n", len(result.Errors))
	}
	fmt.Fprintf(out, "Elapsed: %dms\n", result.ProcessingTimeMS)
}

func joinProjectTypes() string {
	names := make([]string, len(constants.ProjectTypes))
	for i, pt := range constants.ProjectTypes {
		names[i] = string(pt)
	}
	return strings.Join(names, ", ")
}

// exportInput is the JSON shape accepted by the export subcommand.
type exportInput struct {
	ProjectName   string     `json:"project_name"`
	ProjectNumber string     `json:"project_number"`
	Items         []boq.Item `json:"items"`
}

func newExportCmd() *cobra.Command {
	var (
		format       string
		outPath      string
		calculations bool
	)

	cmd := &cobra.Command{
		Use:   "export <items.json>",
		Short: "Export Bill of Quantities items to xlsx, csv, xml or json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read items file: %w", err)
			}
			var input exportInput
			if err := json.Unmarshal(raw, &input); err != nil {
				return fmt.Errorf("parse items file: %w", err)
			}

			if outPath == "" {
				ext := strings.ToLower(format)
				if ext == "excel" {
					ext = "xlsx"
				}
				outPath = "boq." + ext
			}

			exporter := boq.NewExporter(input.ProjectName, input.ProjectNumber, slog.Default())
			exporter.AddItems(input.Items...)

			written, err := exporter.Export(outPath, format, calculations)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d items to %s\n", len(input.Items), written)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "xlsx", "output format: xlsx, csv, xml or json")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file path (default boq.<format>)")
	cmd.Flags().BoolVar(&calculations, "calculations", true, "include calculation notes, references and rules")
	return cmd
}
