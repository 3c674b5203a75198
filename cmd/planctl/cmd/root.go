package cmd

import (
	"fmt"
	"os"

	"floorplan/internal/planner/document"
	"floorplan/internal/planner/mapper"
	"floorplan/internal/planner/models"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	snapRadius float64
	floorID    string
)

var rootCmd = &cobra.Command{
	Use:   "planctl",
	Short: "Floor plan room detection and rendering",
	Long: `Offline tool for floor plans drawn as SVG: imports walls, doors, windows
and room labels, detects rooms and renders the result.

Examples:
  planctl rooms plan.svg                # List detected rooms
  planctl render plan.svg -o out.svg    # Render the detected plan`,
	Version:      "0.1.0",
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().Float64Var(&snapRadius, "snap", models.SnapRadius, "node snap radius")
	rootCmd.PersistentFlags().StringVar(&floorID, "floor", "", "floor id assigned to imported walls")
}

// loadPlan импортирует SVG-файл в новый документ.
func loadPlan(path string) (*document.Document, mapper.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, mapper.Report{}, fmt.Errorf("open plan: %w", err)
	}
	defer f.Close()

	doc := document.New(snapRadius)
	report, err := mapper.NewImporter(doc, floorID).Import(f)
	if err != nil {
		return nil, report, err
	}
	return doc, report, nil
}
