package cmd

import (
	"fmt"
	"os"

	"floorplan/internal/planner/mapper"

	"github.com/spf13/cobra"
)

var renderOutput string

var renderCmd = &cobra.Command{
	Use:   "render <plan.svg>",
	Short: "Render the detected floor plan to SVG",
	Long: `Import an SVG floor plan, detect rooms and write a debug rendering with
walls, openings and room labels.

Examples:
  planctl render plan.svg -o out.svg
  planctl render plan.svg > out.svg`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "output file (stdout if empty)")
}

func runRender(cmd *cobra.Command, args []string) error {
	doc, _, err := loadPlan(args[0])
	if err != nil {
		return err
	}

	svg, err := mapper.NewRenderer().Render(doc)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if renderOutput == "" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), svg)
		return err
	}
	if err := os.WriteFile(renderOutput, []byte(svg), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d rooms)\n", renderOutput, len(doc.Rooms()))
	}
	return nil
}
