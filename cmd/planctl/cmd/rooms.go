package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"floorplan/internal/planner/models"

	"github.com/spf13/cobra"
)

var roomsJSON bool

var roomsCmd = &cobra.Command{
	Use:   "rooms <plan.svg>",
	Short: "Detect and list rooms of an SVG floor plan",
	Long: `Import an SVG floor plan and print every detected room with its name,
area in square meters and label position.

Examples:
  planctl rooms plan.svg
  planctl rooms --json plan.svg`,
	Args: cobra.ExactArgs(1),
	RunE: runRooms,
}

func init() {
	rootCmd.AddCommand(roomsCmd)

	roomsCmd.Flags().BoolVar(&roomsJSON, "json", false, "print rooms as JSON")
}

func runRooms(cmd *cobra.Command, args []string) error {
	doc, report, err := loadPlan(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if verbose {
		fmt.Fprintf(out, "Imported %d walls (%d arcs), %d openings, %d labels; rejected %d\n\n",
			report.Walls, report.Arcs, report.Openings, report.Labeled, len(report.Rejected))
	}

	rooms := doc.Rooms()
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Area > rooms[j].Area })

	if roomsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rooms)
	}
	return printRooms(out, rooms)
}

func printRooms(out io.Writer, rooms []models.Room) error {
	if len(rooms) == 0 {
		fmt.Fprintln(out, "No rooms found.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tAREA m²\tCENTER\tFLOOR")
	var total float64
	for _, r := range rooms {
		fmt.Fprintf(tw, "%s\t%.2f\t%.1f, %.1f\t%s\n", r.Name, r.Area, r.Center.X, r.Center.Y, r.FloorID)
		total += r.Area
	}
	fmt.Fprintf(tw, "TOTAL\t%.2f\t\t\n", total)
	return tw.Flush()
}
