package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/lukashuebner/tugboat/internal/artifact"
	"github.com/lukashuebner/tugboat/internal/report"
	"github.com/lukashuebner/tugboat/internal/util"
)

func newLsCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List the datasets of the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(s.datasets))
			for _, ds := range s.datasets {
				source := ds.SourceURL()
				if source == "" {
					source = "(simulated)"
				}
				rows = append(rows, []string{ds.Collection(), ds.Key(), ds.Basename(), source})
			}
			renderTable(o.stdout, []string{"COLLECTION", "KEY", "BASENAME", "SOURCE"}, rows)
			fmt.Fprintln(o.stdout, fmtCount(len(rows), "dataset"))
			return nil
		},
	}
}

func newStatusCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which artifacts exist for every dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd.Context())
			if err != nil {
				return err
			}

			headers := []string{"BASENAME"}
			for _, k := range artifact.Kinds {
				headers = append(headers, string(k))
			}
			rows := make([][]string, 0, len(s.datasets))
			for _, ds := range s.datasets {
				row := []string{ds.Basename()}
				for _, k := range artifact.Kinds {
					cell := "-"
					if f, ok := artifact.Stat(ds, k); ok {
						cell = util.FormatSize(f.Size)
					}
					row = append(row, cell)
				}
				rows = append(rows, row)
			}
			renderTable(o.stdout, headers, rows)
			return nil
		},
	}
}

func renderTable(w io.Writer, headers []string, rows [][]string) {
	styles := report.NewStyles(w)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.Dim).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Header
			}
			return styles.Cell
		})
	fmt.Fprintln(w, t.Render())
}

func fmtCount(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
