package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lukashuebner/tugboat/internal/artifact"
)

func newCleanCommand(o *options) *cobra.Command {
	var (
		opsBench        bool
		conversionBench bool
		forest          bool
		trees           bool
		tsz             bool
		collected       bool
		yes             bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete generated artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd.Context())
			if err != nil {
				return err
			}

			var kinds []artifact.Kind
			if opsBench {
				kinds = append(kinds, artifact.KindOpsBench, artifact.KindTajimasDBench)
			}
			if conversionBench {
				kinds = append(kinds, artifact.KindConversionBench)
			}
			if forest {
				kinds = append(kinds, artifact.KindForest)
			}
			if trees {
				kinds = append(kinds, artifact.KindTrees)
			}
			if tsz {
				kinds = append(kinds, artifact.KindArchive)
			}

			var files []string
			for _, f := range artifact.Existing(s.datasets, kinds) {
				files = append(files, f.Path)
			}
			if collected && artifact.Exists(s.cfg.Outputs.Collected) {
				files = append(files, s.cfg.Outputs.Collected)
			}

			if len(files) == 0 {
				fmt.Fprintln(o.stdout, "Nothing to delete")
				return nil
			}

			fmt.Fprintln(o.stdout, "The following files will be deleted:")
			for _, f := range files {
				fmt.Fprintf(o.stdout, "    - %s\n", f)
			}
			if o.dryRun {
				return nil
			}
			if !yes && !confirm(o, "Are you sure?") {
				fmt.Fprintln(o.stdout, "Aborted")
				return nil
			}

			for _, f := range files {
				if err := artifact.Remove(f); err != nil {
					return err
				}
			}
			fmt.Fprintf(o.stdout, "Deleted %s\n", fmtCount(len(files), "file"))
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opsBench, "ops-bench", true, "delete benchmark results (.ops_bench.csv, .tajimasD_bench.csv)")
	f.BoolVar(&conversionBench, "conversion-bench", false, "delete conversion benchmark results")
	f.BoolVar(&forest, "forest", false, "delete .forest files")
	f.BoolVar(&trees, "trees", false, "delete .trees files")
	f.BoolVar(&tsz, "tsz", false, "delete downloaded .tsz archives")
	f.BoolVar(&collected, "collected", true, "delete the combined measurement table")
	f.BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func confirm(o *options, question string) bool {
	fmt.Fprintf(o.stdout, "%s [y/N] ", question)
	line, _ := bufio.NewReader(o.stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
