package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/mrec/internal/catalog"
	"github.com/mesh-intelligence/mrec/pkg/record"
	"github.com/mesh-intelligence/mrec/pkg/types"
)

func newChannelsCmd() *cobra.Command {
	var withGrids bool
	cmd := &cobra.Command{
		Use:   "channels <file>",
		Short: "List the data channels of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Listing never needs external payloads.
			r, err := record.FromFile(args[0], record.WithLazyLoading(true))
			if err != nil {
				return err
			}
			var views []entryView
			if withGrids {
				for i, g := range r.SamplingGrids() {
					v := gridView(i, g)
					v.Data = nil
					views = append(views, v)
				}
			}
			for i, ch := range r.DataChannels() {
				v := channelView(i, ch)
				v.Data = nil
				views = append(views, v)
			}

			out := cmd.OutOrStdout()
			if flags.jsonMode {
				if views == nil {
					views = []entryView{}
				}
				return printJSON(out, views)
			}
			w := newTable(out)
			fprintRow(w, "KIND", "#", "NAME", "UNIT", "GRID", "STORAGE", "IN_PROCESS", "SAMPLES")
			for _, v := range views {
				grid, inProcess := "-", "-"
				if v.GridIndex != nil {
					grid = fmt.Sprint(*v.GridIndex)
					inProcess = fmt.Sprint(*v.InProcess)
				}
				fprintRow(w, v.Kind, fmt.Sprint(v.Index), v.Name, unitText(v.Unit), grid, string(v.Storage), inProcess, v.samplesText())
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&withGrids, "grids", false, "also list the sampling grids")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <file> <channel>",
		Short: "Print a data channel with its sampling grid",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := record.FromFile(args[0], record.WithLazyLoading(settings.cfg.LazyLoading))
			if err != nil {
				return err
			}
			ch, grid, err := r.GetDataChannel(args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if flags.jsonMode {
				return printJSON(out, map[string]entryView{
					"channel": channelView(indexOf(r, ch.Name), ch),
					"grid":    gridView(ch.SamplingGridIndex, grid),
				})
			}
			return printSamples(out, ch, grid)
		},
	}
}

func indexOf(r *record.Record, name string) int {
	for i, n := range r.DataChannelNames() {
		if n == name {
			return i
		}
	}
	return -1
}

func printSamples(out io.Writer, ch types.DataChannel, grid types.SamplingGrid) error {
	w := newTable(out)
	fprintRow(w,
		fmt.Sprintf("%s [%s]", grid.Name, unitText(grid.Unit)),
		fmt.Sprintf("%s [%s]", ch.Name, unitText(ch.Unit)))
	n := max(len(grid.Data), len(ch.Data))
	for i := 0; i < n; i++ {
		var x, y string
		if i < len(grid.Data) {
			x = formatFloat(grid.Data[i])
		}
		if i < len(ch.Data) {
			y = formatFloat(ch.Data[i])
		}
		fprintRow(w, x, y)
	}
	return w.Flush()
}

func newHeaderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "header <file> [jsonpath]",
		Short: "Print the record header or the values selected by a JSONPath",
		Example: `  mrec header run.json
  mrec header run.json '$.process.parameters[*].name'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := record.FromFile(args[0], record.WithLazyLoading(true))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				return printJSON(out, r.Header)
			}

			matches, err := catalog.QueryHeader(r.Header, args[1])
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				return fmt.Errorf("%w: %s matches nothing in the header", types.ErrNotFound, args[1])
			}
			if flags.jsonMode {
				return printJSON(out, matches)
			}
			for _, m := range matches {
				if s, ok := m.(string); ok {
					fmt.Fprintln(out, s)
					continue
				}
				if err := printJSON(out, m); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
