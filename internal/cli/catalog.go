package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/mrec/internal/catalog"
	"github.com/mesh-intelligence/mrec/pkg/types"
)

// openCatalog opens the catalog in the resolved data directory. The caller
// must Close it.
func openCatalog() (*catalog.Catalog, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	return catalog.Open(filepath.Join(dataDir, catalog.DBFile), settings.cfg.IndexFields)
}

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index <dir|file>...",
		Short: "Add records to the catalog",
		Long: `Index record files into the catalog. Directories are walked for *.json
files; files that are not valid records are skipped. External data files
are not read.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCatalog()
			if err != nil {
				return err
			}
			defer c.Close()
			return runIndex(cmd.Context(), cmd, c, args)
		},
	}
}

type indexSummary struct {
	Scans []catalog.ScanResult `json:"scans,omitempty"`
	Files []catalog.RecordInfo `json:"files,omitempty"`
}

func runIndex(ctx context.Context, cmd *cobra.Command, c *catalog.Catalog, args []string) error {
	var sum indexSummary
	out := cmd.OutOrStdout()
	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%w: %s", types.ErrNotFound, arg)
			}
			return fmt.Errorf("%w: %w", types.ErrIO, err)
		}
		if fi.IsDir() {
			res, err := c.IndexDir(ctx, arg)
			if err != nil {
				return err
			}
			sum.Scans = append(sum.Scans, res)
			if !flags.jsonMode {
				fmt.Fprintf(out, "%s: %d indexed, %d skipped (scan %s)\n", res.Root, res.Indexed, res.Skipped, res.ID)
			}
			continue
		}
		info, err := c.IndexFile(ctx, arg)
		if err != nil {
			return err
		}
		sum.Files = append(sum.Files, info)
		if !flags.jsonMode {
			fmt.Fprintf(out, "%s: %d grids, %d channels\n", info.Path, info.Grids, info.Channels)
		}
	}
	if flags.jsonMode {
		return printJSON(out, sum)
	}
	return nil
}

func newFindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <channel-pattern>",
		Short: "Find indexed data channels by name",
		Long:  `Find data channels in the catalog. The pattern uses glob syntax (*, ?, [...]) and is case sensitive.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCatalog()
			if err != nil {
				return err
			}
			defer c.Close()

			found, err := c.FindChannels(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if flags.jsonMode {
				if found == nil {
					found = []catalog.ChannelInfo{}
				}
				return printJSON(out, found)
			}
			if len(found) == 0 {
				fmt.Fprintln(out, "No channels found")
				return nil
			}
			w := newTable(out)
			fprintRow(w, "RECORD", "CHANNEL", "UNIT", "GRID", "STORAGE", "SAMPLES")
			for _, ch := range found {
				samples := "-"
				if ch.Samples >= 0 {
					samples = fmt.Sprint(ch.Samples)
				}
				fprintRow(w, ch.Path, ch.Name, unitText(ch.Unit), ch.GridName, string(ch.Storage), samples)
			}
			return w.Flush()
		},
	}
}

func newRecordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "records",
		Short: "List the records in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCatalog()
			if err != nil {
				return err
			}
			defer c.Close()

			recs, err := c.Records(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if flags.jsonMode {
				if recs == nil {
					recs = []catalog.RecordInfo{}
				}
				return printJSON(out, recs)
			}
			if len(recs) == 0 {
				fmt.Fprintln(out, "No records indexed")
				return nil
			}

			fields := c.FieldNames()
			w := newTable(out)
			cols := append([]string{"PATH", "GRIDS", "CHANNELS"}, upperAll(fields)...)
			fprintRow(w, cols...)
			for _, rec := range recs {
				row := []string{rec.Path, fmt.Sprint(rec.Grids), fmt.Sprint(rec.Channels)}
				for _, f := range fields {
					v := rec.Fields[f]
					if v == "" {
						v = "-"
					}
					row = append(row, v)
				}
				fprintRow(w, row...)
			}
			return w.Flush()
		},
	}
}

func upperAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.ToUpper(n)
	}
	return out
}
