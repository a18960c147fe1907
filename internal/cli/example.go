package cli

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/mrec/pkg/record"
	"github.com/mesh-intelligence/mrec/pkg/types"
)

func newExampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "example <path>",
		Short: "Write an example record",
		Long: `Write a small example record: two sampling grids, two externally stored
channels over the first grid and one ex-situ inline channel over the
second. External files go to <dir>/<external_dir>/<stem>/.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := buildExample(time.Now())
			if err != nil {
				return err
			}
			if err := r.SetExternalDir(settings.cfg.ExternalDir); err != nil {
				return err
			}
			if err := r.Write(args[0]); err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"path":     args[0],
					"data_dir": r.DataDir(),
					"channels": r.DataChannelNames(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (external data in %s)\n", args[0], r.DataDir())
			return nil
		},
	}
}

// exampleHeader is a minimal valid header. Real processes carry more.
func exampleHeader(now time.Time) map[string]any {
	return map[string]any{
		"projectName":  "test project",
		"location":     "nowhere",
		"creationDate": now.Format(time.DateOnly),
		"machine":      map[string]any{"name": "mockup machine"},
		"process": map[string]any{
			"processType": "test process",
			"tool":        map[string]any{"id": "ID1"},
			"workpiece":   map[string]any{"name": "test piece"},
			"parameters":  []any{},
		},
	}
}

func buildExample(now time.Time) (*record.Record, error) {
	r := record.New()
	r.Header = exampleHeader(now)
	if err := r.ValidateHeader(); err != nil {
		return nil, err
	}
	if err := r.AddParameter("param 1", 1, "m", ""); err != nil {
		return nil, err
	}
	if err := r.AddParameter("param 2", []float64{1.0, 2.3}, "s", "Ts"); err != nil {
		return nil, err
	}
	if err := r.ValidateHeader(); err != nil {
		return nil, err
	}

	grid1 := make([]float64, 100)
	sin := make([]float64, len(grid1))
	cos := make([]float64, len(grid1))
	for n := range grid1 {
		grid1[n] = math.Pi * 0.23 * float64(n)
		sin[n] = math.Sin(grid1[n])
		cos[n] = math.Cos(grid1[n])
	}

	g1, err := r.AddSamplingGrid("grid 1", "s", grid1)
	if err != nil {
		return nil, err
	}
	g2, err := r.AddSamplingGrid("grid 2", "mm", []float64{0, 0.1})
	if err != nil {
		return nil, err
	}
	if err := r.AddDataChannel("sin", "N", g1, sin, record.WithStorage(types.StorageExternal)); err != nil {
		return nil, err
	}
	if err := r.AddDataChannel("cos", "N", g1, cos,
		record.WithStorage(types.StorageExternal), record.WithNotes("Something interesting")); err != nil {
		return nil, err
	}
	if err := r.AddDataChannel("Usability", "", g2, []float64{10, 12.2}, record.WithInProcess(false)); err != nil {
		return nil, err
	}
	return r, nil
}
