package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/mesh-intelligence/mrec/pkg/types"
)

// printJSON writes v as indented JSON followed by a newline.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// entryView is the CLI rendering of a grid or channel.
type entryView struct {
	Kind      string            `json:"kind"`
	Index     int               `json:"index"`
	Name      string            `json:"name"`
	Unit      string            `json:"unit"`
	Storage   types.StorageKind `json:"storage_type"`
	GridIndex *int              `json:"sampling_grid_index,omitempty"`
	InProcess *bool             `json:"in_process,omitempty"`
	Notes     string            `json:"notes,omitempty"`
	Samples   *int              `json:"samples,omitempty"`
	File      string            `json:"file,omitempty"`
	MD5       string            `json:"md5,omitempty"`
	Data      []float64         `json:"data,omitempty"`
}

func gridView(i int, g types.SamplingGrid) entryView {
	v := entryView{Kind: "grid", Index: i, Name: g.Name, Unit: g.Unit, Storage: g.Storage, Notes: g.Notes, Data: g.Data}
	v.fillStored(g.Stored, g.Data, g.Pending)
	return v
}

func channelView(i int, ch types.DataChannel) entryView {
	gi, in := ch.SamplingGridIndex, ch.InProcess
	v := entryView{Kind: "channel", Index: i, Name: ch.Name, Unit: ch.Unit, Storage: ch.Storage,
		GridIndex: &gi, InProcess: &in, Notes: ch.Notes, Data: ch.Data}
	v.fillStored(ch.Stored, ch.Data, ch.Pending)
	return v
}

func (v *entryView) fillStored(rep types.Representation, data []float64, pending bool) {
	if ref, ok := rep.(types.ExternalRef); ok {
		v.File = ref.RelativeFilePath
		v.MD5 = ref.MD5
	}
	if !pending {
		n := len(data)
		v.Samples = &n
	}
}

func (v entryView) samplesText() string {
	if v.Samples == nil {
		return "-"
	}
	return strconv.Itoa(*v.Samples)
}

func unitText(unit string) string {
	if unit == "" {
		return "-"
	}
	return unit
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func fprintRow(w io.Writer, cols ...string) {
	for i, c := range cols {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, c)
	}
	fmt.Fprintln(w)
}
