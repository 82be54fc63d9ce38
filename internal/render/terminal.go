package render

import (
	"fmt"
	"io"
	"text/tabwriter"

	"dashwatch/internal/model"
)

// Terminal prints the region table to w after every update.
type Terminal struct {
	w         io.Writer
	regions   *Regions
	dashboard *Dashboard
}

// NewTerminal returns a terminal sink over every region.
func NewTerminal(w io.Writer) *Terminal {
	regions := NewRegions()
	return &Terminal{
		w:         w,
		regions:   regions,
		dashboard: NewDashboard(regions),
	}
}

// Update renders snap and prints the table.
func (t *Terminal) Update(snap *model.StatusSnapshot) error {
	t.dashboard.Update(snap)
	return t.Print()
}

// Regions exposes the underlying sink.
func (t *Terminal) Regions() *Regions {
	return t.regions
}

// Print writes the current region table.
func (t *Terminal) Print() error {
	return WriteTable(t.w, t.regions.Snapshot())
}

// WriteTable writes texts in display order, skipping regions with no text.
func WriteTable(w io.Writer, texts map[string]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, id := range AllRegions {
		text, ok := texts[id]
		if !ok || text == "" {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", id, text)
	}
	fmt.Fprintln(tw)
	return tw.Flush()
}
