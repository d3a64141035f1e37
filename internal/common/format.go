package common

import (
	"fmt"
	"io"
	"strings"

	"ecogarden-sync-go/internal/models"
	"ecogarden-sync-go/internal/progression"
)

const (
	// Default separator widths
	DefaultWidth = 80
	WideWidth    = 100
)

// Report writes boxed, line-oriented command output
type Report struct {
	w     io.Writer
	width int
}

func NewReport(w io.Writer, width int) *Report {
	return &Report{w: w, width: width}
}

// Header prints a title between separators
func (r *Report) Header(title string) {
	fmt.Fprintln(r.w, "\n"+strings.Repeat("=", r.width))
	fmt.Fprintln(r.w, title)
	fmt.Fprintln(r.w, strings.Repeat("=", r.width))
}

// Footer prints a closing message between separators
func (r *Report) Footer(message string) {
	fmt.Fprintln(r.w, "\n"+strings.Repeat("=", r.width))
	fmt.Fprintln(r.w, message)
	fmt.Fprintln(r.w, strings.Repeat("=", r.width)+"\n")
}

// Section opens a box-drawn group
func (r *Report) Section(title string) {
	fmt.Fprintf(r.w, "\n┌─ %s\n", title)
	fmt.Fprintln(r.w, "├"+strings.Repeat("─", r.width-2))
}

// Item prints one line of a section
func (r *Report) Item(isLast bool, format string, args ...any) {
	fmt.Fprintf(r.w, "%s %s\n", BoxPrefix(isLast), fmt.Sprintf(format, args...))
}

// BoxPrefix returns the appropriate box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// ProgressBar renders fraction (0..1) as a fixed-width bar
func ProgressBar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction*float64(width) + 0.5)
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// PrintSnapshot writes the credit aggregate
func (r *Report) PrintSnapshot(snap models.CreditsSnapshot, lastErr string) {
	r.Section(fmt.Sprintf("User %d", snap.UserId))
	r.Item(false, "Credits:        %d", snap.TotalCredits)
	r.Item(false, "CO₂ reduced:    %s kg", snap.TotalCarbonReducedKg.StringFixed(2))
	r.Item(false, "Recent earned:  %d", snap.RecentEarned)
	r.Item(false, "State:          %s (revision %d)", snap.State, snap.Revision)
	if lastErr != "" {
		r.Item(false, "Last error:     %s", lastErr)
	}
	r.Item(true, "Updated:        %s", snap.LastUpdated.Local().Format("2006-01-02 15:04:05"))
}

// PrintGarden writes the server garden status
func (r *Report) PrintGarden(g models.GardenStatus) {
	r.Section(fmt.Sprintf("Garden level %d: %s", g.LevelNumber, g.LevelName))
	if g.RequiredWaters <= 0 {
		r.Item(true, "Garden complete after %d waterings", g.TotalWaters)
		return
	}
	r.Item(false, "Waterings:      %d / %d %s", g.WatersCount, g.RequiredWaters,
		ProgressBar(progression.WateringProgress(g), 20))
	r.Item(true, "Total waters:   %d", g.TotalWaters)
}

// PrintHistory writes ledger entries, most recent first
func (r *Report) PrintHistory(entries []models.CreditLedgerEntry) {
	r.Section(fmt.Sprintf("Ledger (%d entries)", len(entries)))
	if len(entries) == 0 {
		r.Item(true, "no entries")
		return
	}
	for i, e := range entries {
		r.Item(i == len(entries)-1, "%s  %+6d  %-6s %s",
			e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Points, e.Type, e.Reason)
	}
}
