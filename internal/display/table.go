package display

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/harrison/planflat/internal/flatten"
	"github.com/harrison/planflat/internal/history"
	"github.com/harrison/planflat/internal/plan"
)

// MappingTable prints one aligned "relative path -> flat name" row per
// mapping. Flat names that differ from the plain path encoding (collision
// suffixes) are highlighted on a terminal.
func MappingTable(w io.Writer, mappings []flatten.Mapping) {
	if len(mappings) == 0 {
		fmt.Fprintln(w, "(no files)")
		return
	}

	width := 0
	for _, m := range mappings {
		width = max(width, utf8.RuneCountInString(m.RelativePath))
	}

	for _, m := range mappings {
		attrs := []color.Attribute{color.FgCyan}
		if m.FlatName != flatten.Candidate(m.RelativePath) {
			attrs = []color.Attribute{color.FgYellow, color.Bold}
		}
		fmt.Fprintf(w, "  %s -> %s\n", pad(m.RelativePath, width), paint(w, attrs, m.FlatName))
	}
}

// PlanTable lists plans with their file counts and titles.
func PlanTable(w io.Writer, plans []plan.Info) {
	if len(plans) == 0 {
		fmt.Fprintln(w, "No plans found")
		return
	}

	width := len("PLAN")
	for _, p := range plans {
		width = max(width, utf8.RuneCountInString(p.Name))
	}

	fmt.Fprintf(w, "%s  %5s  %s\n", pad("PLAN", width), "FILES", "TITLE")
	for _, p := range plans {
		files := fmt.Sprintf("%5d", p.Files)
		if p.Err != nil {
			files = paint(w, []color.Attribute{color.FgRed}, fmt.Sprintf("%5s", "err"))
		}
		fmt.Fprintf(w, "%s  %s  %s\n", pad(p.Name, width), files, p.Title)
	}
}

// RunTable lists recorded runs, newest first as given.
func RunTable(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}

	planWidth := len("PLAN")
	for _, r := range runs {
		planWidth = max(planWidth, utf8.RuneCountInString(r.Plan))
	}

	fmt.Fprintf(w, "%-8s  %-19s  %s  %-8s  %5s  %s\n", "RUN", "STARTED", pad("PLAN", planWidth), "STATUS", "FILES", "DURATION")
	for _, r := range runs {
		status := pad(string(r.Status), 8)
		switch r.Status {
		case history.StatusSuccess:
			status = paint(w, []color.Attribute{color.FgGreen}, status)
		case history.StatusFailed:
			status = paint(w, []color.Attribute{color.FgRed}, status)
		case history.StatusEmpty, history.StatusDryRun:
			status = paint(w, []color.Attribute{color.FgYellow}, status)
		}
		fmt.Fprintf(w, "%-8s  %-19s  %s  %s  %5d  %s\n",
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			pad(r.Plan, planWidth),
			status,
			r.Files,
			r.Duration.Round(time.Millisecond))
		if r.Error != "" {
			fmt.Fprintf(w, "          %s\n", paint(w, []color.Attribute{color.FgRed}, r.Error))
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
