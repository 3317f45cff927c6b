package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Files      []string // Related files (optional)
	Suggestion string   // Action to take (optional)
}

// Display shows a formatted warning, in yellow on a terminal
func (w Warning) Display(out io.Writer) {
	var b strings.Builder

	b.WriteString("⚠️  Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		for _, line := range strings.Split(strings.TrimRight(w.Message, "\n"), "\n") {
			b.WriteString("    ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	if len(w.Files) > 0 {
		if len(w.Files) == 1 {
			b.WriteString("    Affected file:\n")
		} else {
			b.WriteString("    Affected files:\n")
		}
		for i, file := range w.Files {
			fmt.Fprintf(&b, "      %d. %s\n", i+1, file)
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	fmt.Fprint(out, paint(out, []color.Attribute{color.FgYellow}, b.String()))
}

// WarnNoFiles is shown when a plan directory holds nothing to copy.
func WarnNoFiles(dir string) Warning {
	return Warning{
		Title:      "No files found in plan directory",
		Message:    dir,
		Suggestion: "Check the plan name and the exclude patterns",
	}
}

// WarnUnreadablePlans is shown by list when some plans could not be
// enumerated. Each entry names the plan path and its error.
func WarnUnreadablePlans(problems []string) Warning {
	return Warning{
		Title:      "Some plans could not be read",
		Files:      problems,
		Suggestion: "A dump of these plans would fail; check for broken symlinks or permissions",
	}
}

// WarnPostCommand is shown when the post command fails. The dump itself
// is kept.
func WarnPostCommand(command string, err error, output string) Warning {
	msg := err.Error()
	if out := strings.TrimSpace(output); out != "" {
		msg += "\n" + out
	}
	return Warning{
		Title:   fmt.Sprintf("Post command %q failed", command),
		Message: msg,
	}
}

// WarnPublish is shown when uploading a dump fails. The local dump is kept.
func WarnPublish(err error) Warning {
	return Warning{
		Title:      "Publishing the dump failed",
		Message:    err.Error(),
		Suggestion: "Check publish.endpoint, publish.bucket and the S3 credentials",
	}
}
