// Package display renders user-facing terminal output: warnings, the
// mapping table of a dump, plan and run listings, and the YAML manifest.
//
// Every renderer takes an io.Writer. Color is used only when that writer is
// a terminal (checked with go-isatty) and NO_COLOR is unset, so output
// captured in buffers, pipes and files is always plain.
//
//	display.Warning{
//	    Title:      "No files found in plan directory",
//	    Message:    "/repo/docs/plans/7-auth",
//	    Suggestion: "Check the plan name or the exclude patterns",
//	}.Display(os.Stderr)
//
//	display.MappingTable(os.Stdout, summary.Files)
package display
