// Package fileutil provides the directory scanner shared by planflat's
// flattening core and its plan listing.
//
// # Purpose
//
// ScanDirectory walks a tree and returns every regular file with its
// slash-separated path relative to the scan root, sorted bytewise by that
// path. The order is stable across runs over an unchanged tree, which the
// flattener relies on for collision numbering.
//
// # Key Features
//
//   - Recursive scanning with an optional depth limit
//   - Case-insensitive extension filtering
//   - Glob exclusion on base names (files and directories)
//   - Optional skipping of hidden entries
//   - Error tolerance: per-entry failures are collected in ScanResult.Errors
//     and the walk continues
//
// # Usage Examples
//
// All files, at any depth:
//
//	result, err := fileutil.ScanDirectory("docs/plans/7-auth", fileutil.ScanOptions{
//	    Recursive: true,
//	})
//	if err != nil {
//	    return err
//	}
//	for _, f := range result.Files {
//	    fmt.Println(f.RelPath)
//	}
//
// Top-level markdown only:
//
//	result, err := fileutil.ScanDirectory(dir, fileutil.ScanOptions{
//	    Extensions: []string{".md"},
//	})
//
// Excluding editor droppings:
//
//	result, err := fileutil.ScanDirectory(dir, fileutil.ScanOptions{
//	    Recursive: true,
//	    Exclude:   []string{".DS_Store", "*.swp"},
//	})
//	for _, scanErr := range result.Errors {
//	    log.Printf("skipped %s: %v", scanErr.Path, scanErr.Err)
//	}
//
// # Symlinks
//
// Symlinked directories are never descended. A symlink to a regular file is
// returned like a regular file (with the target's metadata). A dangling link
// is reported as a ScanError.
package fileutil
