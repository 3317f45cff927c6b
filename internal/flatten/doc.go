// Package flatten copies a directory tree into a single flat directory.
//
// Every regular file under the source root is copied into the destination
// under a name that encodes where it came from: the directory segments of
// its relative path are joined with dashes in front of the filename.
//
//	plan/
//	  README.md            -> README.md
//	  tasks/01-setup.md    -> tasks-01-setup.md
//	  x/y/z/doc.txt        -> x-y-z-doc.txt
//
// Two different paths can flatten to the same string ("a-b/c.txt" and
// "a/b/c.txt" both give "a-b-c.txt"). The later one in traversal order gets
// a numeric suffix before its extension ("a-b-c-1.txt"). Traversal order is
// bytewise by slash-separated relative path, so numbering is stable across
// runs over an unchanged tree.
//
// A run is Scanning, then Resolving, then Copying, then Done. Any
// unrecoverable error moves it to Failed and is returned as a *Error whose
// Kind says what went wrong:
//
//	summary, err := flatten.Flatten(ctx, "docs/plans/7-auth", "scratch/dumps/7-auth")
//	if errors.Is(err, flatten.ErrSourceNotFound) {
//	    ...
//	}
//
// The destination must exist and is expected to be empty; preparing it is
// the caller's job.
package flatten
