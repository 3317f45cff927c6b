package plan

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// Title returns the first level-1 heading of the plan's primary markdown
// file, or the directory name when there is none.
func Title(dir string) string {
	fallback := filepath.Base(dir)

	primary := PrimaryFile(dir)
	if primary == "" {
		return fallback
	}
	source, err := os.ReadFile(primary)
	if err != nil {
		return fallback
	}

	if title := firstHeading(source); title != "" {
		return title
	}
	return fallback
}

// PrimaryFile picks the markdown file that describes a plan: README.md,
// then plan.md, then the first *.md by name. Empty when there is none.
func PrimaryFile(dir string) string {
	for _, name := range []string{"README.md", "plan.md"} {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".md") {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return filepath.Join(dir, names[0])
}

func firstHeading(source []byte) string {
	doc := markdown.Parser().Parse(text.NewReader(source))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := n.(*ast.Heading); ok && heading.Level == 1 {
			var buf bytes.Buffer
			extractText(heading, source, &buf)
			title = strings.TrimSpace(buf.String())
			if title != "" {
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return title
}

// extractText appends the plain text under n, descending into inline
// markup such as emphasis and code spans.
func extractText(n ast.Node, source []byte, buf *bytes.Buffer) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(source))
			if node.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(node.Value)
		default:
			extractText(c, source, buf)
		}
	}
}
