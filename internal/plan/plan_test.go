package plan

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/planflat/internal/flatten"
)

func mkdirs(t *testing.T, root string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0755))
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func realPath(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	return resolved
}

func TestLocate(t *testing.T) {
	plansDir := t.TempDir()
	mkdirs(t, plansDir, "7-auth", "8-debug-script-bake-in", "9-cache-extra")
	suffixes := []string{"-debug-script-bake-in", "-extra"}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"exact name", "7-auth", "7-auth"},
		{"first suffix", "8", "8-debug-script-bake-in"},
		{"later suffix", "9-cache", "9-cache-extra"},
		{"absolute path", filepath.Join(plansDir, "7-auth"), "7-auth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Locate(tt.input, plansDir, suffixes)
			require.NoError(t, err)
			assert.Equal(t, realPath(t, filepath.Join(plansDir, tt.want)), got)
			assert.True(t, filepath.IsAbs(got))
		})
	}
}

func TestLocateNotFound(t *testing.T) {
	plansDir := t.TempDir()
	writeFile(t, filepath.Join(plansDir, "notes"), "a file, not a plan")

	for _, input := range []string{"missing", "notes", "", filepath.Join(plansDir, "gone")} {
		_, err := Locate(input, plansDir, []string{"-x"})
		assert.ErrorIs(t, err, ErrPlanNotFound, "input %q", input)
	}
}

func TestLocateResolvesSymlinks(t *testing.T) {
	plansDir := t.TempDir()
	target := t.TempDir()
	require.NoError(t, os.Symlink(target, filepath.Join(plansDir, "linked")))

	got, err := Locate("linked", plansDir, nil)
	require.NoError(t, err)
	assert.Equal(t, realPath(t, target), got)
}

func TestPrepareOutput(t *testing.T) {
	dumpDir := filepath.Join(t.TempDir(), "scratch", "dumps")

	dir, cleared, err := PrepareOutput(dumpDir, "7-auth")
	require.NoError(t, err)
	assert.False(t, cleared)
	assert.True(t, filepath.IsAbs(dir))
	assert.DirExists(t, dir)

	writeFile(t, filepath.Join(dir, "stale.md"), "old dump")
	writeFile(t, filepath.Join(dir, "sub", "deep.md"), "old dump")

	again, cleared, err := PrepareOutput(dumpDir, "7-auth")
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.Equal(t, dir, again)

	entries, err := os.ReadDir(again)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPrepareOutputInvalidName(t *testing.T) {
	dumpDir := t.TempDir()
	writeFile(t, filepath.Join(dumpDir, "keep.md"), "must survive")

	for _, name := range []string{"", ".", "..", "a/b"} {
		_, _, err := PrepareOutput(dumpDir, name)
		require.Error(t, err, "name %q", name)
		assert.ErrorIs(t, err, flatten.ErrDestinationUnwritable)
	}
	assert.FileExists(t, filepath.Join(dumpDir, "keep.md"))
}

func TestPrepareOutputUnwritable(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "dumps")
	writeFile(t, blocker, "a file where the dump dir should be")

	_, _, err := PrepareOutput(blocker, "7-auth")
	require.Error(t, err)

	var fe *flatten.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, flatten.KindDestinationUnwritable, fe.Kind)
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{
			name:  "readme heading",
			files: map[string]string{"README.md": "intro\n\n# Auth *rework*\n\n## Tasks\n", "plan.md": "# Other\n"},
			want:  "Auth rework",
		},
		{
			name:  "plan.md when no readme",
			files: map[string]string{"plan.md": "## Sub\n\n# Cache `layer`\n"},
			want:  "Cache layer",
		},
		{
			name:  "first markdown file by name",
			files: map[string]string{"b.md": "# From B\n", "a.md": "# From A\n"},
			want:  "From A",
		},
		{
			name:  "setext heading",
			files: map[string]string{"README.md": "Setext Title\n============\n"},
			want:  "Setext Title",
		},
		{
			name:  "no level one heading",
			files: map[string]string{"README.md": "## Only level two\n"},
			want:  "fallback-plan",
		},
		{
			name:  "no markdown",
			files: map[string]string{"notes.txt": "# not markdown\n"},
			want:  "fallback-plan",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "fallback-plan")
			for name, content := range tt.files {
				writeFile(t, filepath.Join(dir, name), content)
			}
			mkdirs(t, dir)
			assert.Equal(t, tt.want, Title(dir))
		})
	}
}

func TestList(t *testing.T) {
	plansDir := t.TempDir()
	writeFile(t, filepath.Join(plansDir, "b-second", "README.md"), "# Second plan\n")
	writeFile(t, filepath.Join(plansDir, "b-second", "tasks", "01.md"), "task")
	writeFile(t, filepath.Join(plansDir, "a-first", "plan.md"), "no heading")
	writeFile(t, filepath.Join(plansDir, ".hidden", "x.md"), "# Hidden\n")
	writeFile(t, filepath.Join(plansDir, "loose.md"), "# not a plan\n")

	plans, err := List(plansDir, nil)
	require.NoError(t, err)
	require.Len(t, plans, 2)

	assert.Equal(t, "a-first", plans[0].Name)
	assert.Equal(t, "a-first", plans[0].Title)
	assert.Equal(t, 1, plans[0].Files)

	assert.Equal(t, "b-second", plans[1].Name)
	assert.Equal(t, "Second plan", plans[1].Title)
	assert.Equal(t, 2, plans[1].Files)
	assert.NoError(t, plans[1].Err)
}

func TestListHonoursExclude(t *testing.T) {
	plansDir := t.TempDir()
	writeFile(t, filepath.Join(plansDir, "7-auth", "README.md"), "# Auth\n")
	writeFile(t, filepath.Join(plansDir, "7-auth", "notes", "x.tmp"), "scratch")
	writeFile(t, filepath.Join(plansDir, "7-auth", "design", "ui.md"), "ui")

	plans, err := List(plansDir, []string{"*.tmp", "design"})
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, 1, plans[0].Files)

	entries, err := flatten.Enumerate(plans[0].Path, []string{"*.tmp", "design"})
	require.NoError(t, err)
	assert.Len(t, entries, plans[0].Files, "list counts what a dump would copy")
}

func TestListMissingDir(t *testing.T) {
	_, err := List(filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)
}
