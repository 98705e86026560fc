package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/scriva/internal/model"
	"github.com/rcliao/scriva/internal/repo"
	"github.com/rcliao/scriva/internal/state"
)

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"Mara", "Oren"}, splitList(" Mara, ,Oren ,"))
}

func TestDirKey(t *testing.T) {
	k := dirKey(filepath.Join(t.TempDir(), "salt"))
	assert.Equal(t, "local", k.Owner)
	assert.Equal(t, "salt", k.Repo)
	assert.Equal(t, "main", k.Branch)
}

func TestReadContent(t *testing.T) {
	got, err := readContent([]string{"a", "b"}, os.Stdin)
	require.NoError(t, err)
	assert.Equal(t, "a b", got)

	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	_, err = f.WriteString(`{"promises":[]}`)
	require.NoError(t, err)
	_, err = f.Seek(0, 0)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	got, err = readContent(nil, f)
	require.NoError(t, err)
	assert.Equal(t, `{"promises":[]}`, got)
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"compile", "index", "search", "stale", "apply", "learn", "put", "get", "serve", "list", "export", "import", "drift", "world"}
	have := map[string]bool{}
	for _, c := range RootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, have[name], "missing command %s", name)
	}
}

func TestImportFiles(t *testing.T) {
	ctx := context.Background()
	d := repo.NewDirStore(t.TempDir())
	_, err := d.WriteFile(ctx, "chapters/ch1.md", "old", "")
	require.NoError(t, err)
	_, err = d.WriteFile(ctx, "chapters/ch2.md", "same", "")
	require.NoError(t, err)

	n, err := importFiles(ctx, d, []repo.File{
		{Path: "chapters/ch1.md", Content: "new"},
		{Path: "chapters/ch2.md", Content: "same"},
		{Path: ".scriva/memory/book.md", Content: "summary"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := d.ReadFile(ctx, "chapters/ch1.md")
	require.NoError(t, err)
	assert.Equal(t, "new", f.Content)
}

func TestRecordDrift(t *testing.T) {
	ctx := context.Background()
	st := state.New(repo.NewDirStore(t.TempDir()))

	for _, ch := range []string{"ch1", "ch2", "ch3"} {
		_, err := recordDrift(ctx, st, &model.DriftReport{ChapterID: ch, Score: 0.2}, 0)
		require.NoError(t, err)
	}

	ds, err := recordDrift(ctx, st, nil, 2)
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, "ch2", ds[0].ChapterID)
	assert.Equal(t, "ch3", ds[1].ChapterID)
	assert.NotZero(t, ds[1].MeasuredAt)
}
