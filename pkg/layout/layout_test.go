package layout

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EchoTools/dat2FileTools/pkg/dat2"
)

func writeTree(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for rel, data := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, data, 0644))
	}
}

func TestScanFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string][]byte{
		"b.txt":              []byte("b"),
		"art/intrface/a.frm": []byte("frame"),
		"maps/z.map":         {},
	})

	files, err := ScanFiles(root)
	require.NoError(t, err)
	require.Len(t, files, 3)

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	assert.Equal(t, []string{`art\intrface\a.frm`, `b.txt`, `maps\z.map`}, names)
	assert.Equal(t, uint32(5), files[0].Size)
	assert.Equal(t, filepath.Join(root, "art", "intrface", "a.frm"), files[0].Path)
}

func TestArchiveName(t *testing.T) {
	assert.Equal(t, `A\B\C.TXT`, ArchiveName(filepath.Join("A", "B", "C.TXT")))
	assert.Equal(t, `C.TXT`, ArchiveName("C.TXT"))
}

func TestBuildAndExtract(t *testing.T) {
	src := t.TempDir()
	contents := map[string][]byte{
		"text/english/game/misc.msg": bytes.Repeat([]byte("{100}{}{Vault 13}\n"), 50),
		"data/worldmap.txt":          []byte("tiny"),
		"empty.dat":                  {},
	}
	writeTree(t, src, contents)

	files, err := ScanFiles(src)
	require.NoError(t, err)

	ctx := context.Background()
	inputs, err := LoadInputs(ctx, files, WithCompression(true), WithWorkers(2))
	require.NoError(t, err)
	require.Len(t, inputs, len(files))
	for i, in := range inputs {
		assert.Equal(t, files[i].Name, in.Name)
	}

	archivePath := filepath.Join(t.TempDir(), "master.dat")
	n, err := BuildFile(archivePath, inputs)
	require.NoError(t, err)

	info, err := os.Stat(archivePath)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), n)

	a, err := dat2.OpenFile(archivePath)
	require.NoError(t, err)

	msg, ok := a.Lookup(`text\english\game\misc.msg`)
	require.True(t, ok)
	assert.True(t, msg.IsDeclaredCompressed())

	t.Run("All", func(t *testing.T) {
		out := t.TempDir()
		report, err := Extract(ctx, a, out, WithWorkers(3))
		require.NoError(t, err)

		assert.Equal(t, 3, report.Written)
		assert.Empty(t, report.Failed)
		assert.Zero(t, report.SizeMismatches)

		for rel, want := range contents {
			got, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(rel)))
			require.NoError(t, err, rel)
			assert.Equal(t, want, got, rel)
		}
	})

	t.Run("Filter", func(t *testing.T) {
		out := t.TempDir()
		report, err := Extract(ctx, a, out, WithFilter("data/*"))
		require.NoError(t, err)

		assert.Equal(t, 1, report.Written)
		assert.Equal(t, 2, report.Skipped)
		assert.FileExists(t, filepath.Join(out, "data", "worldmap.txt"))
	})

	t.Run("BadFilter", func(t *testing.T) {
		_, err := Extract(ctx, a, t.TempDir(), WithFilter("["))
		assert.Error(t, err)
	})

	t.Run("Cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := Extract(cctx, a, t.TempDir())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestExtractIsolatesFailures(t *testing.T) {
	packed, err := dat2.Compress([]byte("good"))
	require.NoError(t, err)

	buf, err := dat2.Build([]dat2.Input{
		{Name: `..\ESCAPE.TXT`, Data: []byte("nope")},
		{Name: `BAD.TXT`, Data: []byte{0x78, 0xDA, 0xFF, 0xFF}},
		{Name: `GOOD.TXT`, Data: packed, Compressed: true, DecompressedSize: 4},
		{Name: `LIAR.TXT`, Data: []byte("12345"), DecompressedSize: 3},
	})
	require.NoError(t, err)

	a, err := dat2.Open(buf)
	require.NoError(t, err)

	out := t.TempDir()
	report, err := Extract(context.Background(), a, out)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Written)
	assert.Equal(t, 1, report.SizeMismatches)
	require.Len(t, report.Failed, 2)

	failed := map[string]error{}
	for _, f := range report.Failed {
		failed[f.Name] = f.Err
	}
	assert.ErrorIs(t, failed[`..\ESCAPE.TXT`], ErrUnsafePath)
	assert.ErrorIs(t, failed[`BAD.TXT`], dat2.ErrCompressionFailure)

	got, err := os.ReadFile(filepath.Join(out, "GOOD.TXT"))
	require.NoError(t, err)
	assert.Equal(t, []byte("good"), got)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(out), "ESCAPE.TXT"))
}

func TestExtractPathCollision(t *testing.T) {
	buf, err := dat2.Build([]dat2.Input{
		{Name: `TEXT/A.MSG`, Data: []byte("first")},
		{Name: `OTHER.TXT`, Data: []byte("other")},
		{Name: `TEXT\A.MSG`, Data: []byte("second")},
	})
	require.NoError(t, err)

	a, err := dat2.Open(buf)
	require.NoError(t, err)
	require.Equal(t, 3, a.Len())

	for range 5 {
		out := t.TempDir()
		report, err := Extract(context.Background(), a, out, WithWorkers(4))
		require.NoError(t, err)

		assert.Equal(t, 2, report.Written)
		require.Len(t, report.Failed, 1)
		assert.Equal(t, `TEXT\A.MSG`, report.Failed[0].Name)
		assert.ErrorIs(t, report.Failed[0].Err, ErrPathCollision)

		got, err := os.ReadFile(filepath.Join(out, "TEXT", "A.MSG"))
		require.NoError(t, err)
		assert.Equal(t, []byte("first"), got)
	}
}

func TestLoadInputsMissingFile(t *testing.T) {
	_, err := LoadInputs(context.Background(), []ScannedFile{{Name: "GONE", Path: filepath.Join(t.TempDir(), "gone")}})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
