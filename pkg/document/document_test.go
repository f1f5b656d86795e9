package document

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridpro/gridpro/pkg/errors"
)

func testDocuments(t *testing.T) map[string]Document {
	sqlite, err := NewSQLite(filepath.Join(t.TempDir(), "workbook.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Document{
		"memory": NewMemory(),
		"file":   NewFile(afero.NewMemMapFs(), "/docs/workbook.gridpro.yaml"),
		"sqlite": sqlite,
	}
}

func TestDocumentContract(t *testing.T) {
	ctx := context.Background()
	modified := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	for name, doc := range testDocuments(t) {
		doc := doc
		t.Run(name, func(t *testing.T) {
			names, err := doc.Names(ctx)
			require.NoError(t, err)
			assert.Empty(t, names)

			_, err = doc.Load(ctx, "main.py")
			assert.True(t, errors.Is(err, errors.ErrNotFound))

			for _, n := range []string{"zeta.py", "alpha.py", "main.py"} {
				require.NoError(t, doc.Save(ctx, Record{
					Name:        n,
					Source:      []byte("print('" + n + "')"),
					Fingerprint: "fp-" + n,
					Modified:    modified,
				}))
			}

			// Replacing a record keeps its position.
			require.NoError(t, doc.Save(ctx, Record{
				Name:        "zeta.py",
				Source:      []byte("print('new')"),
				Fingerprint: "fp-new",
				Modified:    modified.Add(time.Minute),
			}))

			names, err = doc.Names(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"zeta.py", "alpha.py", "main.py"}, names)

			record, err := doc.Load(ctx, "zeta.py")
			require.NoError(t, err)
			assert.Equal(t, "print('new')", string(record.Source))
			assert.Equal(t, "fp-new", record.Fingerprint)
			assert.True(t, record.Modified.Equal(modified.Add(time.Minute)))

			require.NoError(t, doc.Delete(ctx, "alpha.py"))
			assert.True(t, errors.Is(doc.Delete(ctx, "alpha.py"), errors.ErrNotFound))

			names, err = doc.Names(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"zeta.py", "main.py"}, names)
		})
	}
}

func TestDocumentRecordIsAtomic(t *testing.T) {
	ctx := context.Background()
	versions := []Record{
		{Name: "macro1", Source: []byte("version a"), Fingerprint: "a"},
		{Name: "macro1", Source: []byte("version b"), Fingerprint: "b"},
	}

	for name, doc := range testDocuments(t) {
		doc := doc
		t.Run(name, func(t *testing.T) {
			require.NoError(t, doc.Save(ctx, versions[0]))

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					assert.NoError(t, doc.Save(ctx, versions[i%2]))
				}
			}()

			for i := 0; i < 50; i++ {
				record, err := doc.Load(ctx, "macro1")
				require.NoError(t, err)
				assert.Equal(t, "version "+record.Fingerprint, string(record.Source))
			}
			wg.Wait()
		})
	}
}

func TestMemoryLoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	doc := NewMemory()
	source := []byte("x = 1")
	require.NoError(t, doc.Save(ctx, Record{Name: "a", Source: source}))
	source[0] = 'y'

	record, err := doc.Load(ctx, "a")
	require.NoError(t, err)
	record.Source[0] = 'z'

	record, err = doc.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "x = 1", string(record.Source))
}

func TestFileCorrupt(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{
			name:     "invalid YAML",
			contents: "modules:\n  - name: a\n   source: [",
		},
		{
			name:     "wrong shape",
			contents: "modules: 7",
		},
		{
			name:     "duplicate modules",
			contents: "modules:\n- name: a\n  source: x\n- name: a\n  source: y\n",
		},
	}

	for _, test := range tests {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "doc.yaml", []byte(test.contents), 0644))
		doc := NewFile(fs, "doc.yaml")

		_, err := doc.Load(context.Background(), "a")
		assert.True(t, errors.Is(err, errors.ErrCorrupt), test.name)

		_, err = doc.Names(context.Background())
		assert.True(t, errors.Is(err, errors.ErrCorrupt), test.name)

		// A corrupt document is never overwritten.
		err = doc.Save(context.Background(), Record{Name: "a", Source: []byte("z")})
		assert.True(t, errors.Is(err, errors.ErrCorrupt), test.name)
	}
}

func TestFileModuleWithoutSourceIsCorrupt(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "doc.yaml",
		[]byte("modules:\n- name: a\n  fingerprint: abc\n- name: b\n  source: ''\n"), 0644))
	doc := NewFile(fs, "doc.yaml")

	_, err := doc.Load(context.Background(), "a")
	assert.True(t, errors.Is(err, errors.ErrCorrupt))

	record, err := doc.Load(context.Background(), "b")
	require.NoError(t, err)
	assert.Empty(t, record.Source)
}

func TestFileBinarySourceRoundTrips(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	source := []byte{0xff, 0xfe, 'a', 0x00}

	require.NoError(t, NewFile(fs, "doc.yaml").Save(ctx, Record{Name: "bin", Source: source}))

	// Reopen to make sure it came from disk.
	record, err := NewFile(fs, "doc.yaml").Load(ctx, "bin")
	require.NoError(t, err)
	assert.Equal(t, source, record.Source)
}

func TestFileLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	doc := NewFile(fs, "/docs/doc.yaml")
	for i := 0; i < 3; i++ {
		require.NoError(t, doc.Save(ctx, Record{Name: fmt.Sprintf("m%d", i), Source: []byte("x")}))
	}

	entries, err := afero.ReadDir(fs, "/docs")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "doc.yaml", entries[0].Name())
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "workbook.db")

	doc, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, doc.Save(ctx, Record{Name: "b", Source: []byte("1"), Fingerprint: "x"}))
	require.NoError(t, doc.Save(ctx, Record{Name: "a", Source: []byte("2")}))
	require.NoError(t, doc.Close())

	doc, err = NewSQLite(path)
	require.NoError(t, err)
	defer doc.Close()

	names, err := doc.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, names)

	record, err := doc.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "", record.Fingerprint)
}

func TestSQLiteCorruptTimestamp(t *testing.T) {
	ctx := context.Background()
	doc, err := NewSQLite(filepath.Join(t.TempDir(), "workbook.db"))
	require.NoError(t, err)
	defer doc.Close()

	require.NoError(t, doc.Save(ctx, Record{Name: "a", Source: []byte("1")}))
	_, err = doc.db.Exec(`UPDATE embedded_code SET modified_at = 'yesterday' WHERE name = 'a'`)
	require.NoError(t, err)

	_, err = doc.Load(ctx, "a")
	assert.True(t, errors.Is(err, errors.ErrCorrupt))
}

func TestOpen(t *testing.T) {
	doc, err := Open(DriverMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, doc)

	_, err = Open("excel", "book.xlsx")
	assert.Error(t, err)
}
