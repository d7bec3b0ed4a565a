package persistence

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/instrctl/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []Record {
	return []Record{
		{Index: 1, Name: "启动信号", Head: "0xEB90", Length: 0, CommandCode: "0x0119", End: "0xDEAD", Remark: "start signal"},
		{Index: 2, Name: "TB大小", Head: "0xEB90", Length: 4, CommandCode: "0x0122", Content: "01020304", ContentEditable: true, End: "0xDEAD"},
		{Index: 3, Name: "neg", Head: "0xEB90", Length: -2, CommandCode: "0x012e", End: "0xDEAD", Remark: "a <tricky> & \"quoted\" remark"},
	}
}

func TestFileStoreRoundTripAllFormats(t *testing.T) {
	for _, ext := range append(Extensions(), ".yml", ".jsonc") {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), StoreName("ControlDemoViewModel", ext))
			store, err := NewFileStore(path)
			require.NoError(t, err)

			in := sampleRecords()
			require.NoError(t, store.Save(in))

			out, err := store.Load()
			require.NoError(t, err)
			assert.Equal(t, in, out)
		})
	}
}

func TestFileStoreLoadMissingIsEmpty(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "absent.xml"))
	require.NoError(t, err)

	out, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestFileStoreLoadBlankIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank.yaml")
	require.NoError(t, os.WriteFile(path, []byte("\n  \n"), 0o644))
	store, err := NewFileStore(path)
	require.NoError(t, err)

	out, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFileStoreLoadCorruptIsPersistenceError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.xml")
	require.NoError(t, os.WriteFile(path, []byte("<ArrayOfCommand><Command>"), 0o644))
	store, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = store.Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, protocol.ErrPersistence))
	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "decode", perr.Op)
}

func TestFileStoreJSONAcceptsComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.jsonc")
	raw := `{
  // operator edited
  "version": 1,
  "commands": [
    {"index": 1, "name": "逻辑复位", "head": "0xEB90", "length": 0, "commandCode": "0x0120", "end": "0xDEAD"},
  ]
}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))
	store, err := NewFileStore(path)
	require.NoError(t, err)

	out, err := store.Load()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "0x0120", out[0].CommandCode)
}

func TestFileStoreXMLElementPerRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.xml")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(sampleRecords()[:1]))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<ArrayOfCommand>")
	assert.Contains(t, string(data), "<commandCode>0x0119</commandCode>")
	assert.Contains(t, string(data), "<end>0xDEAD</end>")
}

func TestFileStoreFailedSaveKeepsPreviousSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "commands.xml")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(sampleRecords()))

	// The existing snapshot file sits where the parent directory would be.
	blocked := &FileStore{path: filepath.Join(path, "nested.xml"), codec: xmlCodec{}}
	err = blocked.Save(sampleRecords()[:1])
	require.Error(t, err)
	assert.True(t, errors.Is(err, protocol.ErrPersistence))

	out, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), out)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not linger")
}

func TestFileStoreXMLKeepsWhitespaceControls(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "ws.xml"))
	require.NoError(t, err)
	in := sampleRecords()
	in[0].Remark = "line one\n\tline two\r"
	require.NoError(t, store.Save(in))

	out, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFileStoreXMLRejectsUnencodableText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctl.xml")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(sampleRecords()))

	bad := sampleRecords()
	bad[1].Remark = "bell\x01"
	err = store.Save(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, protocol.ErrPersistence))
	assert.Contains(t, err.Error(), "remark")

	out, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), out, "previous snapshot must survive")

	yamlStore, err := NewFileStore(filepath.Join(t.TempDir(), "ctl.yaml"))
	require.NoError(t, err)
	require.NoError(t, yamlStore.Save(bad))
	back, err := yamlStore.Load()
	require.NoError(t, err)
	assert.Equal(t, bad, back)
}

func TestNewFileStoreUnknownExtension(t *testing.T) {
	_, err := NewFileStore("commands.ini")
	require.Error(t, err)
}

func TestStoreName(t *testing.T) {
	assert.Equal(t, "ControlDemoViewModelCommandList.xml", StoreName("ControlDemoViewModel", ".xml"))
	assert.Equal(t, "PanelCommandList.yaml", StoreName("Panel", "yaml"))
}
