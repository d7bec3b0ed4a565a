package catalog

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/danmuck/instrctl/internal/persistence"
	"github.com/danmuck/instrctl/internal/protocol"
	"github.com/danmuck/instrctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stockMarkers = Markers{Head: DefaultHead, Tail: DefaultTail}

type fakeStore struct {
	records []persistence.Record
	loadErr error
	saveErr error
	saved   []persistence.Record
}

func (s *fakeStore) Load() ([]persistence.Record, error) { return s.records, s.loadErr }
func (s *fakeStore) Save(records []persistence.Record) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = records
	return nil
}
func (s *fakeStore) Path() string { return "fake" }

func newFileStore(t *testing.T) *persistence.FileStore {
	t.Helper()
	store, err := persistence.NewFileStore(filepath.Join(t.TempDir(), persistence.StoreName("ControlDemoViewModel", ".xml")))
	require.NoError(t, err)
	return store
}

func assertDefaults(t *testing.T, c *Catalog) {
	t.Helper()
	list := c.List()
	require.Len(t, list, DefaultCount)
	for i, d := range list {
		assert.Equal(t, i+1, d.Index)
		assert.Equal(t, defaultEntries[i].code, d.CommandCode)
	}
}

func TestLoadMissingStoreUsesDefaults(t *testing.T) {
	c, source := Load(newFileStore(t), stockMarkers, testlog.Logger(t))
	assert.Equal(t, SourceDefaults, source)
	assertDefaults(t, c)
}

func TestLoadEmptyStoreUsesDefaults(t *testing.T) {
	c, source := Load(&fakeStore{records: []persistence.Record{}}, stockMarkers, testlog.Logger(t))
	assert.Equal(t, SourceDefaults, source)
	assertDefaults(t, c)
}

func TestLoadUnreadableStoreUsesDefaults(t *testing.T) {
	store := &fakeStore{loadErr: &persistence.Error{Op: "read", Path: "fake", Err: errors.New("denied")}}
	c, source := Load(store, stockMarkers, testlog.Logger(t))
	assert.Equal(t, SourceDefaults, source)
	assertDefaults(t, c)
}

func TestLoadAllInvalidEntriesUsesDefaults(t *testing.T) {
	store := &fakeStore{records: []persistence.Record{
		{Name: "broken", Head: "0xEB90", CommandCode: "zz", End: "0xDEAD"},
	}}
	c, source := Load(store, stockMarkers, testlog.Logger(t))
	assert.Equal(t, SourceDefaults, source)
	assertDefaults(t, c)
}

func TestLoadPersistedEntriesSkipDefaults(t *testing.T) {
	store := &fakeStore{records: []persistence.Record{
		{Index: 7, Name: "Fft长度", Head: "0xEB90", Length: 2, CommandCode: "0x012c", Content: "0800", ContentEditable: true, End: "0xDEAD"},
		{Index: 3, Name: "custom", Length: 0, CommandCode: "0x0200"},
		{Index: 9, Name: "dup", Head: "0xEB90", CommandCode: "0x012C", End: "0xDEAD"},
	}}
	c, source := Load(store, stockMarkers, testlog.Logger(t))
	assert.Equal(t, SourcePersisted, source)

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].Index)
	assert.Equal(t, "0x012c", list[0].CommandCode)
	assert.Equal(t, "0800", list[0].Content)
	assert.Equal(t, 2, list[1].Index)
	assert.Equal(t, "custom", list[1].Name)
	assert.Equal(t, DefaultHead, list[1].Head, "blank markers take the deployment default")
	assert.Equal(t, DefaultTail, list[1].Tail)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newFileStore(t)
	c := New()
	defs := Defaults(DefaultHead, DefaultTail)
	defs[2].Content = "01020304"
	defs[5].Remark = "operator note"
	require.NoError(t, c.Replace(defs))
	require.NoError(t, Save(store, c, testlog.Logger(t)))

	loaded, source := Load(store, stockMarkers, testlog.Logger(t))
	assert.Equal(t, SourcePersisted, source)
	assert.Equal(t, ToRecords(c.List()), ToRecords(loaded.List()))
}

func TestSaveFailureIsReportedNotFatal(t *testing.T) {
	store := &fakeStore{saveErr: &persistence.Error{Op: "write", Path: "fake", Err: errors.New("disk full")}}
	c := New()
	require.NoError(t, c.Replace(Defaults(DefaultHead, DefaultTail)))

	err := Save(store, c, testlog.Logger(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, protocol.ErrPersistence))
	assert.Equal(t, DefaultCount, c.Len())
}

func TestLoadMalformedMarkersStillYieldsDefaults(t *testing.T) {
	c, source := Load(&fakeStore{}, Markers{Head: "0xZZ", Tail: DefaultTail}, testlog.Logger(t))
	assert.Equal(t, SourceDefaults, source)
	assertDefaults(t, c)
	d, _ := c.Get(1)
	assert.Equal(t, DefaultHead, d.Head)
}

func TestLoadDropsEntriesWithMalformedContent(t *testing.T) {
	store := &fakeStore{records: []persistence.Record{
		{Name: "a", Head: DefaultHead, End: DefaultTail, CommandCode: "0x0122", Length: 4, ContentEditable: true, Content: "ZZ"},
		{Name: "b", Head: DefaultHead, End: DefaultTail, CommandCode: "0x0124", Length: 4, ContentEditable: true, Content: "01020304"},
	}}
	c, source := Load(store, stockMarkers, testlog.Logger(t))
	assert.Equal(t, SourcePersisted, source)
	require.Equal(t, 1, c.Len())
	d, _ := c.Get(1)
	assert.Equal(t, "0x0124", d.CommandCode)
}
