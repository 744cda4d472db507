package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastiangx/birdserve/pkg/names"
)

const (
	birdMap   = `{"Emu": "Emu(鸸鹋)", "Common Ostrich": "Common Ostrich(鸵鸟)", "Bad": 3, "Ostrich": "Ostrich(鸵鸟)"}`
	endemic   = `{"Taiwan Blue Magpie": "TW", "Chinese Grouse": ["CN", " ", "CN-62"], "Broken": {"x": 1}}`
	pinyinMap = `{
		"Emu": {"pinyin": "ermiao", "initials": "em", "code": "emu1", "name": "Emu", "latin": "Dromaius novaehollandiae"},
		"Common Ostrich": {"pinyin": "tuo niao", "code": "ostric2"},
		"Mystery": {"pinyin": "", "initials": ""},
		"Broken": "nope"
	}`
)

func TestDecodeNamesKeepsOrder(t *testing.T) {
	got, err := DecodeNames(strings.NewReader(birdMap))
	require.NoError(t, err)
	assert.Equal(t, []names.NameEntry{
		{SourceName: "Emu", TargetName: "Emu(鸸鹋)"},
		{SourceName: "Common Ostrich", TargetName: "Common Ostrich(鸵鸟)"},
		{SourceName: "Ostrich", TargetName: "Ostrich(鸵鸟)"},
	}, got)
}

func TestDecodeMalformed(t *testing.T) {
	for _, payload := range []string{`[]`, `"x"`, `{"a": `, ``} {
		_, err := DecodeNames(strings.NewReader(payload))
		assert.ErrorIs(t, err, ErrMalformed, payload)
		_, err = DecodeEndemic(strings.NewReader(payload))
		assert.ErrorIs(t, err, ErrMalformed, payload)
		_, err = DecodeTypeahead(strings.NewReader(payload))
		assert.ErrorIs(t, err, ErrMalformed, payload)
	}
}

func TestDecodeEndemic(t *testing.T) {
	got, err := DecodeEndemic(strings.NewReader(endemic))
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"Taiwan Blue Magpie": {"TW"},
		"Chinese Grouse":     {"CN", "CN-62"},
	}, got)
}

func TestDecodeTypeahead(t *testing.T) {
	got, err := DecodeTypeahead(strings.NewReader(pinyinMap))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Emu", got[0].CommonName)
	assert.Equal(t, "Dromaius novaehollandiae", got[0].Latin)
	assert.Equal(t, "Common Ostrich", got[1].CommonName, "name falls back to the key")
	assert.Equal(t, "tn", got[1].InitialsKey, "initials derived from syllables")
}

func TestDecodeTypeaheadSingleSyllable(t *testing.T) {
	got, err := DecodeTypeahead(strings.NewReader(`{"Heron": {"pinyin": "he"}, "Emu": {"pinyin": "ermiao"}}`))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "h", got[0].InitialsKey)
	assert.Equal(t, "e", got[1].InitialsKey)
}

func writeDir(t *testing.T, files map[Key]string) string {
	t.Helper()
	dir := t.TempDir()
	for k, v := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, string(k)), []byte(v), 0o644))
	}
	return dir
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	dir := writeDir(t, map[Key]string{NamesKey: birdMap, EndemicKey: endemic, TypeaheadKey: pinyinMap})

	b, err := Load(ctx, DirSource{Dir: dir}, nil)
	require.NoError(t, err)
	assert.Len(t, b.Names, 3)
	assert.Len(t, b.Endemic, 2)
	assert.Len(t, b.Typeahead, 2)
}

func TestLoadDegrades(t *testing.T) {
	ctx := context.Background()

	_, err := Load(ctx, DirSource{Dir: t.TempDir()}, nil)
	assert.Error(t, err, "names are required")

	b, err := Load(ctx, MapSource{NamesKey: []byte(birdMap), EndemicKey: []byte(`["not", "an", "object"]`)}, nil)
	require.NoError(t, err)
	assert.Len(t, b.Names, 3)
	assert.Empty(t, b.Endemic)
	assert.Empty(t, b.Typeahead)

	b, err = Load(ctx, MapSource{NamesKey: []byte(`"oops"`)}, nil)
	require.NoError(t, err)
	assert.Empty(t, b.Names, "malformed names degrade to empty")
}

func TestLoadCache(t *testing.T) {
	ctx := context.Background()
	dir := writeDir(t, map[Key]string{NamesKey: birdMap, TypeaheadKey: pinyinMap})
	cache := &Cache{Path: filepath.Join(t.TempDir(), "bundle.msgpack")}
	src := DirSource{Dir: dir}

	first, err := Load(ctx, src, cache)
	require.NoError(t, err)
	require.FileExists(t, cache.Path)
	require.NotEmpty(t, first.Fingerprint)

	cached, ok := cache.Get(first.Fingerprint)
	require.True(t, ok)
	assert.Equal(t, first.Names, cached.Names)
	assert.Equal(t, first.Typeahead, cached.Typeahead)

	_, ok = cache.Get("other")
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(cache.Path, []byte{0xc1}, 0o644))
	_, ok = cache.Get(first.Fingerprint)
	assert.False(t, ok, "corrupt snapshot is ignored")

	again, err := Load(ctx, src, cache)
	require.NoError(t, err)
	assert.Equal(t, first.Names, again.Names)
}

func TestUnknownKey(t *testing.T) {
	_, err := DirSource{Dir: t.TempDir()}.Open(context.Background(), Key("other.json"))
	assert.ErrorIs(t, err, ErrUnknownKey)
	_, err = MapSource{}.Open(context.Background(), Key("other.json"))
	assert.ErrorIs(t, err, ErrUnknownKey)
}
