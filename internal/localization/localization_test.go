package localization_test

import (
	"testing"
	"testing/fstest"

	"randomcall/backend/internal/localization"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundledLocales(t *testing.T) {
	l, err := localization.NewLocalizer("")
	require.NoError(t, err)

	assert.Equal(t, []string{"en", "uk"}, l.Languages())
	assert.NotEqual(t, "error.match_timeout", l.GetString("en", "error.match_timeout"))
	assert.NotEqual(t, l.GetString("en", "error.match_timeout"), l.GetString("uk", "error.match_timeout"))
}

func TestGetString_Fallbacks(t *testing.T) {
	fsys := fstest.MapFS{
		"en.json":   {Data: []byte(`{"greeting":"Hello","only_en":"English"}`)},
		"uk.json":   {Data: []byte(`{"greeting":"Привіт"}`)},
		"notes.txt": {Data: []byte("ignored")},
	}
	l, err := localization.NewLocalizerFS(fsys)
	require.NoError(t, err)

	assert.Equal(t, "Привіт", l.GetString("uk", "greeting"))
	assert.Equal(t, "English", l.GetString("uk", "only_en"), "missing key falls back to en")
	assert.Equal(t, "Hello", l.GetString("fr", "greeting"), "unknown language falls back to en")
	assert.Equal(t, "missing", l.GetString("en", "missing"), "unknown key is returned as is")
}

func TestBestLanguage(t *testing.T) {
	fsys := fstest.MapFS{
		"en.json": {Data: []byte(`{}`)},
		"uk.json": {Data: []byte(`{}`)},
	}
	l, err := localization.NewLocalizerFS(fsys)
	require.NoError(t, err)

	tests := []struct {
		header string
		want   string
	}{
		{"", "en"},
		{"uk", "uk"},
		{"uk-UA,uk;q=0.9,en;q=0.8", "uk"},
		{"en-US,en;q=0.9", "en"},
		{"de-DE", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, l.BestLanguage(tt.header))
		})
	}
}

func TestNewLocalizer_Errors(t *testing.T) {
	_, err := localization.NewLocalizer(t.TempDir())
	assert.Error(t, err, "empty directory")

	_, err = localization.NewLocalizerFS(fstest.MapFS{"en.json": {Data: []byte("{")}})
	assert.Error(t, err)
}
