package locale

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	content := map[string]string{
		"en":  "Reduce speed to limit squat.",
		"tr":  "Sığ suda çöküntüyü sınırlamak için hızı azaltın.",
		"fil": "Bawasan ang bilis.",
	}

	tests := []struct {
		name      string
		content   map[string]string
		requested string
		wantText  string
		wantKey   string
	}{
		{"exact match", content, "tr", content["tr"], "tr"},
		{"region falls back to base language", content, "tr-TR", content["tr"], "tr"},
		{"underscore region", content, "tr_TR", content["tr"], "tr"},
		{"case insensitive", content, "FIL", content["fil"], "fil"},
		{"unknown tag falls back to english", content, "az", content["en"], "en"},
		{"garbage tag falls back to english", content, "!!", content["en"], "en"},
		{"empty request", content, "", content["en"], "en"},
		{"first available key when english missing", map[string]string{"ru": "Б", "az": "A"}, "tr", "A", "az"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, key, err := ResolveWithTag(tt.content, tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, text)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestResolve_FallbackProperty(t *testing.T) {
	text, err := Resolve(map[string]string{"en": "X"}, "tr")
	require.NoError(t, err)
	assert.Equal(t, "X", text)

	_, err = Resolve(map[string]string{}, "tr")
	var noContent *NoContentAvailableError
	require.True(t, errors.As(err, &noContent))
	assert.Equal(t, "tr", noContent.Requested)

	_, err = Resolve(nil, "en")
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	assert.Equal(t, []string{"tr-TR", "tr", "en"}, Chain("tr-TR"))
	assert.Equal(t, []string{"en"}, Chain("en"))
	assert.Equal(t, []string{"en"}, Chain(""))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "tr-TR", Normalize("tr_tr"))
	assert.Equal(t, "fil", Normalize(" fil "))
	assert.Equal(t, "!!", Normalize("!!"))
}
