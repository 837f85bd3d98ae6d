package subtitles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountryCode(t *testing.T) {
	tests := []struct {
		lang string
		want string
	}{
		{"en", "US"},
		{"es", "ES"},
		{"ja", "JP"},
		{"zh", "CN"},
		{"fi", "FI"},
		{"EN", "US"},
		{"en-GB", "US"},
		{"pt-BR", "PT"},
		{"eng", "US"},
		{"deu", "DE"},
		{"nb", "NO"},
		{"French", "FR"},
		{"klingon", "US"},
		{"", "US"},
		{"xx", "US"},
	}

	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			assert.Equal(t, tt.want, CountryCode(tt.lang))
		})
	}
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "English", LanguageName("en"))
	assert.Equal(t, "German", LanguageName("de-AT"))
	assert.Equal(t, "tlh", LanguageName("tlh"))
}
