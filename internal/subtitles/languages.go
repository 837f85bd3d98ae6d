package subtitles

import (
	"strings"

	"golang.org/x/text/language"
)

// DefaultCountryCode is returned for languages missing from the table
const DefaultCountryCode = "US"

type languageInfo struct {
	name    string
	country string
}

var languageTable = map[string]languageInfo{
	"en": {"English", "US"},
	"es": {"Spanish", "ES"},
	"fr": {"French", "FR"},
	"de": {"German", "DE"},
	"it": {"Italian", "IT"},
	"pt": {"Portuguese", "PT"},
	"ru": {"Russian", "RU"},
	"ja": {"Japanese", "JP"},
	"ko": {"Korean", "KR"},
	"zh": {"Chinese", "CN"},
	"ar": {"Arabic", "SA"},
	"hi": {"Hindi", "IN"},
	"th": {"Thai", "TH"},
	"vi": {"Vietnamese", "VN"},
	"tr": {"Turkish", "TR"},
	"pl": {"Polish", "PL"},
	"nl": {"Dutch", "NL"},
	"sv": {"Swedish", "SE"},
	"da": {"Danish", "DK"},
	"no": {"Norwegian", "NO"},
	"fi": {"Finnish", "FI"},
}

// languageByName maps lowercase English names back to codes
var languageByName = func() map[string]string {
	m := make(map[string]string, len(languageTable))
	for code, info := range languageTable {
		m[strings.ToLower(info.name)] = code
	}
	return m
}()

// CountryCode maps a language code (or English language name) to the country
// used for its flag. Regional and three-letter codes are reduced to their base
// language first, so "en-GB" and "eng" both map to "US".
func CountryCode(lang string) string {
	if code := baseLanguage(lang); code != "" {
		if info, ok := languageTable[code]; ok {
			return info.country
		}
	}
	return DefaultCountryCode
}

// LanguageName returns the English name for a language code, or the input unchanged
func LanguageName(lang string) string {
	if code := baseLanguage(lang); code != "" {
		if info, ok := languageTable[code]; ok {
			return info.name
		}
	}
	return lang
}

func baseLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return ""
	}

	lower := strings.ToLower(lang)
	if _, ok := languageTable[lower]; ok {
		return lower
	}
	if code, ok := languageByName[lower]; ok {
		return code
	}

	tag, err := language.Parse(lang)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return ""
	}
	code := base.String()
	// Norwegian Bokmål and Nynorsk share the "no" entry
	if code == "nb" || code == "nn" {
		code = "no"
	}
	return code
}
