package domain

import (
	"fmt"
	"strings"
)

// Mode selects the product category that governs prompt templates and
// background choices.
type Mode string

const (
	ModeClothing Mode = "CLOTHING"
	ModeFootwear Mode = "FOOTWEAR"
)

// Modes lists the supported modes in display order.
var Modes = []Mode{ModeClothing, ModeFootwear}

// ParseMode accepts any casing of a known mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeClothing:
		return ModeClothing, nil
	case ModeFootwear:
		return ModeFootwear, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
}

// Gender of the generated child model. Only used for clothing.
type Gender string

const (
	GenderBoy  Gender = "BOY"
	GenderGirl Gender = "GIRL"
)

// Genders lists the supported genders in display order.
var Genders = []Gender{GenderBoy, GenderGirl}

func ParseGender(s string) (Gender, error) {
	switch Gender(strings.ToUpper(strings.TrimSpace(s))) {
	case GenderBoy:
		return GenderBoy, nil
	case GenderGirl:
		return GenderGirl, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedGender, s)
}

// Locale identifies the language of prompts, labels, and messages.
type Locale string

const (
	LocaleVI Locale = "vi"
	LocaleEN Locale = "en"
)

// DefaultLocale is the canonical studio language.
const DefaultLocale = LocaleVI

// NormalizeLocale maps free-form input onto a supported locale.
func NormalizeLocale(s string) Locale {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "vi"):
		return LocaleVI
	case strings.HasPrefix(s, "en"):
		return LocaleEN
	}
	return DefaultLocale
}

// Background identifies a scene setting. The identifier doubles as the
// English label.
type Background string

// BackgroundAuto delegates the choice of setting to the image model.
const BackgroundAuto Background = "auto"

type backgroundLabels struct {
	vi string
	en string
}

var labels = map[Background]backgroundLabels{
	BackgroundAuto:               {vi: "AI tự chọn (Tối ưu nhất)", en: "AI auto-select (best)"},
	"clean white studio":         {vi: "studio trắng sạch", en: "clean white studio"},
	"indoor bedroom":             {vi: "phòng ngủ trong nhà", en: "indoor bedroom"},
	"outdoor street":             {vi: "đường phố ngoài trời", en: "outdoor street"},
	"Korean-style neighborhood":  {vi: "khu phố phong cách Hàn Quốc", en: "Korean-style neighborhood"},
	"Lunar New Year market":      {vi: "chợ Tết", en: "Lunar New Year market"},
	"school yard":                {vi: "sân trường", en: "school yard"},
	"children's playground":      {vi: "sân chơi trẻ em", en: "children's playground"},
	"minimal pastel backdrop":    {vi: "nền pastel tối giản", en: "minimal pastel backdrop"},
	"outdoor sidewalk":           {vi: "vỉa hè ngoài trời", en: "outdoor sidewalk"},
	"park pathway":               {vi: "lối đi công viên", en: "park pathway"},
	"school hallway":             {vi: "hành lang trường học", en: "school hallway"},
	"playground surface":         {vi: "mặt sân chơi", en: "playground surface"},
	"clean studio floor":         {vi: "sàn studio sạch", en: "clean studio floor"},
	"minimal lifestyle backdrop": {vi: "nền lifestyle tối giản", en: "minimal lifestyle backdrop"},
}

var catalogs = map[Mode][]Background{
	ModeClothing: {
		BackgroundAuto,
		"clean white studio",
		"indoor bedroom",
		"outdoor street",
		"Korean-style neighborhood",
		"Lunar New Year market",
		"school yard",
		"children's playground",
		"minimal pastel backdrop",
	},
	ModeFootwear: {
		BackgroundAuto,
		"outdoor sidewalk",
		"park pathway",
		"school hallway",
		"playground surface",
		"clean studio floor",
		"minimal lifestyle backdrop",
	},
}

var defaults = map[Mode]Background{
	ModeClothing: "clean white studio",
	ModeFootwear: "outdoor sidewalk",
}

// Backgrounds returns a copy of the enumerated set valid for mode.
func Backgrounds(mode Mode) []Background {
	src := catalogs[mode]
	out := make([]Background, len(src))
	copy(out, src)
	return out
}

// DefaultBackground returns the background a mode starts with.
func DefaultBackground(mode Mode) Background {
	return defaults[mode]
}

// ValidBackground reports whether bg belongs to the catalog of mode.
func ValidBackground(mode Mode, bg Background) bool {
	for _, candidate := range catalogs[mode] {
		if candidate == bg {
			return true
		}
	}
	return false
}

// Label renders bg in the given locale. Unknown backgrounds render verbatim.
func (bg Background) Label(locale Locale) string {
	l, ok := labels[bg]
	if !ok {
		return string(bg)
	}
	if locale == LocaleEN {
		return l.en
	}
	return l.vi
}

// ResolveBackground finds the background of mode matching either its
// identifier or any of its localized labels.
func ResolveBackground(mode Mode, s string) (Background, error) {
	s = strings.TrimSpace(s)
	for _, bg := range catalogs[mode] {
		l := labels[bg]
		if string(bg) == s || strings.EqualFold(l.vi, s) || strings.EqualFold(l.en, s) {
			return bg, nil
		}
	}
	return "", fmt.Errorf("%w: %q for %s", ErrUnsupportedBackground, s, mode)
}

// AllBackgroundLabels returns every literal (non-sentinel) label in every
// locale.
func AllBackgroundLabels() []string {
	var out []string
	for bg, l := range labels {
		if bg == BackgroundAuto {
			continue
		}
		out = append(out, l.vi, l.en)
	}
	return out
}
