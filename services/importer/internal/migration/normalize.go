package migration

import (
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxNameLength    = 255
	UntitledName     = "Untitled"
	EmptyCommentBody = "…"
)

// Colors is the destination color palette
var Colors = []string{
	"aquamarine", "aubergine", "blue", "brown", "burntsienna", "darkgreen",
	"deeppurple", "dustpink", "green", "heather", "indigo", "karmin",
	"lightblue", "lightpink", "mauve", "midnight", "navy", "ocean", "ocher",
	"olive", "orange", "pink", "purple", "red", "sand", "stone", "taupe",
	"teal", "ultramarine",
}

// ColorTables maps vendor color names onto the palette, keyed by provider name.
// Values already in the palette pass through untouched.
var ColorTables = map[string]map[string]string{
	"Asana": {
		"light-green":     "green",
		"dark-green":      "darkgreen",
		"light-red":       "red",
		"dark-red":        "red",
		"light-orange":    "orange",
		"dark-orange":     "orange",
		"light-teal":      "teal",
		"dark-teal":       "teal",
		"light-purple":    "purple",
		"dark-purple":     "deeppurple",
		"light-pink":      "lightpink",
		"dark-pink":       "pink",
		"light-blue":      "lightblue",
		"dark-brown":      "brown",
		"light-warm-gray": "stone",
	},
	"Trello": {
		"sky":    "lightblue",
		"lime":   "green",
		"yellow": "sand",
		"black":  "midnight",
		"grey":   "stone",
	},
	"Todoist": {
		"berry_red":   "karmin",
		"yellow":      "sand",
		"olive_green": "olive",
		"lime_green":  "green",
		"mint_green":  "aquamarine",
		"sky_blue":    "lightblue",
		"light_blue":  "lightblue",
		"grape":       "deeppurple",
		"violet":      "purple",
		"lavender":    "mauve",
		"magenta":     "pink",
		"salmon":      "dustpink",
		"charcoal":    "midnight",
		"grey":        "stone",
	},
}

var palette = func() map[string]bool {
	m := make(map[string]bool, len(Colors))
	for _, c := range Colors {
		m[c] = true
	}
	return m
}()

// Trim bounds a display name to MaxNameLength runes; blank names become
// UntitledName
func Trim(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return UntitledName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = string([]rune(name)[:MaxNameLength])
	}
	return name
}

// CommentBody substitutes EmptyCommentBody for a blank body
func CommentBody(body string) string {
	if strings.TrimSpace(body) == "" {
		return EmptyCommentBody
	}
	return body
}

// MapColor resolves a vendor color through table. Unknown or absent colors
// get a random palette color.
func MapColor(table map[string]string, color string, rnd *rand.Rand) string {
	color = strings.ToLower(strings.TrimSpace(color))
	if mapped, ok := table[color]; ok {
		return mapped
	}
	if palette[color] {
		return color
	}
	if rnd == nil {
		return Colors[rand.Intn(len(Colors))]
	}
	return Colors[rnd.Intn(len(Colors))]
}

// Millis converts a timestamp to unix milliseconds
func Millis(t *time.Time) *int64 {
	if t == nil || t.IsZero() {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}
