package router

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Fortune phrases. The first capture group is the category marker that stays
// part of the extracted category.
var (
	ZodiacPhrase        = regexp.MustCompile(`(띠)\s?운세`)
	ConstellationPhrase = regexp.MustCompile(`(자리)\s?운세`)
)

// ExtractCategory finds the category preceding phrase in free text, e.g.
// "흑염소 띠 운세 보여줘" yields "흑염소 띠" and "오늘 쥐띠 운세" yields "쥐띠".
//
// The text is cut after the marker of the first match and the last word is
// taken; a detached marker is joined with the word before it. A category with
// no text in front of the marker ("띠운세") is rejected.
func ExtractCategory(text string, phrase *regexp.Regexp) (string, bool) {
	t := strings.TrimSpace(text)
	loc := phrase.FindStringSubmatchIndex(t)
	if loc == nil {
		return "", false
	}

	end, marker := loc[1], ""
	if len(loc) >= 4 && loc[2] >= 0 {
		end, marker = loc[3], t[loc[2]:loc[3]]
	}

	words := strings.Fields(t[:end])
	if len(words) == 0 {
		return "", false
	}

	category := words[len(words)-1]
	if category == marker && len(words) > 1 {
		category = words[len(words)-2] + " " + category
	}

	if category == marker || utf8.RuneCountInString(category) < 2 {
		return "", false
	}
	return category, true
}
