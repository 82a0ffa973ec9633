package router

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCategory(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		phrase *regexp.Regexp
		want   string
		ok     bool
	}{
		{"detached marker", "흑염소 띠 운세 보여줘", ZodiacPhrase, "흑염소 띠", true},
		{"attached marker", "오늘 쥐띠 운세 알려줘", ZodiacPhrase, "쥐띠", true},
		{"no space before 운세", "  소띠운세  ", ZodiacPhrase, "소띠", true},
		{"constellation", "물병자리 운세", ConstellationPhrase, "물병자리", true},
		{"detached constellation", "나 물병 자리 운세 좀", ConstellationPhrase, "물병 자리", true},
		{"first match wins", "쥐띠 운세 말고 소띠 운세", ZodiacPhrase, "쥐띠", true},
		{"bare marker", "띠운세", ZodiacPhrase, "", false},
		{"bare marker spaced", "띠 운세", ZodiacPhrase, "", false},
		{"bare constellation", "자리운세", ConstellationPhrase, "", false},
		{"no phrase", "오늘 날씨 어때", ZodiacPhrase, "", false},
		{"empty", "", ZodiacPhrase, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractCategory(tt.text, tt.phrase)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractCategory_Idempotent(t *testing.T) {
	for _, text := range []string{"흑염소 띠 운세 보여줘", "오늘 쥐띠 운세", "용띠운세!"} {
		first, ok := ExtractCategory(text, ZodiacPhrase)
		assert.True(t, ok, text)

		again, ok := ExtractCategory(first+" 운세", ZodiacPhrase)
		assert.True(t, ok)
		assert.Equal(t, first, again)
	}
}

// A detached marker used to leave a one-character category behind, which
// was then rejected. It is now joined with the word in front of it.
func TestExtractCategory_DetachedMarkerIsJoined(t *testing.T) {
	got, ok := ExtractCategory("흑염소 띠 운세", ZodiacPhrase)
	assert.True(t, ok)
	assert.Equal(t, "흑염소 띠", got)

	_, ok = ExtractCategory("띠운세 보여줘", ZodiacPhrase)
	assert.False(t, ok)
}
