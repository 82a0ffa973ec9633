package fetcher

import (
	"fmt"
	"strings"
)

// FormatFortune renders a reading as a header, the summary and one
// "- year\ndesc" entry per birth year.
func FormatFortune(category string, r FortuneReading) string {
	sections := []string{fmt.Sprintf("[%s 오늘의 운세]\n%s", category, r.Summary)}

	if len(r.Years) > 0 {
		entries := make([]string, 0, len(r.Years))
		for _, y := range r.Years {
			entries = append(entries, "- "+y.Year+"\n"+y.Desc)
		}
		sections = append(sections, strings.Join(entries, "\n"))
	}

	return strings.Join(sections, "\n\n")
}

// FormatFortuneUnavailable is the reply when a reading cannot be produced.
func FormatFortuneUnavailable(category string) string {
	return strings.TrimSpace(category + " 운세를 가져올 수 없어요~")
}

// FormatFortuneServerDown is the reply when the fortune endpoint is unreachable.
func FormatFortuneServerDown(category string) string {
	return fmt.Sprintf("[%s] 운세 서버에서 데이터를 받을 수 없습니다.", category)
}
