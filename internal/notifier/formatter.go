package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"StockScanner/internal/scan"
)

const (
	// MaxMessageLen keeps messages under the Bot API limit of 4096 characters.
	MaxMessageLen = 4000
	// MaxRows bounds the lines listed per report.
	MaxRows = 30
)

// FormatReport renders a batch report as a Telegram HTML message.
func FormatReport(job string, r *scan.Report) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>%s</b> | %s\n", html.EscapeString(job), r.FinishedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Tarama: %s | %d sembol | %d sonuç\n", html.EscapeString(r.Kind), r.Scanned, r.Len()))
	if r.Cancelled {
		b.WriteString("⚠️ Tarama iptal edildi, sonuçlar kısmi\n")
	}
	b.WriteString("\n")

	switch {
	case len(r.Matches) > 0:
		writeMatches(&b, r)
	case len(r.Scores) > 0:
		writeScores(&b, r)
	case len(r.Hits) > 0:
		writeHits(&b, r)
	default:
		b.WriteString("Eşleşen hisse yok.\n")
	}

	if n := len(r.Failures); n > 0 {
		insufficient := 0
		for _, f := range r.Failures {
			if f.Insufficient {
				insufficient++
			}
		}
		b.WriteString(fmt.Sprintf("\n❗ Atlanan: %d (yetersiz veri: %d)\n", n, insufficient))
	}
	return b.String()
}

func writeMatches(b *strings.Builder, r *scan.Report) {
	for i, m := range r.Matches {
		if i == MaxRows {
			b.WriteString(fmt.Sprintf("… ve %d hisse daha\n", len(r.Matches)-MaxRows))
			break
		}
		b.WriteString(fmt.Sprintf("• <b>%s</b>", html.EscapeString(m.Symbol)))
		if c, ok := m.Snapshot["close"]; ok {
			b.WriteString(fmt.Sprintf(" %.2f", c))
		}
		if m.SortKey != 0 {
			b.WriteString(fmt.Sprintf(" | skor %.2f", m.SortKey))
		}
		if len(m.Labels) > 0 {
			keys := make([]string, 0, len(m.Labels))
			for k := range m.Labels {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				b.WriteString(fmt.Sprintf(" | %s=%s", html.EscapeString(k), html.EscapeString(m.Labels[k])))
			}
		}
		b.WriteString("\n")
	}
}

func writeScores(b *strings.Builder, r *scan.Report) {
	for i, s := range r.Scores {
		if i == MaxRows {
			b.WriteString(fmt.Sprintf("… ve %d hisse daha\n", len(r.Scores)-MaxRows))
			break
		}
		b.WriteString(fmt.Sprintf("%d. <b>%s</b> %d/30 (T:%d Tk:%d) %s\n",
			i+1, html.EscapeString(s.Symbol), s.Score, s.FundamentalPoints, s.TechnicalPoints, s.Recommendation))
	}
}

func writeHits(b *strings.Builder, r *scan.Report) {
	for i, h := range r.Hits {
		if i == MaxRows {
			b.WriteString(fmt.Sprintf("… ve %d hisse daha\n", len(r.Hits)-MaxRows))
			break
		}
		name := h.Fundamentals.Name
		if name == "" {
			name = h.Symbol
		}
		b.WriteString(fmt.Sprintf("%d. <b>%s</b> %s | %.2f\n",
			i+1, html.EscapeString(h.Symbol), html.EscapeString(name), h.SortKey))
	}
}

// Split cuts text at line boundaries into chunks of at most limit bytes.
// A single line longer than limit is cut hard.
func Split(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if cur.Len() > 0 {
				chunks = append(chunks, cur.String())
				cur.Reset()
			}
			chunks = append(chunks, line[:limit])
			line = line[limit:]
		}
		if cur.Len()+len(line) > limit {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
