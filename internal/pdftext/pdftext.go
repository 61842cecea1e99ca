// Package pdftext pulls the text layer out of PDF statements, one line per
// visual row, keeping wide horizontal gaps so table columns survive.
package pdftext

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/ledongthuc/pdf"
)

// DefaultChunkSize is the maximum size of a chunk handed to the model.
const DefaultChunkSize = 2000

// ColumnGap is inserted between text runs that are visually far apart.
const ColumnGap = "   "

// Extract returns the document text with pages separated by blank lines.
// A PDF that decodes but holds no text fails with domain.ErrNoReadableText.
func Extract(data []byte) (text string, err error) {
	// The PDF decoder panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("Extract: malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("Extract: open pdf: %w", err)
	}

	var buf strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		page := pageText(p)
		if strings.TrimSpace(page) == "" {
			continue
		}
		buf.WriteString(page)
		buf.WriteString("\n\n")
	}

	text = strings.TrimSpace(buf.String())
	if text == "" {
		return "", domain.ErrNoReadableText
	}
	return text, nil
}

func pageText(p pdf.Page) string {
	rows, err := p.GetTextByRow()
	if err != nil || len(rows) == 0 {
		plain, perr := p.GetPlainText(nil)
		if perr != nil {
			return ""
		}
		return plain
	}

	// PDF y grows upwards; read top to bottom.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position > rows[j].Position })

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		if line := rowText(row.Content); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// rowText joins the runs of one row left to right. Gaps wider than about
// one and a half glyphs become a column gap; smaller gaps a single space.
func rowText(texts []pdf.Text) string {
	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var b strings.Builder
	prevEnd := math.Inf(-1)
	for _, t := range sorted {
		if t.S == "" {
			continue
		}
		if b.Len() > 0 {
			size := t.FontSize
			if size <= 0 {
				size = 8
			}
			gap := t.X - prevEnd
			switch {
			case gap > size*1.5:
				b.WriteString(ColumnGap)
			case gap > size*0.25 && !strings.HasSuffix(b.String(), " ") && !strings.HasPrefix(t.S, " "):
				b.WriteString(" ")
			}
		}
		b.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	return b.String()
}

// Chunk splits text on line boundaries into pieces of at most size bytes.
// A single line longer than size is split on its own, never inside a rune.
func Chunk(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		for len(line) > size {
			flush()
			cut := runeCut(line, size)
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if cur.Len()+len(line)+1 > size {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
	}
	flush()
	return chunks
}

// runeCut returns the largest offset <= n that starts a rune. A rune wider
// than n is kept whole.
func runeCut(s string, n int) int {
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		_, cut = utf8.DecodeRuneInString(s)
	}
	return cut
}
