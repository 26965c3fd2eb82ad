package normaliser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inklet-labs/inklet/internal/core/domain"
)

// buildPagedInput joins page texts with known offsets and returns the
// raw input plus its boundary table.
func buildPagedInput(pages ...string) (string, []domain.PageBoundary) {
	var b strings.Builder
	var bounds []domain.PageBoundary
	for i, p := range pages {
		bounds = append(bounds, domain.PageBoundary{Number: i + 1, StartOffset: b.Len()})
		b.WriteString(p)
	}
	return b.String(), bounds
}

func TestNormalise_EmptyInput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty string", ""},
		{"whitespace only", "   \n\t  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalise(tt.raw, nil, Config{})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrEmptySource)
		})
	}
}

func TestNormalise_CollapsesWhitespace(t *testing.T) {
	res, err := Normalise("too   many\tspaces   here", nil, Config{})

	require.NoError(t, err)
	assert.Equal(t, "too many spaces here", res.Text)
}

func TestNormalise_ReflowsParagraphs(t *testing.T) {
	raw := "First line of a paragraph\ncontinues on the next line.\n\nSecond paragraph stands alone."

	res, err := Normalise(raw, nil, Config{})

	require.NoError(t, err)
	assert.Equal(t, "First line of a paragraph continues on the next line.\n\nSecond paragraph stands alone.", res.Text)
}

func TestNormalise_NFKC(t *testing.T) {
	// Ligature fi and fullwidth A normalise to their compatibility forms.
	res, err := Normalise("ﬁle named Ａ", nil, Config{})

	require.NoError(t, err)
	assert.Equal(t, "file named A", res.Text)
}

func TestNormalise_InvalidUTF8Replaced(t *testing.T) {
	raw := "broken \xff\xfe byte pair"

	res, err := Normalise(raw, nil, Config{})

	require.NoError(t, err)
	assert.Equal(t, 2, res.ReplacedBytes)
	assert.Contains(t, res.Text, "�")
}

func TestNormalise_ExtractsShortTitle(t *testing.T) {
	res, err := Normalise("Sourdough Basics\n\nThe body of the note follows here.", nil, Config{})

	require.NoError(t, err)
	assert.Equal(t, "Sourdough Basics", res.Title)
}

func TestNormalise_LongFirstParagraphIsNotATitle(t *testing.T) {
	first := strings.Repeat("word ", 30)
	res, err := Normalise(first+"\n\nsecond paragraph", nil, Config{})

	require.NoError(t, err)
	assert.Empty(t, res.Title)
}

func TestNormalise_StripsPageNumberLines(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"bare number", "42"},
		{"dashed number", "- 42 -"},
		{"page n", "Page 7"},
		{"page n of m", "Page 7 of 12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := "Real content before.\n" + tt.line + "\nReal content after."

			res, err := Normalise(raw, nil, Config{})

			require.NoError(t, err)
			assert.NotContains(t, res.Text, strings.TrimSpace(tt.line))
			require.Len(t, res.Removed, 1)
			assert.Equal(t, "page-number", res.Removed[0].Reason)
			assert.Equal(t, tt.line, res.Removed[0].Text)
		})
	}
}

func TestNormalise_KeepsNumbersInsideProse(t *testing.T) {
	res, err := Normalise("The recipe needs 42 grams of flour.", nil, Config{})

	require.NoError(t, err)
	assert.Contains(t, res.Text, "42 grams")
	assert.Empty(t, res.Removed)
}

func TestNormalise_StripsRecurringHeaders(t *testing.T) {
	words := []string{"revenue", "expenses", "forecast", "headcount"}
	var pageTexts []string
	for _, w := range words {
		pageTexts = append(pageTexts, fmt.Sprintf("ACME Quarterly Report\n\nDetailed %s discussion with substance.\n", w))
	}
	raw, pages := buildPagedInput(pageTexts...)

	res, err := Normalise(raw, pages, Config{})

	require.NoError(t, err)
	assert.NotContains(t, res.Text, "ACME Quarterly Report")
	headers := 0
	for _, r := range res.Removed {
		if r.Reason == "header" {
			headers++
		}
	}
	assert.Equal(t, 4, headers)
}

func TestNormalise_HeaderKeyMasksDigits(t *testing.T) {
	// "Chapter N" varies per page but recurs once digits are masked.
	words := []string{"yeast", "flour", "water"}
	var pageTexts []string
	for i, w := range words {
		pageTexts = append(pageTexts, fmt.Sprintf("Chapter %d\n\nEverything about %s in depth.\n", i+1, w))
	}
	raw, pages := buildPagedInput(pageTexts...)

	res, err := Normalise(raw, pages, Config{})

	require.NoError(t, err)
	assert.NotContains(t, res.Text, "Chapter")
}

func TestNormalise_FewPagesKeepHeaders(t *testing.T) {
	// Two pages cannot satisfy the default recurrence threshold.
	raw, pages := buildPagedInput(
		"ACME Report\n\nFirst page body.\n",
		"ACME Report\n\nSecond page body.\n",
	)

	res, err := Normalise(raw, pages, Config{})

	require.NoError(t, err)
	assert.Contains(t, res.Text, "ACME Report")
}

func TestNormalise_RecurringBodyLineSurvives(t *testing.T) {
	// The recurring line sits mid-page, outside the header zones.
	var pageTexts []string
	for i := 0; i < 4; i++ {
		pageTexts = append(pageTexts, "Opening line of the page.\n\nNote: see appendix.\n\nMore body text.\n\nClosing line of this page.\n")
	}
	raw, pages := buildPagedInput(pageTexts...)

	res, err := Normalise(raw, pages, Config{})

	require.NoError(t, err)
	assert.Contains(t, res.Text, "Note: see appendix.")
}

func TestNormalise_PageTableRemapped(t *testing.T) {
	raw, pages := buildPagedInput(
		"First page paragraph.\n",
		"Second page paragraph.\n",
		"Third page paragraph.\n",
	)

	res, err := Normalise(raw, pages, Config{})

	require.NoError(t, err)
	require.Len(t, res.Pages, 3)
	for i, pb := range res.Pages {
		assert.Equal(t, i+1, pb.Number)
	}
	// Each boundary must point at its page's first paragraph.
	assert.Equal(t, 0, res.Pages[0].StartOffset)
	assert.Equal(t, "Second", res.Text[res.Pages[1].StartOffset:res.Pages[1].StartOffset+6])
	assert.Equal(t, "Third", res.Text[res.Pages[2].StartOffset:res.Pages[2].StartOffset+5])
}

func TestNormalise_NoPageTableMeansNoPages(t *testing.T) {
	res, err := Normalise("Just a note.", nil, Config{})

	require.NoError(t, err)
	assert.Nil(t, res.Pages)
}

func TestNormalise_Deterministic(t *testing.T) {
	raw, pages := buildPagedInput(
		"Header Line\n\nPage one content.\n1\n",
		"Header Line\n\nPage two content.\n2\n",
		"Header Line\n\nPage three content.\n3\n",
	)

	first, err := Normalise(raw, pages, Config{})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		again, err := Normalise(raw, pages, Config{})
		require.NoError(t, err)
		assert.Equal(t, first.Text, again.Text)
		assert.Equal(t, first.Pages, again.Pages)
		assert.Equal(t, first.Removed, again.Removed)
	}
}

func TestNormalise_RemovedSpansCarryRawOffsets(t *testing.T) {
	raw := "Intro paragraph.\n42\nOutro paragraph."

	res, err := Normalise(raw, nil, Config{})

	require.NoError(t, err)
	require.Len(t, res.Removed, 1)
	span := res.Removed[0]
	assert.Equal(t, "42", raw[span.Offset:span.Offset+len(span.Text)])
}

func TestHeaderKey(t *testing.T) {
	assert.Equal(t, headerKey("Chapter 3"), headerKey("Chapter  12"))
	assert.Equal(t, "", headerKey("   \t"))
	assert.NotEqual(t, headerKey("Introduction"), headerKey("Conclusion"))
}
