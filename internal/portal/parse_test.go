package portal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/dhc-order-crawler/internal/crawler"
)

func TestParseCasePage(t *testing.T) {
	html := casePageHTML(" A\u00a0vs\u00a0B ", " Pending ", "12-05-2024",
		orderRowHTML(1, "2023/ORD/1.pdf"),
		orderRowHTML(2, ""),
	)
	page, err := parseCasePage([]byte(html))
	require.NoError(t, err)

	assert.Equal(t, "A vs B", page.parties)
	assert.Equal(t, "Pending", page.status)
	assert.Equal(t, "12-05-2024", page.nextDate)
	require.Len(t, page.rows, 2)

	first := page.rows[0]
	assert.Equal(t, 0, first.index)
	assert.Equal(t, []string{"1", "CS(COMM) 1/2023", "01/01/2024", "", ""}, first.cells)
	assert.True(t, first.hasLink)
	assert.Equal(t, "openOrder('2023/ORD/1.pdf')", first.onclick)

	assert.False(t, page.rows[1].hasLink)
}

func TestParseCasePageNoTable(t *testing.T) {
	page, err := parseCasePage([]byte(casePageHTML("A vs B", "Disposed", "")))
	require.NoError(t, err)
	assert.Empty(t, page.rows)
	assert.Equal(t, "Disposed", page.status)
}

func TestParseCasePageHeaderOnlyTable(t *testing.T) {
	html := casePageHTML("A vs B", "Pending", "", "")
	page, err := parseCasePage([]byte(html))
	require.NoError(t, err)
	assert.Empty(t, page.rows)
}

func TestParseCasePageMalformed(t *testing.T) {
	tests := map[string]string{
		"no headings": `<html><body><p>nothing</p></body></html>`,
		"one heading": `<html><body><h5>A vs B</h5></body></html>`,
		"one span":    `<html><body><h5>A vs B</h5><h5><span>Pending</span></h5></body></html>`,
		"empty body":  ``,
		"no spans":    `<html><body><h5>A vs B</h5><h5>Pending</h5></body></html>`,
	}
	for name, html := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseCasePage([]byte(html))
			require.ErrorIs(t, err, crawler.ErrMalformed)
		})
	}
}

func TestParseOrderRowWithoutOnclick(t *testing.T) {
	html := casePageHTML("A vs B", "Pending", "",
		`<tr><td>1</td><td><a href="/x">CS(COMM) 1/2023</a></td><td>d</td><td>c</td><td>h</td></tr>`)
	page, err := parseCasePage([]byte(html))
	require.NoError(t, err)
	require.Len(t, page.rows, 1)
	assert.False(t, page.rows[0].hasLink)
}

func TestDocumentFilePath(t *testing.T) {
	tests := []struct {
		onclick string
		want    string
		wantErr bool
	}{
		{onclick: "openOrder('2023/ORD/1.pdf')", want: "2023/ORD/1.pdf"},
		{onclick: "fn('a.pdf','b')", want: "a.pdf"},
		{onclick: "fn('unterminated", want: "unterminated"},
		{onclick: "fn()", wantErr: true},
		{onclick: "fn('')", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.onclick, func(t *testing.T) {
			got, err := documentFilePath(tt.onclick)
			if tt.wantErr {
				require.ErrorIs(t, err, crawler.ErrMalformed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
