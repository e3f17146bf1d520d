package portal

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/dhc-order-crawler/internal/crawler"
)

// orderCells is the number of positional columns in an order row.
const orderCells = 5

// casePage is the parsed content of a case detail response.
type casePage struct {
	parties  string
	status   string
	nextDate string
	rows     []orderRow
}

// orderRow is one data row of the orders table, captured before any
// document work so extraction never touches the shared document.
type orderRow struct {
	index   int
	cells   []string
	hasLink bool
	onclick string
}

func parseCasePage(body []byte) (casePage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return casePage{}, fmt.Errorf("parse case page: %w: %w", crawler.ErrMalformed, err)
	}

	headings := doc.Find("h5")
	if headings.Length() < 2 {
		return casePage{}, fmt.Errorf("%w: found %d of 2 headings", crawler.ErrMalformed, headings.Length())
	}
	spans := headings.Eq(1).Find("span")
	if spans.Length() < 2 {
		return casePage{}, fmt.Errorf("%w: status heading has %d of 2 fields", crawler.ErrMalformed, spans.Length())
	}

	page := casePage{
		parties:  normalizeSpace(headings.Eq(0).Text()),
		status:   strings.TrimSpace(spans.Eq(0).Text()),
		nextDate: strings.TrimSpace(spans.Eq(1).Text()),
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return page, nil
	}
	trs := table.Find("tr")
	if trs.Length() < 2 {
		return page, nil
	}
	trs.Slice(1, goquery.ToEnd).Each(func(i int, tr *goquery.Selection) {
		page.rows = append(page.rows, parseOrderRow(i, tr))
	})
	return page, nil
}

func parseOrderRow(index int, tr *goquery.Selection) orderRow {
	tds := tr.Find("td")
	row := orderRow{index: index, cells: make([]string, 0, tds.Length())}
	tds.Each(func(_ int, td *goquery.Selection) {
		row.cells = append(row.cells, strings.TrimSpace(td.Text()))
	})
	if tds.Length() > 1 {
		if link := tds.Eq(1).Find("a").First(); link.Length() > 0 {
			if onclick, ok := link.Attr("onclick"); ok && onclick != "" {
				row.hasLink = true
				row.onclick = onclick
			}
		}
	}
	return row
}

// normalizeSpace trims s and turns non-breaking spaces into plain ones.
func normalizeSpace(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
}

// documentFilePath pulls the first single-quoted argument out of a link's
// onclick handler, e.g. `openFile('2023/ORD/1.pdf')`.
func documentFilePath(onclick string) (string, error) {
	parts := strings.Split(onclick, "'")
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("%w: no quoted file path in %q", crawler.ErrMalformed, onclick)
	}
	return parts[1], nil
}
