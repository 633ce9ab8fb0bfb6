package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// ListingRow is one row of a class-listing table: a passenger name
// linking to the individual page, plus the listing's own metadata.
type ListingRow struct {
	Name     string
	URL      string
	AgeText  string
	Hometown string
	Fate     string
	Class    int
}

// Listing parses a class-listing page into its passenger rows. Rows
// with fewer than four cells are skipped; a page without a table is an
// error since it means the page layout changed.
func Listing(html, baseURL string, class int) ([]ListingRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "listing: parse html")
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, eris.New("listing: no table found")
	}

	var rows []ListingRow
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return // header row
		}
		tds := tr.Find("td")
		if tds.Length() < 4 {
			return
		}

		link := tds.Eq(0).Find("a").First()
		name := strings.TrimSpace(link.Text())
		if name == "" {
			name = strings.TrimSpace(tds.Eq(0).Text())
		}
		href, _ := link.Attr("href")

		row := ListingRow{
			Name:     name,
			AgeText:  strings.TrimSpace(tds.Eq(1).Text()),
			Hometown: strings.TrimSpace(tds.Eq(2).Text()),
			Fate:     strings.TrimSpace(tds.Eq(3).Text()),
			Class:    class,
		}
		if href != "" {
			row.URL = baseURL + href
		}
		rows = append(rows, row)
	})

	return rows, nil
}
