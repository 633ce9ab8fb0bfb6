// Package extract parses Encyclopedia Titanica pages into passenger
// records. Parsing is best-effort: a missing section yields an empty
// field and a diagnostic note, never an error, so one malformed page
// cannot stop the pipeline.
package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/titanic-linkage/internal/model"
	"github.com/sells-group/titanic-linkage/internal/normalize"
)

// BiographyLimit caps stored biography length; longer text is cut and
// marked.
const BiographyLimit = 5000

const truncationMarker = " ... [truncated]"

var (
	ticketRe   = regexp.MustCompile(`Ticket No\.?\s*([^\s,]+)`)
	fareRe     = regexp.MustCompile(`£[0-9]+(?: [0-9]+s)?(?: [0-9]+d)?`)
	boatRe     = regexp.MustCompile(`(?i)boat\s*(\d+)`)
	classMarks = map[string]int{"1st": 1, "2nd": 2, "3rd": 3}
)

// Page parses one individual passenger page. The returned record is
// always complete: fields whose section is absent stay empty and the
// absence is noted in ExtractionNotes.
func Page(html string) model.Passenger {
	p := model.Passenger{Source: model.SourceEncyclopedia}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		note(&p, "Unparseable HTML: "+err.Error()+".")
		return p
	}

	summary := doc.Find("div#summary").First()
	if summary.Length() == 0 {
		note(&p, "Missing summary section.")
	} else {
		parseSummary(&p, summary)
	}
	parseBiography(&p, doc)
	parsePhoto(&p, summary, doc)

	imputeMaritalStatus(&p)
	return p
}

func parseSummary(p *model.Passenger, summary *goquery.Selection) {
	title := strings.TrimSpace(summary.Find(`span[itemprop="honorificPrefix"]`).First().Text())
	given := strings.TrimSpace(summary.Find(`span[itemprop="givenName"]`).First().Text())
	family := strings.TrimSpace(summary.Find(`span[itemprop="familyName"]`).First().Text())
	if family != "" {
		p.FullName = family
		if title != "" || given != "" {
			p.FullName += ", " + strings.TrimSpace(title+" "+given)
		}
	} else {
		note(p, "Name spans missing.")
	}

	summaryHTML, _ := summary.Html()
	for mark, class := range classMarks {
		if strings.Contains(summaryHTML, mark+" Class Passengers") {
			p.Pclass = class
			break
		}
	}
	if p.Pclass == 0 {
		note(p, "Class marker missing.")
	}

	if summary.Find(`a[href*="titanic-survivors"]`).Length() > 0 {
		p.Survived = model.Bool(true)
	} else if summary.Find(`a[href*="titanic-victims"]`).Length() > 0 {
		p.Survived = model.Bool(false)
	} else {
		note(p, "Survival status missing.")
	}

	parseAgeAndSex(p, summary)
	parseTicketAndFare(p, summary)
	parseLabeledFields(p, summary)
}

// labeledDiv finds the summary div whose <strong> heading contains the
// given label text.
func labeledDiv(summary *goquery.Selection, label string) *goquery.Selection {
	var found *goquery.Selection
	summary.Find("div").EachWithBreak(func(_ int, div *goquery.Selection) bool {
		if strings.Contains(div.Find("strong").First().Text(), label) {
			found = div
			return false
		}
		return true
	})
	return found
}

func parseAgeAndSex(p *model.Passenger, summary *goquery.Selection) {
	div := labeledDiv(summary, "Age")
	if div == nil {
		note(p, "Age section missing.")
		return
	}
	if link := div.Find("a").First(); link.Length() > 0 {
		p.AgeText = strings.TrimSpace(link.Text())
		p.Age = normalize.ConvertAge(p.AgeText)
	}
	sex := strings.ToLower(strings.TrimSpace(div.Find(`span[itemprop="gender"]`).First().Text()))
	if sex == "male" || sex == "female" {
		p.Sex = sex
	}
}

func parseTicketAndFare(p *model.Passenger, summary *goquery.Selection) {
	div := labeledDiv(summary, "Ticket No")
	if div == nil {
		note(p, "Ticket section missing.")
		return
	}
	text := strings.TrimSpace(div.Text())
	if m := ticketRe.FindStringSubmatch(text); m != nil {
		p.Ticket = m[1]
	}
	if m := fareRe.FindString(text); m != "" {
		p.FareText = m
	}
}

func parseLabeledFields(p *model.Passenger, summary *goquery.Selection) {
	if div := labeledDiv(summary, "Cabin No"); div != nil {
		p.Cabin = strings.TrimSpace(div.Find("span").First().Text())
	}
	if div := labeledDiv(summary, "Embarked"); div != nil {
		p.Embarked = strings.TrimSpace(div.Find("a").First().Text())
	}
	if div := labeledDiv(summary, "Rescued"); div != nil {
		if m := boatRe.FindStringSubmatch(strings.TrimSpace(div.Find("a").First().Text())); m != nil {
			p.Boat = m[1]
		}
	}
	if div := labeledDiv(summary, "Body"); div != nil {
		p.BodyText = collapseSpace(div.Text())
	}

	var homeParts []string
	if div := labeledDiv(summary, "Last Residence"); div != nil {
		if v := strings.TrimSpace(div.Find("a").First().Text()); v != "" {
			homeParts = append(homeParts, v)
		}
	}
	if div := labeledDiv(summary, "Destination"); div != nil {
		if v := strings.TrimSpace(div.Find("a").First().Text()); v != "" {
			homeParts = append(homeParts, v)
		}
	}
	p.HomeDest = strings.Join(homeParts, " / ")

	if div := labeledDiv(summary, "Nationality"); div != nil {
		p.Nationality = strings.TrimSpace(div.Find(`span[itemprop="nationality"]`).First().Text())
	}
	if div := labeledDiv(summary, "Marital Status"); div != nil {
		if a := div.Find("a").First(); a.Length() > 0 {
			p.MaritalStatus = strings.TrimSpace(a.Text())
		} else {
			p.MaritalStatus = strings.TrimSpace(strings.ReplaceAll(div.Text(), "Marital Status", ""))
		}
	}
	if div := labeledDiv(summary, "Occupation"); div != nil {
		if span := div.Find(`span[itemprop="jobTitle"]`); span.Length() > 0 {
			p.Occupation = strings.TrimSpace(span.First().Text())
		} else {
			p.Occupation = strings.TrimSpace(strings.ReplaceAll(div.Text(), "Occupation", ""))
		}
	}
}

func parseBiography(p *model.Passenger, doc *goquery.Document) {
	bio := doc.Find("div#biography").First()
	if bio.Length() == 0 {
		bio = doc.Find("div.biosection").First()
	}
	if bio.Length() == 0 {
		bio = doc.Find("div.biography").First()
	}
	if bio.Length() == 0 {
		note(p, "Biography missing.")
		return
	}

	var paragraphs []string
	bio.Find("p").Each(func(_ int, para *goquery.Selection) {
		if text := collapseSpace(para.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	text := strings.Join(paragraphs, "\n\n")
	if len(text) > BiographyLimit {
		cut := BiographyLimit
		// Back up to a rune boundary so the cut never splits a multi-byte character.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + truncationMarker
	}
	p.Biography = &text
}

func parsePhoto(p *model.Passenger, summary *goquery.Selection, doc *goquery.Document) {
	img := summary.Find("img").First()
	if img.Length() == 0 {
		img = doc.Find("div#biography img, div.biosection img, div.biography img").First()
	}
	src, ok := img.Attr("src")
	if !ok || src == "" {
		return
	}
	if strings.HasPrefix(src, "/") {
		src = "https://www.encyclopedia-titanica.org" + src
	}
	p.PhotoURL = src
}

// imputeMaritalStatus applies the explicit imputation rule: a missing
// status means "Child" for ages 13 and under, "Unknown" otherwise.
func imputeMaritalStatus(p *model.Passenger) {
	if p.MaritalStatus != "" {
		return
	}
	if p.Age != nil && *p.Age <= 13 {
		p.MaritalStatus = "Child"
		return
	}
	p.MaritalStatus = "Unknown"
}

func note(p *model.Passenger, msg string) {
	if p.ExtractionNotes != "" {
		p.ExtractionNotes += " "
	}
	p.ExtractionNotes += msg
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
