package extract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html><body>
<div id="summary">
  <a href="/titanic-first-class-passengers/">1st Class Passengers</a>
  <div>
    <span itemprop="honorificPrefix">Mr</span>
    <span itemprop="givenName">Owen Harris</span>
    <span itemprop="familyName">Braund</span>
  </div>
  <div><strong>Age:</strong> <a href="/ages/22">22</a>
    <span itemprop="gender">Male</span></div>
  <div><strong>Ticket No.</strong> A/5-21171, £7 5s</div>
  <div><strong>Cabin No.</strong> <span>F33</span></div>
  <div><strong>Embarked:</strong> <a href="/southampton">Southampton</a></div>
  <div><strong>Last Residence:</strong> in <a href="/bridgerule">Bridgerule</a></div>
  <div><strong>Nationality:</strong> <span itemprop="nationality">English</span></div>
  <div><strong>Occupation:</strong> <span itemprop="jobTitle">Farmer</span></div>
  <a href="/titanic-victims/">Victims</a>
</div>
<div id="biography">
  <p>Owen Harris Braund was born in Bridgerule, Devon.</p>
  <p>He boarded the Titanic at Southampton.</p>
</div>
</body></html>`

func TestPage_FullRecord(t *testing.T) {
	p := Page(samplePage)

	assert.Equal(t, "Braund, Mr Owen Harris", p.FullName)
	assert.Equal(t, 1, p.Pclass)
	assert.Equal(t, "male", p.Sex)
	require.NotNil(t, p.Age)
	assert.InDelta(t, 22.0, *p.Age, 1e-9)
	assert.Equal(t, "A/5-21171", p.Ticket)
	assert.Equal(t, "£7 5s", p.FareText)
	assert.Equal(t, "F33", p.Cabin)
	assert.Equal(t, "Southampton", p.Embarked)
	assert.Equal(t, "Bridgerule", p.HomeDest)
	assert.Equal(t, "English", p.Nationality)
	assert.Equal(t, "Farmer", p.Occupation)
	require.NotNil(t, p.Survived)
	assert.False(t, *p.Survived)
	require.NotNil(t, p.Biography)
	assert.Contains(t, *p.Biography, "born in Bridgerule")
	assert.Contains(t, *p.Biography, "\n\n")
	assert.Equal(t, "Unknown", p.MaritalStatus)
}

func TestPage_MissingBiography(t *testing.T) {
	html := strings.Replace(samplePage, `id="biography"`, `id="elsewhere"`, 1)
	p := Page(html)

	assert.Nil(t, p.Biography)
	assert.Contains(t, p.ExtractionNotes, "Biography missing")
}

func TestPage_MissingSummary(t *testing.T) {
	p := Page(`<html><body><div id="biography"><p>Just a bio.</p></div></body></html>`)

	assert.Contains(t, p.ExtractionNotes, "Missing summary section")
	assert.Empty(t, p.FullName)
	assert.Equal(t, 0, p.Pclass)
	require.NotNil(t, p.Biography)
	assert.Equal(t, "Just a bio.", *p.Biography)
}

func TestPage_AgeInMonths(t *testing.T) {
	html := strings.Replace(samplePage, `<a href="/ages/22">22</a>`, `<a href="/ages/9m">9m</a>`, 1)
	p := Page(html)
	require.NotNil(t, p.Age)
	assert.InDelta(t, 0.75, *p.Age, 1e-9)
	assert.Equal(t, "9m", p.AgeText)
}

func TestPage_ChildImputation(t *testing.T) {
	html := strings.Replace(samplePage, `<a href="/ages/22">22</a>`, `<a href="/ages/4">4</a>`, 1)
	p := Page(html)
	assert.Equal(t, "Child", p.MaritalStatus)
}

func TestPage_SurvivorLink(t *testing.T) {
	html := strings.Replace(samplePage, "titanic-victims", "titanic-survivors", 1)
	p := Page(html)
	require.NotNil(t, p.Survived)
	assert.True(t, *p.Survived)
}

func TestPage_BiographyTruncated(t *testing.T) {
	long := strings.Repeat("All work and no play makes a dull biography. ", 200)
	html := strings.Replace(samplePage, "He boarded the Titanic at Southampton.", long, 1)
	p := Page(html)
	require.NotNil(t, p.Biography)
	assert.LessOrEqual(t, len(*p.Biography), BiographyLimit+len(truncationMarker))
	assert.True(t, strings.HasSuffix(*p.Biography, truncationMarker))
}

func TestPage_BiographyTruncatedOnRuneBoundary(t *testing.T) {
	// An "é" straddles the byte limit; the cut must not leave a partial rune.
	long := strings.Repeat("a", BiographyLimit-1) + strings.Repeat("é", 20)
	html := `<html><body><div id="biography"><p>` + long + `</p></div></body></html>`
	p := Page(html)

	require.NotNil(t, p.Biography)
	assert.True(t, utf8.ValidString(*p.Biography))
	require.True(t, strings.HasSuffix(*p.Biography, truncationMarker))
	body := strings.TrimSuffix(*p.Biography, truncationMarker)
	assert.Equal(t, strings.Repeat("a", BiographyLimit-1), body)
}

func TestPage_GarbageInput(t *testing.T) {
	p := Page("<<<< not really html >>>>")
	assert.Contains(t, p.ExtractionNotes, "Missing summary section")
}

const sampleListing = `<html><body><table>
<tr><th>Name</th><th>Age</th><th>Hometown</th><th>Fate</th></tr>
<tr>
  <td><a href="/titanic-victim/owen-harris-braund.html">BRAUND, Mr Owen Harris</a></td>
  <td>22</td><td>Bridgerule, Devon</td><td>†</td>
</tr>
<tr>
  <td><a href="/titanic-survivor/eva-miriam-hart.html">HART, Miss Eva Miriam</a></td>
  <td>7</td><td>Ilford, Essex</td><td>Saved</td>
</tr>
<tr><td>short row</td></tr>
</table></body></html>`

func TestListing_Rows(t *testing.T) {
	rows, err := Listing(sampleListing, "https://www.encyclopedia-titanica.org", 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "BRAUND, Mr Owen Harris", rows[0].Name)
	assert.Equal(t, "https://www.encyclopedia-titanica.org/titanic-victim/owen-harris-braund.html", rows[0].URL)
	assert.Equal(t, "22", rows[0].AgeText)
	assert.Equal(t, "Bridgerule, Devon", rows[0].Hometown)
	assert.Equal(t, 2, rows[0].Class)

	assert.Equal(t, "HART, Miss Eva Miriam", rows[1].Name)
	assert.Equal(t, "7", rows[1].AgeText)
}

func TestListing_NoTable(t *testing.T) {
	_, err := Listing("<html><body><p>layout changed</p></body></html>", "https://example.org", 1)
	assert.Error(t, err)
}
