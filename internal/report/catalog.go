package report

import (
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message/catalog"
)

// Supported lists the languages of the catalog; the first is the fallback.
var Supported = []language.Tag{language.English, language.German}

var (
	messages = build()
	matcher  = language.NewMatcher(Supported)
)

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func build() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	en, de := language.English, language.German

	imported := "Imported %d parts in %d measures: %d notes, %d tuplets.\n"
	must(b.SetString(en, imported, imported))
	must(b.SetString(de, imported, "%d Stimmen in %d Takten importiert: %d Noten, %d N-Tolen.\n"))

	dropped := "%d notes were dropped.\n"
	must(b.Set(en, dropped, plural.Selectf(1, "%d",
		"=1", "One note was dropped.\n",
		"other", "%d notes were dropped.\n")))
	must(b.Set(de, dropped, plural.Selectf(1, "%d",
		"=1", "Eine Note wurde weggelassen.\n",
		"other", "%d Noten wurden weggelassen.\n")))

	overflow := "Measure %d, track %d: a note did not fit into the voices and was left out."
	must(b.SetString(en, overflow, overflow))
	must(b.SetString(de, overflow, "Takt %d, Spur %d: eine Note passte in keine Stimme und wurde weggelassen."))

	across := "Measure %d, track %d: a tuplet would cross the barline and was written plainly."
	must(b.SetString(en, across, across))
	must(b.SetString(de, across, "Takt %d, Spur %d: eine N-Tole würde den Taktstrich überschreiten und wurde gerade notiert."))

	incomplete := "Measure %d is incomplete."
	must(b.SetString(en, incomplete, incomplete))
	must(b.SetString(de, incomplete, "Takt %d ist unvollständig."))
	return b
}
