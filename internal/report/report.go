// Package report writes the diagnostics of an import for people to read.
package report

import (
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/jeandeaual/go-locale"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/divVerent/midinotate/internal/transcribe"
)

// Summary counts what an import produced.
type Summary struct {
	Parts    int `json:"parts"`
	Measures int `json:"measures"`
	Notes    int `json:"notes"`
	Tuplets  int `json:"tuplets"`
	Dropped  int `json:"dropped"`
}

// Summarize counts notes by their events, so tied pieces count once.
func Summarize(s *transcribe.Score) Summary {
	sum := Summary{Parts: len(s.Parts), Measures: len(s.Bars)}
	for _, p := range s.Parts {
		sum.Tuplets += len(p.Tuplets)
		events := map[int]bool{}
		for _, st := range p.Staves {
			for _, m := range st.Measures {
				for _, v := range m.Voices {
					for _, e := range v.Elements {
						if e.Kind == transcribe.NoteElement {
							events[e.Event] = true
						}
					}
				}
			}
		}
		sum.Notes += len(events)
	}
	for _, d := range s.AllDiagnostics() {
		if d.Kind == transcribe.VoiceOverflow {
			sum.Dropped++
		}
	}
	return sum
}

// Languages returns the languages of the environment, most specific first, always including English.
func Languages(logger *log.Logger) []language.Tag {
	var tags []language.Tag
	locs, err := locale.GetLocales()
	if err != nil && logger != nil {
		logger.Warn("could not detect locales, working without", "err", err)
	}
	for _, loc := range locs {
		lang, err := language.Parse(loc)
		if err != nil {
			continue
		}
		for lang != language.Und {
			if !slices.Contains(tags, lang) {
				tags = append(tags, lang)
			}
			lang = lang.Parent()
		}
	}
	if !slices.Contains(tags, language.English) {
		tags = append(tags, language.English)
	}
	return tags
}

// Reporter prints in one language.
type Reporter struct {
	Language language.Tag
	printer  *message.Printer
}

// New picks the best supported language for the preferences.
func New(prefs ...language.Tag) *Reporter {
	tag := Supported[0]
	if len(prefs) > 0 {
		_, i, _ := matcher.Match(prefs...)
		tag = Supported[i]
	}
	return &Reporter{
		Language: tag,
		printer:  message.NewPrinter(tag, message.Catalog(messages)),
	}
}

func (r *Reporter) line(d transcribe.Diagnostic) string {
	switch d.Kind {
	case transcribe.VoiceOverflow:
		return r.printer.Sprintf("Measure %d, track %d: a note did not fit into the voices and was left out.", d.Measure, d.Track)
	case transcribe.TupletAcrossBarline:
		return r.printer.Sprintf("Measure %d, track %d: a tuplet would cross the barline and was written plainly.", d.Measure, d.Track)
	case transcribe.IncompleteMeasure:
		return r.printer.Sprintf("Measure %d is incomplete.", d.Measure)
	default:
		return d.Message
	}
}

// Write prints the summary of s followed by one line per diagnostic.
func (r *Reporter) Write(w io.Writer, s *transcribe.Score) error {
	sum := Summarize(s)
	if _, err := r.printer.Fprintf(w, "Imported %d parts in %d measures: %d notes, %d tuplets.\n", sum.Parts, sum.Measures, sum.Notes, sum.Tuplets); err != nil {
		return fmt.Errorf("could not write report: %w", err)
	}
	if sum.Dropped > 0 {
		if _, err := r.printer.Fprintf(w, "%d notes were dropped.\n", sum.Dropped); err != nil {
			return fmt.Errorf("could not write report: %w", err)
		}
	}
	for _, d := range s.AllDiagnostics() {
		if _, err := fmt.Fprintln(w, r.line(d)); err != nil {
			return fmt.Errorf("could not write report: %w", err)
		}
	}
	return nil
}
