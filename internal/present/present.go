// Package present renders a merged place record for output.
//
// Display and Format produce the paragraph lines handed to a note renderer:
// Display shows the image as a link, Format embeds it as a Markdown image.
// HTML renders the same lines as <p> fragments. JSON and YAML emit a single
// structured document.
package present

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/osmlookup/internal/model"
	"gopkg.in/yaml.v3"
)

// Mode selects the output form
type Mode int

const (
	Display Mode = iota
	Format
	HTML
	JSON
	YAML
)

var modeNames = map[Mode]string{
	Display: "display",
	Format:  "format",
	HTML:    "html",
	JSON:    "json",
	YAML:    "yaml",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode converts a mode name into a Mode
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown output mode %q (want display, format, html, json or yaml)", s)
}

// Labels of the rendered lines
const (
	labelName         = "Nom"
	labelOpeningHours = "Heures d'ouverture"
	labelWebsite      = "Website"
	labelURL          = "URL"
	labelWikipedia    = "Wikipedia"
	labelImage        = "Images"
)

// DefaultWikipediaLanguage is used for wikipedia tags without a language prefix
const DefaultWikipediaLanguage = "fr"

// Presenter renders records. It holds no state besides its settings.
type Presenter struct {
	wikipediaLanguage string
}

// New creates a presenter; an empty language selects DefaultWikipediaLanguage
func New(wikipediaLanguage string) *Presenter {
	if wikipediaLanguage == "" {
		wikipediaLanguage = DefaultWikipediaLanguage
	}
	return &Presenter{wikipediaLanguage: wikipediaLanguage}
}

// Render renders rec in the given mode
func (p *Presenter) Render(rec model.CanonicalRecord, mode Mode) ([]string, error) {
	switch mode {
	case Display, Format:
		return p.Lines(rec, mode), nil
	case HTML:
		return p.HTML(rec)
	case JSON:
		out, err := json.MarshalIndent(p.document(rec), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal json: %w", err)
		}
		return []string{string(out)}, nil
	case YAML:
		out, err := yaml.Marshal(p.document(rec))
		if err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		return []string{strings.TrimRight(string(out), "\n")}, nil
	default:
		return nil, fmt.Errorf("unsupported output mode %s", mode)
	}
}

// Lines renders rec as paragraph lines. Name comes first, then one line per
// non-empty field in the order opening hours, website, url, wikipedia, image.
// Any mode other than Format renders as Display.
func (p *Presenter) Lines(rec model.CanonicalRecord, mode Mode) []string {
	var lines []string

	if rec.Name != "" {
		lines = append(lines, labelName+" : "+rec.Name)
	}
	if rec.OpeningHours != "" {
		lines = append(lines, labelOpeningHours+" : "+rec.OpeningHours)
	}
	if rec.Website != "" {
		lines = append(lines, link(labelWebsite, rec.Website))
	}
	if rec.URL != "" {
		lines = append(lines, link(labelURL, rec.URL))
	}
	if rec.Wikipedia != "" {
		lines = append(lines, link(labelWikipedia, WikipediaURL(rec.Wikipedia, p.wikipediaLanguage)))
	}
	if rec.Image != "" {
		if mode == Format {
			lines = append(lines, fmt.Sprintf("![%s](%s)", rec.Name, rec.Image))
		} else {
			lines = append(lines, link(labelImage, rec.Image))
		}
	}

	return lines
}

func link(label, target string) string {
	return label + " : <" + target + ">"
}

var languageCode = regexp.MustCompile(`^[a-z]{2,3}(-[a-z]+)*$|^simple$`)

// WikipediaURL turns a wikipedia tag ("fr:Tour Eiffel") into an article
// URL. The tag is split on its first ':'; a language-like prefix selects
// the wiki, otherwise defaultLanguage is used. Spaces in the title are
// encoded as %20.
func WikipediaURL(tag, defaultLanguage string) string {
	if defaultLanguage == "" {
		defaultLanguage = DefaultWikipediaLanguage
	}

	lang, title := defaultLanguage, tag
	if prefix, rest, found := strings.Cut(tag, ":"); found {
		prefix = strings.ToLower(strings.TrimSpace(prefix))
		switch {
		case prefix == "":
			title = rest
		case languageCode.MatchString(prefix):
			lang, title = prefix, rest
		}
	}

	title = strings.ReplaceAll(strings.TrimSpace(title), " ", "%20")
	return "https://" + lang + ".wikipedia.org/wiki/" + title
}

// document is the structured form of a record for JSON and YAML output
type document struct {
	model.CanonicalRecord `yaml:",inline"`
	WikipediaURL          string `json:"wikipedia_url,omitempty" yaml:"wikipedia_url,omitempty"`
}

func (p *Presenter) document(rec model.CanonicalRecord) document {
	doc := document{CanonicalRecord: rec}
	if rec.Wikipedia != "" {
		doc.WikipediaURL = WikipediaURL(rec.Wikipedia, p.wikipediaLanguage)
	}
	return doc
}
