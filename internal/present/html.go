package present

import (
	"fmt"
	"strings"

	"github.com/ppiankov/osmlookup/internal/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTML renders rec as one <p> fragment per line, with links as anchors
// and the image as an <img>. All text and attributes are escaped.
func (p *Presenter) HTML(rec model.CanonicalRecord) ([]string, error) {
	var paragraphs []*html.Node

	if rec.Name != "" {
		paragraphs = append(paragraphs, paragraph(labelName+" : ", text(rec.Name)))
	}
	if rec.OpeningHours != "" {
		paragraphs = append(paragraphs, paragraph(labelOpeningHours+" : ", text(rec.OpeningHours)))
	}
	if rec.Website != "" {
		paragraphs = append(paragraphs, paragraph(labelWebsite+" : ", anchor(rec.Website)))
	}
	if rec.URL != "" {
		paragraphs = append(paragraphs, paragraph(labelURL+" : ", anchor(rec.URL)))
	}
	if rec.Wikipedia != "" {
		paragraphs = append(paragraphs, paragraph(labelWikipedia+" : ", anchor(WikipediaURL(rec.Wikipedia, p.wikipediaLanguage))))
	}
	if rec.Image != "" {
		paragraphs = append(paragraphs, paragraph("", image(rec.Image, rec.Name)))
	}

	out := make([]string, 0, len(paragraphs))
	for _, n := range paragraphs {
		var b strings.Builder
		if err := html.Render(&b, n); err != nil {
			return nil, fmt.Errorf("render html: %w", err)
		}
		out = append(out, b.String())
	}
	return out, nil
}

func paragraph(label string, content *html.Node) *html.Node {
	p := &html.Node{Type: html.ElementNode, Data: "p", DataAtom: atom.P}
	if label != "" {
		p.AppendChild(text(label))
	}
	p.AppendChild(content)
	return p
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func anchor(href string) *html.Node {
	a := &html.Node{
		Type:     html.ElementNode,
		Data:     "a",
		DataAtom: atom.A,
		Attr:     []html.Attribute{{Key: "href", Val: href}},
	}
	a.AppendChild(text(href))
	return a
}

func image(src, alt string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     "img",
		DataAtom: atom.Img,
		Attr: []html.Attribute{
			{Key: "src", Val: src},
			{Key: "alt", Val: alt},
		},
	}
}
