package osm

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/osmlookup/internal/model"
)

// Fetcher reads the tags of one entity from the OSM API 0.6
type Fetcher struct {
	client  *Client
	baseURL string
	log     *slog.Logger
}

// NewFetcher creates a fetcher for the API rooted at baseURL
// (e.g. https://www.openstreetmap.org).
func NewFetcher(client *Client, baseURL string, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Fetcher{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

type osmDocument struct {
	XMLName xml.Name     `xml:"osm"`
	Nodes   []osmElement `xml:"node"`
	Ways    []osmElement `xml:"way"`
}

type osmElement struct {
	ID   int64    `xml:"id,attr"`
	Tags []osmTag `xml:"tag"`
}

type osmTag struct {
	Key   string `xml:"k,attr"`
	Value string `xml:"v,attr"`
}

// ElementURL returns the API URL of an entity
func (f *Fetcher) ElementURL(ref model.EntityReference) string {
	return fmt.Sprintf("%s/api/0.6/%s/%d", f.baseURL, ref.Kind, ref.ID)
}

// Fetch downloads the entity document and projects its recognized tags.
// It fails with model.ErrFetchUnavailable when the API cannot answer and
// with model.ErrParseFailure when the document is not valid OSM XML.
func (f *Fetcher) Fetch(ctx context.Context, ref model.EntityReference) (model.PartialRecord, error) {
	docURL := f.ElementURL(ref)
	f.log.Debug("fetching attributes", slog.String("entity", ref.String()), slog.String("url", docURL))

	body, err := f.client.Get(ctx, docURL, "application/xml")
	if err != nil {
		return model.PartialRecord{}, fmt.Errorf("%w: %s: %w", model.ErrFetchUnavailable, ref, err)
	}

	tags, err := ParseTags(body, ref)
	if err != nil {
		return model.PartialRecord{}, fmt.Errorf("%w: %s: %w", model.ErrParseFailure, ref, err)
	}

	return Project(tags), nil
}

// ParseTags decodes an OSM API document and returns the tags of the element
// matching ref, in document order. When no element matches, the tags of
// every element are returned.
func ParseTags(doc []byte, ref model.EntityReference) ([][2]string, error) {
	var parsed osmDocument
	if err := xml.NewDecoder(bytes.NewReader(doc)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode xml: %w", err)
	}

	elements := parsed.Nodes
	if ref.Kind == model.KindWay {
		elements = parsed.Ways
	}
	for _, el := range elements {
		if el.ID == ref.ID {
			return pairs(el.Tags), nil
		}
	}

	var all [][2]string
	for _, el := range append(parsed.Nodes, parsed.Ways...) {
		all = append(all, pairs(el.Tags)...)
	}
	return all, nil
}

func pairs(tags []osmTag) [][2]string {
	out := make([][2]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, [2]string{t.Key, t.Value})
	}
	return out
}

// Project keeps the six recognized tags; a later duplicate key overwrites
// an earlier one and every other key is ignored.
func Project(tags [][2]string) model.PartialRecord {
	var rec model.PartialRecord
	for _, kv := range tags {
		if field, ok := model.FieldForTag(kv[0]); ok {
			rec.Set(field, kv[1])
		}
	}
	return rec
}
