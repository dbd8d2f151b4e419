package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ppiankov/osmlookup/internal/model"
	"github.com/ppiankov/osmlookup/internal/normalize"
)

// Locator finds the ways and nodes whose name tag equals a place name
type Locator struct {
	client      *Client
	overpassURL string
	log         *slog.Logger
}

// NewLocator creates a locator querying the Overpass interpreter at overpassURL
func NewLocator(client *Client, overpassURL string, log *slog.Logger) *Locator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Locator{
		client:      client,
		overpassURL: overpassURL,
		log:         log,
	}
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

// Locate returns the entity references matching name exactly, in the order
// Overpass returned them. It fails with model.ErrLookupUnavailable when the
// service cannot answer and with model.ErrNoMatch when nothing matches.
func (l *Locator) Locate(ctx context.Context, name string) ([]model.EntityReference, error) {
	queryURL, err := l.queryURL(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrLookupUnavailable, err)
	}

	l.log.Debug("searching place", slog.String("name", name), slog.String("url", queryURL))

	body, err := l.client.Get(ctx, queryURL, "application/json")
	if err != nil {
		return nil, fmt.Errorf("%w: search %q: %w", model.ErrLookupUnavailable, name, err)
	}

	var resp overpassResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %w", model.ErrLookupUnavailable, err)
	}

	refs := make([]model.EntityReference, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		kind, err := model.ParseEntityKind(el.Type)
		if err != nil {
			l.log.Debug("skipping element", slog.String("type", el.Type), slog.Int64("id", el.ID))
			continue
		}
		refs = append(refs, model.EntityReference{Kind: kind, ID: el.ID})
	}

	if len(refs) == 0 {
		return nil, fmt.Errorf("%w with the name: %s", model.ErrNoMatch, name)
	}

	return refs, nil
}

func (l *Locator) queryURL(name string) (string, error) {
	base, err := url.Parse(l.overpassURL)
	if err != nil {
		return "", fmt.Errorf("parse overpass url: %w", err)
	}

	data := "data=" + normalize.QueryValue(OverpassQuery(name))
	if base.RawQuery != "" {
		data = base.RawQuery + "&" + data
	}
	base.RawQuery = data

	return base.String(), nil
}

// OverpassQuery builds the Overpass QL query selecting ways and nodes whose
// name tag equals name.
func OverpassQuery(name string) string {
	quoted := quoteQL(name)
	return fmt.Sprintf(`[out:json];(way["name"=%[1]s];node["name"=%[1]s];);out body;`, quoted)
}

var qlEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)

func quoteQL(s string) string {
	return `"` + qlEscaper.Replace(s) + `"`
}
