package osm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/osmlookup/internal/cache"
	"github.com/ppiankov/osmlookup/internal/model"
)

func testClient(opts ...ClientOption) *Client {
	cfg := model.DefaultConfig().HTTP
	cfg.Timeout = 5 * time.Second
	cfg.UserAgent = "osmlookup-test"
	return NewClient(cfg, opts...)
}

func TestOverpassQuery(t *testing.T) {
	got := OverpassQuery("Château de Vaux-le-Vicomte")
	want := `[out:json];(way["name"="Château de Vaux-le-Vicomte"];node["name"="Château de Vaux-le-Vicomte"];);out body;`
	if got != want {
		t.Errorf("unexpected query:\n got %s\nwant %s", got, want)
	}

	got = OverpassQuery(`Le "Bar" \ 1`)
	want = `[out:json];(way["name"="Le \"Bar\" \\ 1"];node["name"="Le \"Bar\" \\ 1"];);out body;`
	if got != want {
		t.Errorf("unexpected escaped query:\n got %s\nwant %s", got, want)
	}
}

func TestLocator_Locate(t *testing.T) {
	var gotQuery, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("data")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"elements":[
			{"type":"way","id":94436175,"tags":{"name":"Tour Eiffel"}},
			{"type":"relation","id":5,"tags":{}},
			{"type":"node","id":12,"tags":{"name":"Tour Eiffel"}}
		]}`)
	}))
	defer server.Close()

	refs, err := NewLocator(testClient(), server.URL, nil).Locate(context.Background(), "Tour Eiffel")
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}

	want := []model.EntityReference{
		{Kind: model.KindWay, ID: 94436175},
		{Kind: model.KindNode, ID: 12},
	}
	if !reflect.DeepEqual(refs, want) {
		t.Errorf("expected %v, got %v", want, refs)
	}
	if gotQuery != OverpassQuery("Tour Eiffel") {
		t.Errorf("unexpected data parameter: %s", gotQuery)
	}
	if gotUA != "osmlookup-test" {
		t.Errorf("expected test user agent, got %q", gotUA)
	}
}

func TestLocator_QueryEncoding(t *testing.T) {
	var rawQuery, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		gotQuery = r.URL.Query().Get("data")
		_, _ = fmt.Fprint(w, `{"elements":[{"type":"node","id":1}]}`)
	}))
	defer server.Close()

	loc := NewLocator(testClient(), server.URL, nil)

	if _, err := loc.Locate(context.Background(), "Tour Eiffel"); err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if !strings.Contains(rawQuery, "Tour%20Eiffel") {
		t.Errorf("expected spaces encoded as %%20, got %s", rawQuery)
	}
	if strings.Contains(rawQuery, "+") {
		t.Errorf("raw query should not contain '+': %s", rawQuery)
	}

	// reserved characters in the name must survive the round trip
	if _, err := loc.Locate(context.Background(), "Bar & Grill + Co"); err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if gotQuery != OverpassQuery("Bar & Grill + Co") {
		t.Errorf("name altered in transit: %s", gotQuery)
	}
}

func TestLocator_NoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"elements":[]}`)
	}))
	defer server.Close()

	_, err := NewLocator(testClient(), server.URL, nil).Locate(context.Background(), "Nowhere")
	if !errors.Is(err, model.ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
	if !strings.Contains(err.Error(), "Nowhere") {
		t.Errorf("expected name in error, got %v", err)
	}
}

func TestLocator_Unavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusGatewayTimeout)
		}},
		{"too many requests", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}},
		{"not json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = fmt.Fprint(w, "<html>runtime error</html>")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := NewLocator(testClient(), server.URL, nil).Locate(context.Background(), "Tour Eiffel")
			if !errors.Is(err, model.ErrLookupUnavailable) {
				t.Fatalf("expected ErrLookupUnavailable, got %v", err)
			}
			if errors.Is(err, model.ErrNoMatch) {
				t.Error("an unavailable service is not a missing place")
			}
		})
	}
}

func TestLocator_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	_, err := NewLocator(testClient(), addr, nil).Locate(context.Background(), "Tour Eiffel")
	if !errors.Is(err, model.ErrLookupUnavailable) {
		t.Errorf("expected ErrLookupUnavailable, got %v", err)
	}
}

const wayDocument = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="openstreetmap-cgimap">
 <way id="94436175" visible="true" version="12">
  <nd ref="1"/>
  <tag k="name" v="Château de Vaux-le-Vicomte"/>
  <tag k="opening_hours" v="Mo-Su 10:00-19:00"/>
  <tag k="tourism" v="attraction"/>
  <tag k="website" v="https://vaux-le-vicomte.com"/>
  <tag k="wikipedia" v="fr:Château de Vaux-le-Vicomte"/>
 </way>
</osm>`

func TestFetcher_Fetch(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/xml")
		_, _ = fmt.Fprint(w, wayDocument)
	}))
	defer server.Close()

	f := NewFetcher(testClient(), server.URL+"/", nil)
	rec, err := f.Fetch(context.Background(), model.EntityReference{Kind: model.KindWay, ID: 94436175})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if path != "/api/0.6/way/94436175" {
		t.Errorf("unexpected path: %s", path)
	}
	want := model.PartialRecord{
		Name:         "Château de Vaux-le-Vicomte",
		OpeningHours: "Mo-Su 10:00-19:00",
		Website:      "https://vaux-le-vicomte.com",
		Wikipedia:    "fr:Château de Vaux-le-Vicomte",
	}
	if rec != want {
		t.Errorf("expected %+v, got %+v", want, rec)
	}
}

func TestFetcher_NoRecognizedKeys(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `<osm version="0.6"><node id="7" lat="1" lon="2"><tag k="amenity" v="bench"/></node></osm>`)
	}))
	defer server.Close()

	rec, err := NewFetcher(testClient(), server.URL, nil).Fetch(context.Background(), model.EntityReference{Kind: model.KindNode, ID: 7})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if rec != (model.PartialRecord{}) {
		t.Errorf("expected empty record, got %+v", rec)
	}
}

func TestFetcher_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{"gone", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusGone)
		}, model.ErrFetchUnavailable},
		{"malformed", func(w http.ResponseWriter, r *http.Request) {
			_, _ = fmt.Fprint(w, `<osm><node id="7"><tag k="name" v="x"></osm>`)
		}, model.ErrParseFailure},
		{"html page", func(w http.ResponseWriter, r *http.Request) {
			_, _ = fmt.Fprint(w, `<html><body>maintenance</body></html>`)
		}, model.ErrParseFailure},
		{"empty body", func(w http.ResponseWriter, r *http.Request) {}, model.ErrParseFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := NewFetcher(testClient(), server.URL, nil).Fetch(context.Background(), model.EntityReference{Kind: model.KindNode, ID: 7})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestFetcher_StatusErrorIsExposed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewFetcher(testClient(), server.URL, nil).Fetch(context.Background(), model.EntityReference{Kind: model.KindWay, ID: 1})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", statusErr.StatusCode)
	}
}

func TestParseTags_FallsBackToAllElements(t *testing.T) {
	doc := []byte(`<osm><node id="1"><tag k="name" v="A"/></node><way id="2"><tag k="website" v="http://x"/></way></osm>`)

	tags, err := ParseTags(doc, model.EntityReference{Kind: model.KindWay, ID: 99})
	if err != nil {
		t.Fatalf("ParseTags failed: %v", err)
	}
	if want := [][2]string{{"name", "A"}, {"website", "http://x"}}; !reflect.DeepEqual(tags, want) {
		t.Errorf("expected %v, got %v", want, tags)
	}

	tags, err = ParseTags(doc, model.EntityReference{Kind: model.KindWay, ID: 2})
	if err != nil {
		t.Fatalf("ParseTags failed: %v", err)
	}
	if want := [][2]string{{"website", "http://x"}}; !reflect.DeepEqual(tags, want) {
		t.Errorf("expected %v, got %v", want, tags)
	}
}

func TestProject(t *testing.T) {
	rec := Project([][2]string{
		{"name", "Musée"},
		{"image", "https://img/1.jpg"},
		{"url", "https://example.org"},
		{"addr:city", "Paris"},
		{"name", "Musée du Louvre"},
	})

	want := model.PartialRecord{
		Name:  "Musée du Louvre",
		Image: "https://img/1.jpg",
		URL:   "https://example.org",
	}
	if rec != want {
		t.Errorf("expected %+v, got %+v", want, rec)
	}
}

func TestClient_CachesSuccessfulResponses(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	c := testClient(WithCache(cache.NewMemoryCache(time.Minute, time.Minute), 0))
	for i := 0; i < 3; i++ {
		body, err := c.Get(context.Background(), server.URL, "")
		if err != nil {
			t.Fatalf("Get %d failed: %v", i, err)
		}
		if string(body) != "ok" {
			t.Errorf("unexpected body: %s", body)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 request to the server, got %d", hits.Load())
	}
}

func TestClient_DoesNotCacheFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := testClient(WithCache(cache.NewMemoryCache(time.Minute, time.Minute), 0))
	for i := 0; i < 2; i++ {
		if _, err := c.Get(context.Background(), server.URL, ""); err == nil {
			t.Fatalf("Get %d: expected error for 503", i)
		}
	}
	if hits.Load() != 2 {
		t.Errorf("expected 2 requests to the server, got %d", hits.Load())
	}
}

type countingPacer struct {
	calls atomic.Int32
	err   error
}

func (p *countingPacer) Wait(ctx context.Context, rawURL string) error {
	p.calls.Add(1)
	return p.err
}

func TestClient_Pacer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	pacer := &countingPacer{}
	if _, err := testClient(WithPacer(pacer)).Get(context.Background(), server.URL, ""); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if pacer.calls.Load() != 1 {
		t.Errorf("expected pacer to be consulted once, got %d", pacer.calls.Load())
	}

	blocked := &countingPacer{err: context.DeadlineExceeded}
	_, err := testClient(WithPacer(blocked)).Get(context.Background(), server.URL, "")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected pacer error, got %v", err)
	}
}

func TestClient_LimitsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "0123456789")
	}))
	defer server.Close()

	cfg := model.DefaultConfig().HTTP
	cfg.MaxBodyBytes = 4
	body, err := NewClient(cfg).Get(context.Background(), server.URL, "")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(body) != "0123" {
		t.Errorf("expected truncated body, got %s", body)
	}
}

func TestProxyFunc(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "https://www.openstreetmap.org/api/0.6/way/1", nil)

	u, err := proxyFunc("http://proxy:3128", "http://secure-proxy:3129")(req)
	if err != nil {
		t.Fatalf("proxy failed: %v", err)
	}
	if u.Host != "secure-proxy:3129" {
		t.Errorf("expected HTTPS proxy, got %s", u.Host)
	}

	u, err = proxyFunc("http://proxy:3128", "")(req)
	if err != nil {
		t.Fatalf("proxy failed: %v", err)
	}
	if u.Host != "proxy:3128" {
		t.Errorf("expected HTTP proxy fallback, got %s", u.Host)
	}
}
