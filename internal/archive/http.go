package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jengzang/greenarea-go/internal/raster"
)

// HTTP is a client for a remote scene catalog service.
//
//	GET {base}/v1/scenes?collection=..&start=..&end=..[&bbox=..][&bands=..]
//
// answers with a catalog document whose band entries carry URLs.
type HTTP struct {
	base    string
	client  *http.Client
	timeout time.Duration
}

// NewHTTP creates a remote archive client. timeout applies to each request.
func NewHTTP(base string, client *http.Client, timeout time.Duration) *HTTP {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTP{
		base:    strings.TrimRight(base, "/"),
		client:  client,
		timeout: timeout,
	}
}

func (h *HTTP) get(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (h *HTTP) scenesURL(q Query) string {
	v := url.Values{}
	v.Set("collection", q.Collection)
	v.Set("start", q.Start.UTC().Format(time.RFC3339))
	v.Set("end", q.End.UTC().Format(time.RFC3339))
	if q.Bound != nil {
		lo, hi := q.Bound.Lo(), q.Bound.Hi()
		v.Set("bbox", strings.Join([]string{
			strconv.FormatFloat(lo.Lng.Degrees(), 'f', -1, 64),
			strconv.FormatFloat(lo.Lat.Degrees(), 'f', -1, 64),
			strconv.FormatFloat(hi.Lng.Degrees(), 'f', -1, 64),
			strconv.FormatFloat(hi.Lat.Degrees(), 'f', -1, 64),
		}, ","))
	}
	if len(q.Bands) > 0 {
		v.Set("bands", strings.Join(q.Bands, ","))
	}
	return h.base + "/v1/scenes?" + v.Encode()
}

func (h *HTTP) resolve(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	return h.base + "/" + strings.TrimLeft(ref, "/")
}

// Query fetches the catalog and every requested band of matching scenes
func (h *HTTP) Query(ctx context.Context, q Query) ([]Scene, error) {
	body, err := h.get(ctx, h.scenesURL(q))
	if err != nil {
		return nil, &QueryError{Collection: q.Collection, Err: err}
	}
	c, err := ParseCatalog(bytes.NewReader(body))
	if err != nil {
		return nil, &QueryError{Collection: q.Collection, Err: err}
	}

	var scenes []Scene
	for _, cs := range c.Scenes {
		footprint := cs.Footprint()
		// The service filters too; re-check so a lax server cannot widen the window
		if !q.Matches(cs.Acquired, footprint) {
			continue
		}

		bands := make(map[string]raster.Band)
		for name, entry := range cs.Bands {
			if !q.WantsBand(name) || entry.URL == "" {
				continue
			}
			data, err := h.get(ctx, h.resolve(entry.URL))
			if err != nil {
				return nil, &QueryError{Collection: q.Collection, Err: err}
			}
			b, err := DecodeBand(bytes.NewReader(data), entry, cs.Grid)
			if err != nil {
				return nil, &QueryError{Collection: q.Collection, Err: fmt.Errorf("band %s of %s: %w", name, cs.ID, err)}
			}
			bands[name] = b
		}

		img, err := raster.NewImage(cs.Grid, bands)
		if err != nil {
			return nil, &QueryError{Collection: q.Collection, Err: err}
		}
		scenes = append(scenes, Scene{
			ID:            cs.ID,
			Acquired:      cs.Acquired,
			CloudFraction: cs.CloudFraction,
			Footprint:     footprint,
			Image:         img,
		})
	}

	SortScenes(scenes)
	log.Printf("[Archive] %s: %d remote scenes", q.Collection, len(scenes))
	return scenes, nil
}
