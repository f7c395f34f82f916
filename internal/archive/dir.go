package archive

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jengzang/greenarea-go/internal/raster"
)

// Dir reads scenes from a directory tree:
//
//	<root>/<collection>/catalog.json
//	<root>/<collection>/<band files>.tif
//
// Collection ids may contain slashes; each segment becomes a directory.
type Dir struct {
	root  string
	cache *cache.Cache
}

// NewDir creates a directory archive; decoded bands are cached for ttl
func NewDir(root string, ttl time.Duration) *Dir {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Dir{
		root:  root,
		cache: cache.New(ttl, ttl*2),
	}
}

func (d *Dir) collectionDir(collection string) string {
	return filepath.Join(d.root, filepath.FromSlash(collection))
}

func (d *Dir) catalog(collection string) (Catalog, error) {
	key := "catalog:" + collection
	if cached, found := d.cache.Get(key); found {
		return cached.(Catalog), nil
	}

	f, err := os.Open(filepath.Join(d.collectionDir(collection), "catalog.json"))
	if err != nil {
		return Catalog{}, err
	}
	defer f.Close()

	c, err := ParseCatalog(f)
	if err != nil {
		return Catalog{}, err
	}
	d.cache.Set(key, c, cache.DefaultExpiration)
	return c, nil
}

func (d *Dir) band(collection string, entry BandEntry, g raster.Grid) (raster.Band, error) {
	path := filepath.Join(d.collectionDir(collection), filepath.FromSlash(entry.File))
	if cached, found := d.cache.Get(path); found {
		return cached.(raster.Band), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return raster.Band{}, err
	}
	defer f.Close()

	b, err := DecodeBand(f, entry, g)
	if err != nil {
		return raster.Band{}, fmt.Errorf("%s: %w", path, err)
	}
	d.cache.Set(path, b, cache.DefaultExpiration)
	return b, nil
}

// Query reads the catalog and decodes the requested bands of matching scenes
func (d *Dir) Query(ctx context.Context, q Query) ([]Scene, error) {
	c, err := d.catalog(q.Collection)
	if err != nil {
		return nil, &QueryError{Collection: q.Collection, Err: err}
	}

	var scenes []Scene
	for _, cs := range c.Scenes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		footprint := cs.Footprint()
		if !q.Matches(cs.Acquired, footprint) {
			continue
		}

		bands := make(map[string]raster.Band)
		for name, entry := range cs.Bands {
			if !q.WantsBand(name) {
				continue
			}
			b, err := d.band(q.Collection, entry, cs.Grid)
			if err != nil {
				return nil, &QueryError{Collection: q.Collection, Err: err}
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
	log.Printf("[Archive] %s: %d scenes in [%s, %s)", q.Collection, len(scenes),
		q.Start.Format("2006-01-02"), q.End.Format("2006-01-02"))
	return scenes, nil
}

// Flush drops every cached catalog and band
func (d *Dir) Flush() {
	d.cache.Flush()
}
