// Package app assembles archives, regions and runners from configuration.
package app

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jengzang/greenarea-go/internal/archive"
	"github.com/jengzang/greenarea-go/internal/composite"
	"github.com/jengzang/greenarea-go/internal/config"
	"github.com/jengzang/greenarea-go/internal/metrics"
	"github.com/jengzang/greenarea-go/internal/pipeline"
	"github.com/jengzang/greenarea-go/internal/region"
)

// App holds the collaborators shared by the server and the CLI
type App struct {
	Config   *config.Config
	Archive  archive.Archive
	Regions  *region.Collection
	Metrics  *metrics.PipelineMetrics
	Registry *prometheus.Registry
}

// OpenArchive returns the HTTP archive when a URL is set, else the directory archive
func OpenArchive(cfg *config.Config) archive.Archive {
	if cfg.Archive.URL != "" {
		log.Printf("[App] Using HTTP archive %s", cfg.Archive.URL)
		return archive.NewHTTP(cfg.Archive.URL, &http.Client{}, cfg.Archive.Timeout)
	}
	log.Printf("[App] Using directory archive %s", cfg.Archive.Dir)
	return archive.NewDir(cfg.Archive.Dir, cfg.Archive.CacheTTL)
}

// LoadRegions reads the boundaries and the optional names override
func LoadRegions(cfg *config.Config) (*region.Collection, error) {
	names := region.SeoulDistricts()
	if cfg.Regions.Names != "" {
		f, err := os.Open(cfg.Regions.Names)
		if err != nil {
			return nil, fmt.Errorf("failed to open names: %w", err)
		}
		defer f.Close()
		override, err := region.LoadNames(f)
		if err != nil {
			return nil, err
		}
		names = names.Merge(override)
	}

	f, err := os.Open(cfg.Regions.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open regions: %w", err)
	}
	defer f.Close()

	regions, err := region.LoadGeoJSON(f, region.Options{
		CodeProperty: cfg.Regions.CodeProperty,
		Names:        names,
		EPSG:         cfg.Regions.EPSG,
	})
	if err != nil {
		return nil, err
	}
	var area float64
	for _, r := range regions.Regions() {
		area += r.Planar.Area()
	}
	if area <= 0 {
		return nil, fmt.Errorf("regions in %s cover no area", cfg.Regions.Path)
	}
	log.Printf("[App] Loaded %d regions from %s covering %.1f km²", regions.Len(), cfg.Regions.Path, area/1e6)
	return regions, nil
}

// New loads regions, opens the archive and registers pipeline metrics
func New(cfg *config.Config) (*App, error) {
	regions, err := LoadRegions(cfg)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.NewPipelineMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return &App{
		Config:   cfg,
		Archive:  OpenArchive(cfg),
		Regions:  regions,
		Metrics:  m,
		Registry: registry,
	}, nil
}

// Compositor returns a compositor over the app's archive
func (a *App) Compositor() composite.Compositor {
	return composite.Compositor{
		Archive:      a.Archive,
		CloudCeiling: a.Config.CloudCeiling,
		MaxImages:    a.Config.MaxImages,
	}
}

// Runner returns a pipeline runner without an observer
func (a *App) Runner() pipeline.Runner {
	return pipeline.Runner{
		Compositor: a.Compositor(),
		Regions:    a.Regions,
		Metrics:    a.Metrics,
	}
}

// Sampler returns a sampler keeping every stride-th pixel
func (a *App) Sampler(stride int) pipeline.Sampler {
	c := a.Compositor()
	c.MaxImages = pipeline.DefaultSampleImages
	return pipeline.Sampler{Compositor: c, Regions: a.Regions, Stride: stride}
}
