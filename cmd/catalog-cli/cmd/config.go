package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/catalog/detector"
	"catalog-ingest/internal/components/notify"
	"catalog-ingest/lib/configutil"
	"catalog-ingest/pkg/migrations"

	"github.com/mitchellh/go-homedir"
)

type CatalogConfig struct {
	BaseUrl       string            `json:"base_url"`
	ProgramsIndex string            `json:"programs_index"`
	Programs      []catalog.Program `json:"programs"`
	Discover      bool              `json:"discover"`
}

// IndexUrl is the absolute url of the programs index.
func (c CatalogConfig) IndexUrl() string {
	return strings.TrimSuffix(c.BaseUrl, "/") + "/" + strings.TrimPrefix(c.ProgramsIndex, "/")
}

type RendererConfig struct {
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	UserAgent         string  `json:"user_agent"`
	CloudflareBypass  bool    `json:"cloudflare_bypass"`
	DumpDir           string  `json:"dump_dir"`
	Retries           int     `json:"retries"`
}

type DetectorConfig struct {
	ProbeSuffixes []string `json:"probe_suffixes"`
}

type RunConfig struct {
	DelaySeconds float64 `json:"delay_seconds"`
	FlushEvery   int     `json:"flush_every"`
	MinCourses   int     `json:"min_courses"`
}

func (c RunConfig) Delay() time.Duration {
	return time.Duration(c.DelaySeconds * float64(time.Second))
}

type Config struct {
	Database migrations.DatabaseConfig `json:"database"`
	Catalog  CatalogConfig             `json:"catalog"`
	Renderer RendererConfig            `json:"renderer"`
	Detector DetectorConfig            `json:"detector"`
	Run      RunConfig                 `json:"run"`
	Notify   notify.SmtpConfig         `json:"notify"`
}

var defaultConfig = Config{
	Database: migrations.DatabaseConfig{
		File: "~/.local/share/catalog-ingest/catalog.db",
	},
	Catalog: CatalogConfig{
		BaseUrl:       "https://catalog.gatech.edu",
		ProgramsIndex: "/programs/",
	},
	Renderer: RendererConfig{
		TimeoutSeconds:    30,
		RequestsPerSecond: 2,
		Retries:           2,
	},
	Detector: DetectorConfig{
		ProbeSuffixes: detector.DefaultProbeSuffixes,
	},
	Run: RunConfig{
		DelaySeconds: 2,
		FlushEvery:   10,
		MinCourses:   5,
	},
}

// LoadConfig reads the config file at path, falling back to the defaults for
// every unset field. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return Config{}, fmt.Errorf("expand config path: %w", err)
	}

	config, err := configutil.ReadConfigWithDefaults(expanded, defaultConfig)
	if errors.Is(err, os.ErrNotExist) {
		config = defaultConfig
	} else if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if config.Renderer.DumpDir != "" {
		config.Renderer.DumpDir, err = homedir.Expand(config.Renderer.DumpDir)
		if err != nil {
			return Config{}, fmt.Errorf("expand dump path: %w", err)
		}
	}
	if config.Database.File != "" {
		config.Database.File, err = homedir.Expand(config.Database.File)
		if err != nil {
			return Config{}, fmt.Errorf("expand database path: %w", err)
		}
	}
	return config, nil
}
