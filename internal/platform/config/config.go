// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
	ingestCfg := cfg.IngestConfig()

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (the ingestion pipeline, adapters)
    via constructors, never read from a global.
  - Zero Hidden State: No global variables are used to store config.

This is the one place [internal/core/ingest.Config] is assembled from the
environment; the core package itself never imports this one, per spec — it
only ever accepts the resolved value [Config.IngestConfig] produces.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/corvid-labs/boorusync/internal/core/ingest"
	"github.com/corvid-labs/boorusync/internal/core/resource"
)

// # Configuration Schema

// Config holds all runtime configuration for the boorusync ingestion
// driver, resolved once at process startup.
type Config struct {

	// Process settings
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Debug       bool   `env:"DEBUG"       envDefault:"false"`

	// DownloaderBinary is the path to the external downloader executable
	// (gallery-dl by convention) the download manager invokes.
	DownloaderBinary string `env:"DOWNLOADER_BINARY" envDefault:"gallery-dl"`

	// TempFolder is where the download manager scratch-writes pages.
	TempFolder string `env:"TEMP_FOLDER" envDefault:"./tmp"`
	// RootFolder is the installation root, used to locate bundled thumbnails.
	RootFolder string `env:"ROOT_FOLDER" envDefault:"."`

	// Destination is the registry name of the destination adapter to
	// reconcile against.
	Destination string `env:"DESTINATION,required"`
	// DestinationBaseURL is the destination instance's origin.
	DestinationBaseURL string `env:"DESTINATION_BASE_URL,required"`
	// DestinationUser/DestinationToken authenticate destination writes.
	DestinationUser  string `env:"DESTINATION_USER,required"`
	DestinationToken string `env:"DESTINATION_TOKEN,required"`

	// Key-Value Cache (Redis), optional — an in-memory cache is used when unset.
	RedisURL string `env:"REDIS_URL"`

	// Filter tunables (spec §4.6's recognized configuration table)
	BlacklistedTags string `env:"BLACKLISTED_TAGS" envDefault:""`
	RequiredTags    string `env:"REQUIRED_TAGS"    envDefault:""`
	AllowedSafety   string `env:"ALLOWED_SAFETY"   envDefault:""`
	MinimumScore    int    `env:"MINIMUM_SCORE"    envDefault:"0"`

	AllowedBlankPages int    `env:"ALLOWED_BLANK_PAGES" envDefault:"1"`
	DownloadPageSize  int    `env:"DOWNLOAD_PAGE_SIZE"  envDefault:"100"`
	LimitPerHost      int    `env:"LIMIT_PER_HOST"      envDefault:"4"`
	CookiesFile       string `env:"COOKIES_FILE"        envDefault:""`

	// Open-Questions tunables (SPEC_FULL §8)
	SourceCheckBeforeMD5   bool    `env:"SOURCE_CHECK_BEFORE_MD5"  envDefault:"false"`
	TagConflictRetryDelay  int     `env:"TAG_CONFLICT_RETRY_DELAY" envDefault:"2"`
	TagNameCap             int     `env:"TAG_NAME_CAP"             envDefault:"189"`
	ImageDistanceThreshold float64 `env:"IMAGE_DISTANCE_THRESHOLD" envDefault:"0.15"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IngestConfig resolves the flat environment schema above into the
// [ingest.Config] the core pipeline accepts, parsing the comma-separated
// tag-group and safety lists spec §4.6 describes.
func (c *Config) IngestConfig() ingest.Config {
	return ingest.Config{
		Destination:           c.Destination,
		BlacklistedTags:       parseTagGroups(c.BlacklistedTags),
		RequiredTags:          parseTagGroups(c.RequiredTags),
		AllowedSafety:         parseSafetyList(c.AllowedSafety),
		MinimumScore:          c.MinimumScore,
		AllowedBlankPages:     c.AllowedBlankPages,
		DownloadPageSize:      c.DownloadPageSize,
		LimitPerHost:          c.LimitPerHost,
		CookiesFile:           c.CookiesFile,
		TempFolder:            c.TempFolder,
		RootFolder:            c.RootFolder,
		TagConflictRetryDelay: time.Duration(c.TagConflictRetryDelay) * time.Second,
		TagNameCap:            c.TagNameCap,
	}
}

// parseTagGroups splits a comma-separated list of tag groups, where a
// group's members are joined by "+", into [ingest.TagGroup]s — e.g.
// "rating:safe,artist:foo+character:bar" is a plain tag and one AND-group.
func parseTagGroups(raw string) []ingest.TagGroup {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var groups []ingest.TagGroup
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		groups = append(groups, ingest.TagGroup(strings.Split(entry, "+")))
	}
	return groups
}

func parseSafetyList(raw string) []resource.Safety {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var safeties []resource.Safety
	for _, entry := range strings.Split(raw, ",") {
		s := resource.Safety(strings.TrimSpace(entry))
		if s.IsValid() {
			safeties = append(safeties, s)
		}
	}
	return safeties
}

