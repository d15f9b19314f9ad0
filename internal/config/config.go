package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Matching  Matching            `yaml:"matching"`
	Counts    Counts              `yaml:"counts"`
	Crawl     Crawl               `yaml:"crawl"`
	Platforms map[string]Platform `yaml:"platforms"`
	Notify    Notify              `yaml:"notify"`
	Output    Output              `yaml:"output"`
	Server    Server              `yaml:"server"`
	Logging   Logging             `yaml:"logging"`
}

type Matching struct {
	KeywordThreshold float64 `yaml:"keyword_threshold"`
	RatioThreshold   float64 `yaml:"ratio_threshold"`
	// Aliases lists equivalent artist name pairs, e.g. a stage-name
	// abbreviation and its full form.
	Aliases [][]string `yaml:"aliases"`
}

type Counts struct {
	// Units maps a count suffix to its multiplier, e.g. 만 to 10000.
	Units map[string]int64 `yaml:"units"`
}

type Crawl struct {
	Workers        int `yaml:"workers"`
	CandidateLimit int `yaml:"candidate_limit"`
	DiscoveryLimit int `yaml:"discovery_limit"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
	Retries        int `yaml:"retries"`
	// Random per-request delay bounds, to pace scraping.
	DelayMinMS int `yaml:"delay_min_ms"`
	DelayMaxMS int `yaml:"delay_max_ms"`
}

type Platform struct {
	// Enabled defaults to true when omitted.
	Enabled *bool  `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
}

type Notify struct {
	SlackWebhookEnv string `yaml:"slack_webhook_env"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for streamwatch.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "streamwatch")
}

// DataDir returns the XDG data directory for streamwatch.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "streamwatch")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/streamwatch/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'streamwatch init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Matching: Matching{
			KeywordThreshold: 0.3,
			RatioThreshold:   0.8,
			Aliases: [][]string{
				{"악뮤", "악동뮤지션"},
				{"AKMU", "악동뮤지션"},
			},
		},
		Counts: Counts{
			Units: map[string]int64{
				"천": 1_000,
				"만": 10_000,
				"억": 100_000_000,
			},
		},
		Crawl: Crawl{
			Workers:        4,
			CandidateLimit: 20,
			DiscoveryLimit: 5,
			TimeoutSeconds: 15,
			Retries:        2,
			DelayMinMS:     1200,
			DelayMaxMS:     2000,
		},
		Platforms: map[string]Platform{
			"genie":         {BaseURL: "https://www.genie.co.kr"},
			"melon":         {BaseURL: "https://www.melon.com"},
			"youtube":       {BaseURL: "https://www.youtube.com"},
			"youtube_music": {BaseURL: "https://www.youtube.com"},
		},
		Notify:  Notify{SlackWebhookEnv: "SLACK_WEBHOOK_URL"},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	for i, pair := range cfg.Matching.Aliases {
		if len(pair) != 2 {
			return nil, fmt.Errorf("matching.aliases[%d]: expected a pair, got %d entries", i, len(pair))
		}
	}
	if cfg.Crawl.DelayMaxMS < cfg.Crawl.DelayMinMS {
		return nil, fmt.Errorf("crawl.delay_max_ms (%d) is below crawl.delay_min_ms (%d)",
			cfg.Crawl.DelayMaxMS, cfg.Crawl.DelayMinMS)
	}

	return cfg, nil
}

// AliasPairs returns the alias table in fixed-size pair form.
func (m Matching) AliasPairs() [][2]string {
	pairs := make([][2]string, 0, len(m.Aliases))
	for _, p := range m.Aliases {
		pairs = append(pairs, [2]string{p[0], p[1]})
	}
	return pairs
}

// PlatformEnabled reports whether a platform should be collected.
// Platforms absent from the map, or without an explicit enabled flag,
// default to enabled.
func (c *Config) PlatformEnabled(name string) bool {
	p, ok := c.Platforms[name]
	if !ok || p.Enabled == nil {
		return true
	}
	return *p.Enabled
}

// BaseURL returns the configured base URL for a platform, or empty.
func (c *Config) BaseURL(name string) string {
	return c.Platforms[name].BaseURL
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
