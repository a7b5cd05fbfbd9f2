// Package config loads runtime configuration for every subcommand from
// environment variables, via viper, matching the recognized set in spec.md
// §6.3 plus the segmentation/lease tunables layered on top of it.
package config

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully-resolved configuration for one process. Every
// subcommand (scan, proxy, video-proxy, ai start/video, maintenance) builds
// one of these at startup; there is no shared daemon config server.
type Config struct {
	DatabaseURL      string `mapstructure:"database_url"`
	DataDir          string `mapstructure:"data_dir"`
	ForensicsDir     string `mapstructure:"forensics_dir"`
	UseRAWPreviews   bool   `mapstructure:"use_raw_previews"`
	AllowMockDefault bool   `mapstructure:"allow_mock_default"`

	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval_sec"`
	LeaseTTL          time.Duration `mapstructure:"lease_ttl_sec"`
	PollInterval      time.Duration `mapstructure:"poll_interval_sec"`

	MaxRetries int `mapstructure:"max_retries"`

	PhashThreshold  int           `mapstructure:"phash_threshold"`
	TemporalCeiling time.Duration `mapstructure:"temporal_ceiling_sec"`
	DebounceSec     time.Duration `mapstructure:"debounce_sec"`

	LogMode string `mapstructure:"log_mode"`
}

var once sync.Once

// Init registers defaults and env-var overrides. Safe to call repeatedly;
// only the first call takes effect, matching cobra's OnInitialize pattern of
// lazily wiring config once per process.
func Init() {
	once.Do(func() {
		setDefaults()
		viper.SetEnvPrefix("MEDIA_SEARCH")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		// A handful of env vars are named without the MEDIA_SEARCH_ prefix
		// in spec.md §6.3 (DATABASE_URL, HEARTBEAT_INTERVAL_SEC, ...); bind
		// them explicitly so AutomaticEnv's prefix doesn't hide them.
		_ = viper.BindEnv("database_url", "DATABASE_URL")
		_ = viper.BindEnv("heartbeat_interval_sec", "HEARTBEAT_INTERVAL_SEC")
		_ = viper.BindEnv("lease_ttl_sec", "LEASE_TTL_SEC")
		_ = viper.BindEnv("poll_interval_sec", "POLL_INTERVAL_SEC")
		_ = viper.BindEnv("max_retries", "MAX_RETRIES")
		_ = viper.BindEnv("phash_threshold", "PHASH_THRESHOLD")
		_ = viper.BindEnv("temporal_ceiling_sec", "TEMPORAL_CEILING_SEC")
		_ = viper.BindEnv("debounce_sec", "DEBOUNCE_SEC")
	})
}

func setDefaults() {
	viper.SetDefault("data_dir", "./data")
	viper.SetDefault("forensics_dir", "./forensics")
	viper.SetDefault("use_raw_previews", true)
	viper.SetDefault("allow_mock_default", false)
	viper.SetDefault("log_mode", "development")

	viper.SetDefault("heartbeat_interval_sec", 15)
	viper.SetDefault("lease_ttl_sec", 300)
	viper.SetDefault("poll_interval_sec", 5)
	viper.SetDefault("max_retries", 5)

	viper.SetDefault("phash_threshold", 51)
	viper.SetDefault("temporal_ceiling_sec", 30)
	viper.SetDefault("debounce_sec", 3)
}

// Load reads MEDIA_SEARCH_USE_RAW_PREVIEWS-style env vars (see spec.md §6.3)
// into a Config. Durations expressed in seconds in the environment are
// normalized to time.Duration here so callers never juggle raw ints.
func Load() *Config {
	Init()
	return &Config{
		DatabaseURL:       viper.GetString("database_url"),
		DataDir:           viper.GetString("data_dir"),
		ForensicsDir:      viper.GetString("forensics_dir"),
		UseRAWPreviews:    viper.GetBool("use_raw_previews"),
		AllowMockDefault:  viper.GetBool("allow_mock_default"),
		HeartbeatInterval: secs("heartbeat_interval_sec"),
		LeaseTTL:          secs("lease_ttl_sec"),
		PollInterval:      secs("poll_interval_sec"),
		MaxRetries:        viper.GetInt("max_retries"),
		PhashThreshold:    viper.GetInt("phash_threshold"),
		TemporalCeiling:   secs("temporal_ceiling_sec"),
		DebounceSec:       secs("debounce_sec"),
		LogMode:           viper.GetString("log_mode"),
	}
}

func secs(key string) time.Duration {
	return time.Duration(viper.GetInt(key)) * time.Second
}

// SegmentationVersion encodes the pair (PHASH_THRESHOLD, DEBOUNCE_SEC) that
// invalidates existing scenes per spec.md §4.5.5 when the operator changes
// segmentation tuning.
func (c *Config) SegmentationVersion() string {
	return strconv.Itoa(c.PhashThreshold) + ":" + strconv.Itoa(int(c.DebounceSec.Seconds()))
}
