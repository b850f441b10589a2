package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AllRegions is the allow-list sentinel that turns on per-account region
// discovery.
const AllRegions = "all"

const (
	DefaultHomeRegion     = "us-east-1"
	DefaultRoleName       = "dangleip-audit"
	DefaultIPTimeLimit    = 172800
	DefaultPrefixURL      = "https://ip-ranges.amazonaws.com/ip-ranges.json"
	DefaultConcurrency    = 8
	DefaultStoreType      = "sqlite"
	DefaultStoreRetention = 7 * 24 * time.Hour
	DefaultSQLitePath     = "dangleip.db"
	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "dangleip:seen:"
	DefaultLogLevel       = "info"
	defaultConfigName     = "dangleip"
	legacyRegionsEnv      = "ALLOWED_REGIONS"
	legacyIPTimeLimitEnv  = "IP_TIME_LIMIT"
	envPrefix             = "DANGLEIP"
)

var DefaultPrefixServices = []string{"EC2", "GLOBALACCELERATOR"}

type Account struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

type StoreConfig struct {
	Type           string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string
	SQLitePath     string
	Retention      time.Duration
}

type PrefixConfig struct {
	URL      string
	File     string
	Services []string
	Regions  []string
}

// Config is resolved once at startup and handed to every component
// constructor. Nothing below pkg/cli reads viper or the environment.
type Config struct {
	Regions         []string
	FreshnessWindow time.Duration

	RoleName   string
	ExternalID string
	HomeRegion string
	Accounts   []Account

	Store  StoreConfig
	Prefix PrefixConfig

	Concurrency int
	LogLevel    string
}

// StoreTypeMemory keeps observations in process memory; only commands that
// record and check in one run can use it.
const StoreTypeMemory = "memory"

// DiscoverRegions reports whether the allow-list is the "all" sentinel.
func (c *Config) DiscoverRegions() bool {
	return len(c.Regions) == 1 && c.Regions[0] == AllRegions
}

// NewViper returns a viper instance with defaults, environment bindings and
// the optional dangleip.yaml search path.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(defaultConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/dangleip/")
	v.AddConfigPath("$HOME/.dangleip")
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The legacy deployment only knew these two variables.
	_ = v.BindEnv("regions", envPrefix+"_REGIONS", legacyRegionsEnv)
	_ = v.BindEnv("ip_time_limit", envPrefix+"_IP_TIME_LIMIT", legacyIPTimeLimitEnv)

	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("regions", []string{AllRegions})
	v.SetDefault("ip_time_limit", DefaultIPTimeLimit)
	v.SetDefault("role_name", DefaultRoleName)
	v.SetDefault("external_id", "")
	v.SetDefault("home_region", DefaultHomeRegion)
	v.SetDefault("concurrency", DefaultConcurrency)
	v.SetDefault("log_level", DefaultLogLevel)

	v.SetDefault("store.type", DefaultStoreType)
	v.SetDefault("store.redis_addr", DefaultRedisAddr)
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.redis_key_prefix", DefaultRedisKeyPrefix)
	v.SetDefault("store.sqlite_path", DefaultSQLitePath)
	v.SetDefault("store.retention", DefaultStoreRetention.String())

	v.SetDefault("prefix.url", DefaultPrefixURL)
	v.SetDefault("prefix.file", "")
	v.SetDefault("prefix.services", DefaultPrefixServices)
	v.SetDefault("prefix.regions", []string{})
}

// ReadFile reads the config file named by path, or searches the default
// locations when path is empty. A missing default file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if errors.As(err, &nf) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load builds a validated Config out of v.
func Load(v *viper.Viper) (*Config, error) {
	retention, err := time.ParseDuration(v.GetString("store.retention"))
	if err != nil {
		return nil, fmt.Errorf("store.retention: %w", err)
	}

	var accounts []Account
	if err := v.UnmarshalKey("accounts", &accounts); err != nil {
		return nil, fmt.Errorf("accounts: %w", err)
	}

	c := &Config{
		Regions:         stringList(v.Get("regions")),
		FreshnessWindow: time.Duration(v.GetInt("ip_time_limit")) * time.Second,
		RoleName:        v.GetString("role_name"),
		ExternalID:      v.GetString("external_id"),
		HomeRegion:      v.GetString("home_region"),
		Accounts:        accounts,
		Store: StoreConfig{
			Type:           strings.ToLower(v.GetString("store.type")),
			RedisAddr:      v.GetString("store.redis_addr"),
			RedisPassword:  v.GetString("store.redis_password"),
			RedisDB:        v.GetInt("store.redis_db"),
			RedisKeyPrefix: v.GetString("store.redis_key_prefix"),
			SQLitePath:     v.GetString("store.sqlite_path"),
			Retention:      retention,
		},
		Prefix: PrefixConfig{
			URL:      v.GetString("prefix.url"),
			File:     v.GetString("prefix.file"),
			Services: stringList(v.Get("prefix.services")),
			Regions:  stringList(v.Get("prefix.regions")),
		},
		Concurrency: v.GetInt("concurrency"),
		LogLevel:    v.GetString("log_level"),
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if len(c.Regions) == 0 {
		return fmt.Errorf("regions: empty allow-list, use %q to discover regions", AllRegions)
	}
	for _, r := range c.Regions {
		if r == AllRegions && len(c.Regions) > 1 {
			return fmt.Errorf("regions: %q cannot be mixed with explicit regions", AllRegions)
		}
	}
	if c.FreshnessWindow <= 0 {
		return fmt.Errorf("ip_time_limit: must be a positive number of seconds")
	}
	if c.RoleName == "" {
		return fmt.Errorf("role_name: required")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency: must be at least 1, got %d", c.Concurrency)
	}
	switch c.Store.Type {
	case StoreTypeMemory, "redis", "sqlite":
	default:
		return fmt.Errorf("store.type: unknown store %q", c.Store.Type)
	}
	if c.Store.Retention < c.FreshnessWindow {
		return fmt.Errorf("store.retention %s is shorter than the freshness window %s", c.Store.Retention, c.FreshnessWindow)
	}
	for _, a := range c.Accounts {
		if a.ID == "" {
			return fmt.Errorf("accounts: entry %q has no id", a.Name)
		}
	}
	return nil
}

func stringList(raw interface{}) []string {
	switch t := raw.(type) {
	case nil:
		return nil
	case string:
		return ParseRegionList(t)
	case []string:
		return cleanList(t)
	case []interface{}:
		l := make([]string, 0, len(t))
		for _, e := range t {
			l = append(l, fmt.Sprint(e))
		}
		return cleanList(l)
	default:
		return ParseRegionList(fmt.Sprint(t))
	}
}

// ParseRegionList accepts "us-east-1,eu-west-1", "us-east-1 eu-west-1" and
// the legacy "['us-east-1', 'eu-west-1']" form.
func ParseRegionList(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	return cleanList(fields)
}

func cleanList(in []string) []string {
	out := []string{}
	for _, e := range in {
		e = strings.Trim(strings.TrimSpace(e), `'"`)
		if e == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}
