package storage

import (
	"reflect"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-remote-entities/apiclient"
	"github.com/goliatone/go-remote-entities/cache"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. REMOTE_ENTITIES_API_PASSWORD.
	EnvPrefix = "REMOTE_ENTITIES"

	DefaultLimit = 100

	// permanentMaxAge is accepted for cache.max_age in place of a duration.
	permanentMaxAge = "permanent"
)

// Config configures an Adapter.
type Config struct {
	Client   string      `json:"client" mapstructure:"client"`
	Endpoint string      `json:"endpoint" mapstructure:"endpoint"`
	API      APIConfig   `json:"api" mapstructure:"api"`
	Pager    PagerConfig `json:"pager" mapstructure:"pager"`
	Cache    CacheConfig `json:"cache" mapstructure:"cache"`
	// FieldMapping maps local field names to remote ones. The "id" entry
	// selects the field records are keyed by.
	FieldMapping map[string]string `json:"field_mapping" mapstructure:"field_mapping"`
}

// APIConfig holds the basic auth credentials for the remote API.
type APIConfig struct {
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
}

// PagerConfig controls page sizes and the FetchAll page cap.
type PagerConfig struct {
	DefaultLimit int `json:"default_limit" mapstructure:"default_limit"`
	// MaxPages caps full listings. Zero reads until a short page.
	MaxPages int `json:"max_pages" mapstructure:"max_pages"`
}

// CacheConfig sets how long fetched responses are cached.
type CacheConfig struct {
	// MaxAge applies to every cached response. cache.Permanent disables
	// expiry and zero disables caching.
	MaxAge time.Duration `json:"max_age" mapstructure:"max_age"`
}

// DefaultConfig returns a configuration with the default page size and
// permanent caching. Client and Endpoint must still be set.
func DefaultConfig() Config {
	return Config{
		Pager: PagerConfig{DefaultLimit: DefaultLimit},
		Cache: CacheConfig{MaxAge: cache.Permanent},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	err := errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&c,
			validation.Field(&c.Client, validation.Required, validation.By(knownClient)),
			validation.Field(&c.Endpoint, validation.Required, is.URL),
			validation.Field(&c.Pager),
		)
	}, "invalid storage configuration")
	if err != nil {
		return err
	}
	return nil
}

// Validate checks the page size and cap.
func (p PagerConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.DefaultLimit, validation.Required, validation.Min(1)),
		validation.Field(&p.MaxPages, validation.Min(0)),
	)
}

func knownClient(value any) error {
	s, _ := value.(string)
	if _, err := apiclient.ParseKind(s); err != nil {
		return validation.NewError("validation_unknown_client", "must be one of site, group, collection, primary_site")
	}
	return nil
}

// Field returns the remote field for a local field name.
func (c Config) Field(local string) string {
	if remote, ok := c.FieldMapping[local]; ok && remote != "" {
		return remote
	}
	return local
}

// IDKey is the field records are keyed by: the mapped "id" field, or
// originIDKey when no mapping is configured.
func (c Config) IDKey(originIDKey string) string {
	if remote, ok := c.FieldMapping["id"]; ok && remote != "" {
		return remote
	}
	return originIDKey
}

// LoadConfig reads a Config from v. Environment variables prefixed with
// EnvPrefix override file values, so REMOTE_ENTITIES_ENDPOINT,
// REMOTE_ENTITIES_API_USERNAME and REMOTE_ENTITIES_API_PASSWORD replace the
// configured endpoint and credentials. A nil v reads the environment only.
func LoadConfig(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("client", "")
	v.SetDefault("endpoint", "")
	v.SetDefault("api.username", "")
	v.SetDefault("api.password", "")
	v.SetDefault("pager.default_limit", DefaultLimit)
	v.SetDefault("pager.max_pages", 0)
	v.SetDefault("cache.max_age", permanentMaxAge)

	decodeHooks := mapstructure.ComposeDecodeHookFunc(
		permanentHookFunc,
		mapstructure.StringToTimeDurationHookFunc(),
	)

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHooks)); err != nil {
		return Config{}, errors.Wrap(err, errors.CategoryValidation, "failed to load storage configuration")
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func permanentHookFunc(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	if s, ok := data.(string); ok && strings.EqualFold(strings.TrimSpace(s), permanentMaxAge) {
		return cache.Permanent, nil
	}
	return data, nil
}
