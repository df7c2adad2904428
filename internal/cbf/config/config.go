package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of every environment variable Load reads.
const EnvPrefix = "CBF_"

// FileEnv names the environment variable holding an optional YAML config file.
const FileEnv = EnvPrefix + "CONFIG_FILE"

// AppConfig holds the cbfd configuration. Precedence, lowest first:
// DEFAULT_APP_CONFIG, the YAML file named by CBF_CONFIG_FILE, CBF_* variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Capacity is the expected number of distinct items. Together with FPRate
	// it sizes the filter unless Slots and Hashes are set explicitly.
	Capacity uint32 `koanf:"capacity" validate:"required,gte=1"`

	// FPRate is the target false-positive rate, strictly between 0 and 1.
	FPRate float64 `koanf:"fp_rate" validate:"probability"`

	// Slots and Hashes pin m and k directly. Both or neither must be set.
	Slots  uint32 `koanf:"slots"`
	Hashes uint32 `koanf:"hashes"`

	// CounterBits is the per-slot counter width.
	CounterBits uint8 `koanf:"counter_bits" validate:"required,oneof=8 16 32"`

	// Hasher selects the base hash for the probe family.
	Hasher string `koanf:"hasher" validate:"required,oneof=xxh3 murmur3"`

	// Stripes > 1 shards the counters into that many lock stripes; otherwise
	// the whole filter sits behind one lock.
	Stripes uint32 `koanf:"stripes"`

	// DB is the path of the bbolt database holding item counts.
	DB string `koanf:"db" validate:"required"`

	// CacheSize is the membership decision cache capacity; 0 disables it.
	CacheSize int `koanf:"cache_size" validate:"gte=0"`
}

// DEFAULT_APP_CONFIG holds the defaults loaded before any file or environment
// override.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:         "prod",
	LogLevel:    "info",
	Capacity:    100_000,
	FPRate:      0.01,
	CounterBits: 8,
	Hasher:      "xxh3",
	Stripes:     0,
	DB:          "/var/lib/cbf/items.db",
	CacheSize:   1000,
}

// validProbability accepts floats strictly inside (0, 1). NaN fails.
func validProbability(fl validator.FieldLevel) bool {
	p := fl.Field().Float()
	return p > 0 && p < 1 && !math.IsNaN(p)
}

// filterParams enforces that explicit slots/hashes come as a pair with
// hashes <= slots.
func filterParams(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(AppConfig)
	switch {
	case (cfg.Slots == 0) != (cfg.Hashes == 0):
		sl.ReportError(cfg.Hashes, "Hashes", "hashes", "slots_hashes_pair", "")
	case cfg.Hashes > cfg.Slots:
		sl.ReportError(cfg.Hashes, "Hashes", "hashes", "hashes_lte_slots", "")
	}
}

// envLoader loads CBF_* variables, lower-casing keys and stripping the prefix.
// Values containing spaces or commas become lists.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
			value = strings.TrimSpace(value)

			if value == "" {
				return key, value
			}

			if strings.Contains(value, " ") || strings.Contains(value, ",") {
				parts := strings.FieldsFunc(value, func(r rune) bool {
					return r == ' ' || r == ','
				})
				return key, parts
			}

			return key, value
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG via the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// fileLoader loads the YAML file named by CBF_CONFIG_FILE, if any.
var fileLoader = func(k *koanf.Koanf) error {
	path := strings.TrimSpace(os.Getenv(FileEnv))
	if path == "" {
		return nil
	}
	return k.Load(file.Provider(path), yaml.Parser())
}

// registerValidation installs the custom "probability" tag and the
// slots/hashes struct rule.
var registerValidation = func(v *validator.Validate) error {
	v.RegisterStructValidation(filterParams, AppConfig{})
	return v.RegisterValidation("probability", validProbability)
}

// Load builds an AppConfig from defaults, the optional file and the
// environment, then validates it.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := fileLoader(k); err != nil {
		return nil, fmt.Errorf("error loading config file: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
