// Package config loads run configuration from an optional YAML file,
// SALIENCY_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tunogya/saliency/pkg/data"
	"github.com/tunogya/saliency/pkg/saliency"
	"github.com/tunogya/saliency/pkg/store"
)

// EnvPrefix prefixes every environment override, e.g. SALIENCY_OUTPUT_PATH
const EnvPrefix = "SALIENCY"

// Config holds the settings of a shaping run
type Config struct {
	Datasets []string           `mapstructure:"datasets" validate:"required,min=1,dive,required"`
	Metadata map[string]Dataset `mapstructure:"metadata" validate:"dive"`
	Metrics  []string           `mapstructure:"metrics" validate:"dive,metric"`

	Parallel     bool `mapstructure:"parallel"`
	Workers      int  `mapstructure:"workers" validate:"gte=0"`
	Separate     bool `mapstructure:"separate"`
	SkipInverted bool `mapstructure:"skip_inverted"`

	Input  InputConfig  `mapstructure:"input"`
	Output OutputConfig `mapstructure:"output"`
	Noise  NoiseConfig  `mapstructure:"noise"`
	FARM   FARMConfig   `mapstructure:"farm"`
	DTW    DTWConfig    `mapstructure:"dtw"`
	DuckDB DuckDBConfig `mapstructure:"duckdb"`
	NATS   NATSConfig   `mapstructure:"nats"`
	Log    LogConfig    `mapstructure:"log"`

	// MetricsFile receives a Prometheus textfile dump after the run
	MetricsFile string `mapstructure:"metrics_file"`
}

type InputConfig struct {
	Root string `mapstructure:"root" validate:"required"`
}

type OutputConfig struct {
	Path   string `mapstructure:"path" validate:"required"`
	Format string `mapstructure:"format" validate:"oneof=csv parquet"`
}

type NoiseConfig struct {
	Seed uint64 `mapstructure:"seed"`
}

type FARMConfig struct {
	Fuzziness float64 `mapstructure:"fuzziness" validate:"gt=0"`
}

type DTWConfig struct {
	Band    int  `mapstructure:"band" validate:"gte=0"`
	Pruning bool `mapstructure:"pruning"`
}

type DuckDBConfig struct {
	Path string `mapstructure:"path" validate:"required"`
	// KeepTables leaves the staging tables in the database after export
	KeepTables bool `mapstructure:"keep_tables"`
}

// NATSConfig enables artifact announcements when URL is set
type NATSConfig struct {
	URL    string `mapstructure:"url" validate:"omitempty,url"`
	Stream string `mapstructure:"stream"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

func setDefaults(v *viper.Viper) {
	defaults := saliency.DefaultOptions()

	v.SetDefault("datasets", []string{})
	v.SetDefault("metrics", kindNames(saliency.DefaultKinds()))
	v.SetDefault("parallel", true)
	v.SetDefault("workers", 0)
	v.SetDefault("separate", true)
	v.SetDefault("skip_inverted", false)
	v.SetDefault("input.root", "./data")
	v.SetDefault("output.path", "./processed_data")
	v.SetDefault("output.format", string(store.FormatCSV))
	v.SetDefault("noise.seed", defaults.Seed)
	v.SetDefault("farm.fuzziness", defaults.Fuzziness)
	v.SetDefault("dtw.band", defaults.DTWBand)
	v.SetDefault("dtw.pruning", defaults.DTWPruning)
	v.SetDefault("duckdb.path", ":memory:")
	v.SetDefault("duckdb.keep_tables", false)
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.stream", "saliency")
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics_file", "")
}

// Load reads the configuration. path may be empty, flags may be nil; flags
// are bound by name, so nested keys use dotted flag names like "output.path".
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks field constraints and that every dataset resolves to metadata
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	for _, id := range c.Datasets {
		if _, err := c.Dataset(id); err != nil {
			return err
		}
	}
	return nil
}

// Dataset resolves the metadata of id, preferring configured entries over the
// built-in registry
func (c *Config) Dataset(id string) (Dataset, error) {
	if d, ok := lookup(c.Metadata, id); ok {
		return d, nil
	}
	if d, ok := lookup(Builtin(), id); ok {
		return d, nil
	}
	return Dataset{}, fmt.Errorf("no metadata for dataset %q", id)
}

// Catalog returns the data catalog of the configured datasets
func (c *Config) Catalog() (map[string]data.Entry, error) {
	catalog := make(map[string]data.Entry, len(c.Datasets))
	for _, id := range c.Datasets {
		d, err := c.Dataset(id)
		if err != nil {
			return nil, err
		}
		catalog[id] = d.Entry()
	}
	return catalog, nil
}

// Kinds parses the configured metric names in order
func (c *Config) Kinds() ([]saliency.Kind, error) {
	kinds := make([]saliency.Kind, 0, len(c.Metrics))
	for _, name := range c.Metrics {
		k, err := saliency.ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// MetricOptions returns the metric tuning derived from the configuration
func (c *Config) MetricOptions() saliency.Options {
	return saliency.Options{
		Seed:       c.Noise.Seed,
		Fuzziness:  c.FARM.Fuzziness,
		DTWBand:    c.DTW.Band,
		DTWPruning: c.DTW.Pruning,
	}
}

// OutputFormat returns the parsed output format
func (c *Config) OutputFormat() store.Format {
	f, err := store.ParseFormat(c.Output.Format)
	if err != nil {
		return store.FormatCSV
	}
	return f
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("metric", func(fl validator.FieldLevel) bool {
		_, err := saliency.ParseKind(fl.Field().String())
		return err == nil
	})
	return v
}

func kindNames(kinds []saliency.Kind) []string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}
