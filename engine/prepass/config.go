package prepass

import (
	"fmt"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-prepass/common"
	"github.com/Carmen-Shannon/oxy-prepass/engine/profiler"
	"github.com/Carmen-Shannon/oxy-prepass/engine/texture_cache"
	"gopkg.in/yaml.v3"
)

// Config is the file form of the prepass settings.
//
//	workers: 4
//	texture_retention_frames: 3
//	depth_clear_value: 1.0
//	shader_key: prepass
//	profiling: true
//	profiling_interval: 2s
type Config struct {
	Workers                int      `yaml:"workers"`
	TextureRetentionFrames int      `yaml:"texture_retention_frames"`
	DepthClearValue        *float32 `yaml:"depth_clear_value"`
	ShaderKey              string   `yaml:"shader_key"`
	Profiling              bool     `yaml:"profiling"`
	ProfilingInterval      string   `yaml:"profiling_interval"`
}

// LoadConfig reads and parses a YAML config file.
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - Config: the parsed config
//   - error: error if the file cannot be read or parsed
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read prepass config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML config and validates it.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - Config: the parsed config
//   - error: error if the document is malformed or holds invalid values
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse prepass config: %w", err)
	}
	if cfg.Workers < 0 {
		return Config{}, fmt.Errorf("invalid prepass config: workers must not be negative, got %d", cfg.Workers)
	}
	if cfg.TextureRetentionFrames < 0 {
		return Config{}, fmt.Errorf("invalid prepass config: texture_retention_frames must not be negative, got %d", cfg.TextureRetentionFrames)
	}
	if d := cfg.DepthClearValue; d != nil && *d != 0 && *d != 1 {
		return Config{}, fmt.Errorf("invalid prepass config: depth_clear_value must be 0 or 1, got %v", *d)
	}
	if _, err := cfg.profilingInterval(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// profilingInterval parses ProfilingInterval, defaulting to one second.
func (c Config) profilingInterval() (time.Duration, error) {
	raw := common.Coalesce(c.ProfilingInterval, "1s")
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid prepass config: profiling_interval %q: %w", raw, err)
	}
	return d, nil
}

// Options converts the config into prepass builder options. Unset fields keep their defaults.
//
// Returns:
//   - []PrepassBuilderOption: options for NewPrepass
func (c Config) Options() []PrepassBuilderOption {
	options := []PrepassBuilderOption{
		WithShaderKey(common.Coalesce(c.ShaderKey, DefaultShaderKey)),
	}
	if c.Workers > 0 {
		options = append(options, WithWorkers(c.Workers))
	}
	if c.DepthClearValue != nil {
		options = append(options, WithDepthClearValue(*c.DepthClearValue))
	}
	if c.Profiling {
		interval, err := c.profilingInterval()
		if err != nil {
			common.Logger().Warn("profiling interval falls back to 1s", "error", err)
			interval = time.Second
		}
		options = append(options, WithProfiler(profiler.NewProfiler(profiler.WithInterval(interval))))
	}
	return options
}

// TextureCacheOptions converts the config into texture cache builder options.
//
// Returns:
//   - []texture_cache.TextureCacheBuilderOption: options for texture_cache.NewTextureCache
func (c Config) TextureCacheOptions() []texture_cache.TextureCacheBuilderOption {
	return []texture_cache.TextureCacheBuilderOption{
		texture_cache.WithRetentionFrames(common.Coalesce(c.TextureRetentionFrames, texture_cache.DefaultRetentionFrames)),
	}
}
