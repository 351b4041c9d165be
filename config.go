package polaris

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/polarisdb/polaris/internal/logging"
	"github.com/polarisdb/polaris/internal/metrics"
	"github.com/polarisdb/polaris/types"
)

// ClientConfig holds configuration for polaris clients.
type ClientConfig struct {
	Logger         types.Logger
	Metrics        types.MetricsCollector
	RegionNames    types.RegionNames
	RefreshTimeout time.Duration
}

// DefaultConfig returns a ClientConfig with sensible defaults.
//
// Defaults:
//   - Logger: no-op logger
//   - Metrics: no-op collector
//   - RegionNames: empty (numeric region ids in log fields)
//   - RefreshTimeout: 10 seconds per routing map fetch
//
// Returns:
//   - *ClientConfig: Configuration with default settings
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Logger:         logging.NewNopLogger(),
		Metrics:        metrics.NewNopMetrics(),
		RegionNames:    types.RegionNames{},
		RefreshTimeout: 10 * time.Second,
	}
}

// Option configures a ClientConfig.
type Option func(*ClientConfig)

// WithLogger sets the structured logger.
//
// If not set, a no-op logger is used that discards all messages.
// The logger interface is compatible with zap.SugaredLogger.
//
// Parameters:
//   - logger: The logger implementation
//
// Returns:
//   - Option: Configuration option
func WithLogger(logger types.Logger) Option {
	return func(c *ClientConfig) {
		c.Logger = logger
	}
}

// WithMetrics sets the metrics collector.
//
// If not set, a no-op collector is used that discards all metrics.
// Use contrib/metrics/vm.New() for VictoriaMetrics integration.
//
// Parameters:
//   - collector: The metrics collector implementation
//
// Returns:
//   - Option: Configuration option
//
// Example:
//
//	import vmmetrics "github.com/polarisdb/polaris/contrib/metrics/vm"
//
//	collector := vmmetrics.New(vmmetrics.WithPrefix("myapp"))
//	client, _ := polaris.NewClient(fetcher,
//	    polaris.WithMetrics(collector),
//	)
func WithMetrics(collector types.MetricsCollector) Option {
	return func(c *ClientConfig) {
		c.Metrics = collector
	}
}

// WithRegionNames sets display names for region ids.
//
// These names are used in log messages instead of raw numeric region ids.
// Names must be Prometheus-compatible (alphanumeric with underscores,
// starting with letter or underscore, max 32 chars).
//
// Parameters:
//   - names: Mapping from region id to display name
//
// Returns:
//   - Option: Configuration option
//
// Example:
//
//	client, _ := polaris.NewClient(fetcher,
//	    polaris.WithRegionNames(polaris.RegionNames{1: "us_east", 2: "us_west"}),
//	)
func WithRegionNames(names types.RegionNames) Option {
	return func(c *ClientConfig) {
		c.RegionNames = names
	}
}

// WithRefreshTimeout bounds each routing map metadata fetch.
//
// The timeout applies around the Fetcher call that produces routing map
// input; the pure routing and session computations are never bounded.
// A zero duration disables the bound.
//
// Parameters:
//   - d: Timeout per fetch
//
// Returns:
//   - Option: Configuration option
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *ClientConfig) {
		c.RefreshTimeout = d
	}
}

// FileConfig is the YAML form of the client configuration, for deployments
// that configure region names and cache tuning from a file.
type FileConfig struct {
	// Regions maps numeric region ids to display names.
	Regions []RegionConfig `yaml:"regions"`

	// RefreshTimeoutMs bounds each routing map fetch, in milliseconds.
	// Zero disables the bound.
	RefreshTimeoutMs int64 `yaml:"refreshTimeoutMs"`
}

// RegionConfig names one region in a FileConfig.
type RegionConfig struct {
	ID   int32  `yaml:"id"`
	Name string `yaml:"name"`
}

// LoadConfig reads a FileConfig from a YAML file.
//
// Parameters:
//   - path: The config file path
//
// Returns:
//   - *FileConfig: The parsed configuration
//   - error: Read, parse, or validation error
func LoadConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("polaris: read config: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("polaris: parse config: %w", err)
	}

	if err := fc.regionNames().Validate(); err != nil {
		return nil, err
	}

	return &fc, nil
}

// Options converts the file configuration into client options.
//
// Returns:
//   - []Option: Options applying the file's settings
func (fc *FileConfig) Options() []Option {
	opts := []Option{
		WithRegionNames(fc.regionNames()),
	}
	if fc.RefreshTimeoutMs > 0 {
		opts = append(opts, WithRefreshTimeout(time.Duration(fc.RefreshTimeoutMs)*time.Millisecond))
	}

	return opts
}

func (fc *FileConfig) regionNames() types.RegionNames {
	names := make(types.RegionNames, len(fc.Regions))
	for _, region := range fc.Regions {
		names[types.RegionID(region.ID)] = region.Name
	}

	return names
}
