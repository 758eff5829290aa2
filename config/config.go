package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/pricebt/signal"
)

// Output formats.
const (
	FormatJSON   = "json"
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

// Families in the order batches run them.
var Families = []string{
	signal.FamilyDualMA,
	signal.FamilySingleMA,
	signal.FamilyRSI,
	signal.FamilyBollinger,
}

// Config represents a complete backtest batch configuration
type Config struct {
	Data       DataConfig       `json:"data" yaml:"data"`
	Strategies StrategiesConfig `json:"strategies" yaml:"strategies"`
	Output     OutputConfig     `json:"output" yaml:"output"`
	Workers    int              `json:"workers" yaml:"workers"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
}

// DataConfig locates the enriched price history.
type DataConfig struct {
	Path string `json:"path" yaml:"path"`
}

// StrategiesConfig lists the configurations to try per family. A family with
// no periods is skipped.
type StrategiesConfig struct {
	SingleMA  PeriodsConfig `json:"single_ma" yaml:"single_ma"`
	DualMA    PairsConfig   `json:"dual_ma" yaml:"dual_ma"`
	RSI       RSIConfig     `json:"rsi" yaml:"rsi"`
	Bollinger PeriodsConfig `json:"bollinger" yaml:"bollinger"`
}

type PeriodsConfig struct {
	Periods []int `json:"periods" yaml:"periods,flow"`
}

type PairsConfig struct {
	Pairs []Pair `json:"pairs" yaml:"pairs"`
}

// Pair is a fast/slow moving average combination.
type Pair struct {
	Short int `json:"short" yaml:"short"`
	Long  int `json:"long" yaml:"long"`
}

type RSIConfig struct {
	Periods   []int   `json:"periods" yaml:"periods,flow"`
	BuyLevel  float64 `json:"buy_level" yaml:"buy_level"`
	SellLevel float64 `json:"sell_level" yaml:"sell_level"`
}

// OutputConfig says where batch artifacts go
type OutputConfig struct {
	Dir     string   `json:"dir" yaml:"dir"`
	Formats []string `json:"formats" yaml:"formats,flow"`
	DBPath  string   `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// HasFormat reports whether format f is enabled.
func (o OutputConfig) HasFormat(f string) bool {
	return slices.Contains(o.Formats, f)
}

type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json or console
}

// LoadFromFile loads configuration from a YAML or JSON file. Fields the file
// leaves out keep their Default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	for _, p := range c.Strategies.SingleMA.Periods {
		if p <= 0 {
			return fmt.Errorf("strategies.single_ma.periods must be positive, got %d", p)
		}
	}
	for _, p := range c.Strategies.DualMA.Pairs {
		if p.Short <= 0 || p.Long <= 0 {
			return fmt.Errorf("strategies.dual_ma.pairs must be positive, got (%d,%d)", p.Short, p.Long)
		}
		if p.Short >= p.Long {
			return fmt.Errorf("strategies.dual_ma.pairs short must be less than long, got (%d,%d)", p.Short, p.Long)
		}
	}
	for _, p := range c.Strategies.RSI.Periods {
		if p <= 0 {
			return fmt.Errorf("strategies.rsi.periods must be positive, got %d", p)
		}
	}
	rsi := c.Strategies.RSI
	if rsi.BuyLevel <= 0 || rsi.SellLevel >= 100 || rsi.BuyLevel >= rsi.SellLevel {
		return fmt.Errorf("strategies.rsi levels must satisfy 0 < buy_level < sell_level < 100")
	}
	for _, p := range c.Strategies.Bollinger.Periods {
		if p <= 0 {
			return fmt.Errorf("strategies.bollinger.periods must be positive, got %d", p)
		}
	}

	if len(c.Output.Formats) == 0 {
		return fmt.Errorf("output.formats is required")
	}
	for _, f := range c.Output.Formats {
		switch f {
		case FormatJSON, FormatCSV:
			if c.Output.Dir == "" {
				return fmt.Errorf("output.dir required for %s output", f)
			}
		case FormatSQLite:
			if c.Output.DBPath == "" {
				return fmt.Errorf("output.db_path required for sqlite output")
			}
		default:
			return fmt.Errorf("output.formats: unknown format %q (want json, csv or sqlite)", f)
		}
	}

	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}
	return nil
}

// FamilyConfigs returns the configurations of one family in file order.
func (c *Config) FamilyConfigs(family string) ([]signal.Config, error) {
	var out []signal.Config
	s := c.Strategies
	switch family {
	case signal.FamilySingleMA:
		for _, p := range s.SingleMA.Periods {
			out = append(out, signal.Config{Family: family, Period: p})
		}
	case signal.FamilyDualMA:
		for _, p := range s.DualMA.Pairs {
			out = append(out, signal.Config{Family: family, Fast: p.Short, Slow: p.Long})
		}
	case signal.FamilyRSI:
		buy, sell := decimal.NewFromFloat(s.RSI.BuyLevel), decimal.NewFromFloat(s.RSI.SellLevel)
		for _, p := range s.RSI.Periods {
			out = append(out, signal.Config{Family: family, Period: p, Buy: buy, Sell: sell})
		}
	case signal.FamilyBollinger:
		for _, p := range s.Bollinger.Periods {
			out = append(out, signal.Config{Family: family, Period: p})
		}
	default:
		return nil, fmt.Errorf("unknown strategy family %q", family)
	}
	return out, nil
}

// Configs returns the configurations of the named families, or of every
// family when none are named, grouped by family in batch order.
func (c *Config) Configs(families ...string) ([]signal.Config, error) {
	if len(families) == 0 {
		families = Families
	}
	for _, f := range families {
		if !slices.Contains(Families, f) {
			return nil, fmt.Errorf("unknown strategy family %q", f)
		}
	}

	var out []signal.Config
	for _, f := range Families {
		if !slices.Contains(families, f) {
			continue
		}
		cs, err := c.FamilyConfigs(f)
		if err != nil {
			return nil, err
		}
		out = append(out, cs...)
	}
	return out, nil
}

// Default returns the standard research grid across every family.
func Default() *Config {
	periods := []int{5, 7, 14, 20, 90, 180, 365}
	return &Config{
		Strategies: StrategiesConfig{
			SingleMA: PeriodsConfig{Periods: slices.Clone(periods)},
			DualMA: PairsConfig{Pairs: []Pair{
				{5, 20}, {7, 90}, {14, 90}, {20, 90},
				{14, 180}, {20, 180}, {90, 180}, {90, 365},
			}},
			RSI: RSIConfig{
				Periods:   []int{7, 14},
				BuyLevel:  30,
				SellLevel: 70,
			},
			Bollinger: PeriodsConfig{Periods: slices.Clone(periods)},
		},
		Output: OutputConfig{
			Dir:     "./backtests",
			Formats: []string{FormatJSON},
			DBPath:  "./backtests/runs.db",
		},
		Workers: 4,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
