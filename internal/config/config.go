package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"cotacoes-ledger/internal/logging"
	"cotacoes-ledger/internal/netcopy"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Window   WindowConfig   `mapstructure:"window"`
	Network  NetworkConfig  `mapstructure:"network"`
	Database DatabaseConfig `mapstructure:"database"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// LedgerConfig locates the workbook tree and fixes the official spread.
type LedgerConfig struct {
	// Dir is the local data root; the workbook lives under Dir/Folder.
	Dir          string `mapstructure:"dir"`
	Folder       string `mapstructure:"folder"`
	WorkbookName string `mapstructure:"workbook_name"`
	CSVName      string `mapstructure:"csv_name"`
	// Spread is kept as text so the exact decimal survives into the sale
	// price derivation.
	Spread string `mapstructure:"spread"`
}

// WorkbookPath is the local workbook location.
func (c LedgerConfig) WorkbookPath() string {
	return filepath.Join(c.Dir, c.Folder, c.WorkbookName)
}

// CSVPath is the local CSV mirror location.
func (c LedgerConfig) CSVPath() string {
	return filepath.Join(c.Dir, c.Folder, c.CSVName)
}

// SpreadDecimal parses the configured spread.
func (c LedgerConfig) SpreadDecimal() (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(c.Spread))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("ledger.spread invalido: %q", c.Spread)
	}
	return value, nil
}

// FetchConfig parameterises the HTTP fetchers.
type FetchConfig struct {
	// MaxWorkers stays textual: a malformed value falls back to the default
	// with a warning instead of failing the run.
	MaxWorkers        string        `mapstructure:"max_workers"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	AwesomeAPIBaseURL string        `mapstructure:"awesomeapi_base_url"`
	PtaxBaseURL       string        `mapstructure:"ptax_base_url"`
	SGSBaseURL        string        `mapstructure:"sgs_base_url"`
}

// ResolveMaxWorkers parses the worker override. Zero means "no override";
// malformed or negative values degrade to that with a warning.
func (c FetchConfig) ResolveMaxWorkers(logger zerolog.Logger) int {
	text := strings.TrimSpace(c.MaxWorkers)
	if text == "" {
		return 0
	}
	value, err := strconv.Atoi(text)
	if err != nil || value < 1 {
		logger.Warn().Str("value", text).Msg("fetch.max_workers invalid; using default")
		return 0
	}
	return value
}

// WindowConfig sets the admission boundaries as local "HH:MM" times.
type WindowConfig struct {
	MorningCutoff string `mapstructure:"morning_cutoff"`
	PtaxFrom      string `mapstructure:"ptax_from"`
}

// NetworkConfig governs replication to shared destinations. An empty Dirs
// disables replication entirely.
type NetworkConfig struct {
	// Dirs is a ";"-separated destination list, tried in order.
	Dirs       string `mapstructure:"dirs"`
	DestFolder string `mapstructure:"dest_folder"`
}

// Destinations returns the parsed destination list.
func (c NetworkConfig) Destinations() []string {
	return netcopy.ParseDirs(c.Dirs)
}

// DatabaseConfig encapsulates PostgreSQL connectivity for the optional run
// history. An empty DSN disables persistence.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	OutputDir     string `mapstructure:"output_dir"`
	MaxDataPoints int    `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("COTACOES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy variable names from earlier deployments keep working.
	_ = v.BindEnv("fetch.max_workers", "COTACOES_FETCH_MAX_WORKERS", "COTACOES_MAX_WORKERS")
	_ = v.BindEnv("network.dirs", "COTACOES_NETWORK_DIRS", "COTACOES_NETWORK_DIR")
	_ = v.BindEnv("network.dest_folder", "COTACOES_NETWORK_DEST_FOLDER")

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "cotacoes")
	v.SetDefault("app.environment", "production")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.service", "cotacoes")

	v.SetDefault("ledger.dir", "dados")
	v.SetDefault("ledger.folder", "planilhas")
	v.SetDefault("ledger.workbook_name", "cotacoes.xlsx")
	v.SetDefault("ledger.csv_name", "cotacoes.csv")
	v.SetDefault("ledger.spread", "0.0020")

	v.SetDefault("fetch.request_timeout", "20s")
	v.SetDefault("fetch.user_agent", "cotacoes-ledger/1.0")

	v.SetDefault("window.morning_cutoff", "08:30")
	v.SetDefault("window.ptax_from", "13:10")

	v.SetDefault("network.dest_folder", "cotacoes")

	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.advisory_lock_key", int64(0x636f7461))

	v.SetDefault("export.output_dir", "export")
	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Ledger.Dir) == "" {
		return fmt.Errorf("ledger.dir must not be empty")
	}
	if strings.TrimSpace(c.Ledger.WorkbookName) == "" {
		return fmt.Errorf("ledger.workbook_name must not be empty")
	}
	if _, err := c.Ledger.SpreadDecimal(); err != nil {
		return err
	}
	if _, _, err := ParseClock(c.Window.MorningCutoff); err != nil {
		return fmt.Errorf("window.morning_cutoff: %w", err)
	}
	if _, _, err := ParseClock(c.Window.PtaxFrom); err != nil {
		return fmt.Errorf("window.ptax_from: %w", err)
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if len(c.Network.Destinations()) > 0 && strings.TrimSpace(c.Network.DestFolder) == "" {
		return fmt.Errorf("network.dest_folder must be set when network.dirs is configured")
	}
	return nil
}

// ParseClock parses a "HH:MM" boundary.
func ParseClock(text string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(text), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("horario invalido: %q", text)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("horario invalido: %q", text)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("horario invalido: %q", text)
	}
	return hour, minute, nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
