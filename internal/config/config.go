package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/digiswap/stats-api/internal/domain"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
}

// ContractsConfig holds the well-known contract addresses of one chain
type ContractsConfig struct {
	Multicall         string   `mapstructure:"multicall"`
	MasterChef        string   `mapstructure:"master_chef"`
	MiniChef          string   `mapstructure:"mini_chef"`
	Digichain         string   `mapstructure:"digichain"`
	GoldenDigichain   string   `mapstructure:"golden_digichain"`
	BurnAddress       string   `mapstructure:"burn_address"`
	PriceGetter       string   `mapstructure:"price_getter"`
	Treasury          string   `mapstructure:"treasury"`
	Operational       string   `mapstructure:"operational"`
	BillNFTs          []string `mapstructure:"bill_nfts"`
	LendingUnitroller string   `mapstructure:"lending_unitroller"`
}

// IncentivizedPoolConfig names one fixed-duration reward pool
type IncentivizedPoolConfig struct {
	ID          int    `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	Address     string `mapstructure:"address"`
	StakedToken string `mapstructure:"staked_token"`
	StakedIsLP  bool   `mapstructure:"staked_is_lp"`
	RewardToken string `mapstructure:"reward_token"`
}

// OperationalAsset names one token tracked in the operational treasury wallet
type OperationalAsset struct {
	Address string `mapstructure:"address"`
	Name    string `mapstructure:"name"`
	IsLP    bool   `mapstructure:"is_lp"`
	Partner bool   `mapstructure:"partner"`
}

// ChainConfig holds the typed per-chain configuration, resolved once at
// startup and injected into the engines
type ChainConfig struct {
	ChainID           domain.ChainID           `mapstructure:"chain_id"`
	Nodes             []string                 `mapstructure:"nodes"`
	ArchiveNode       string                   `mapstructure:"archive_node"`
	WebSocketURL      string                   `mapstructure:"websocket_url"`
	SubgraphURL       string                   `mapstructure:"subgraph_url"`
	FeeLP             float64                  `mapstructure:"fee_lp"`
	BillsStartBlock   uint64                   `mapstructure:"bills_start_block"`
	Contracts         ContractsConfig          `mapstructure:"contracts"`
	IncentivizedPools []IncentivizedPoolConfig `mapstructure:"incentivized_pools"`
	OperationalAssets []OperationalAsset       `mapstructure:"operational_assets"`
}

// BitqueryConfig holds the analytics provider configuration
type BitqueryConfig struct {
	URL               string  `mapstructure:"url"`
	APIKey            string  `mapstructure:"api_key"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// ListsConfig holds the hosted token/bill list URLs
type ListsConfig struct {
	TokenListURL       string `mapstructure:"token_list_url"`
	BillListURL        string `mapstructure:"bill_list_url"`
	BillImageURL       string `mapstructure:"bill_image_url"`
	HiddenBillImageURL string `mapstructure:"hidden_bill_image_url"`
}

// FreshnessConfig holds the cache windows of the snapshot policies
type FreshnessConfig struct {
	MemoryTTL      time.Duration `mapstructure:"memory_ttl"`
	StoreTTL       time.Duration `mapstructure:"store_ttl"`
	ComputeTimeout time.Duration `mapstructure:"compute_timeout"`
}

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	PoolSize  int `mapstructure:"pool_size"`
	QueueSize int `mapstructure:"queue_size"`
}

// APIConfig holds configuration for the API server
type APIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig           `mapstructure:"server"`
	Database   DatabaseConfig         `mapstructure:"database"`
	Bitquery   BitqueryConfig         `mapstructure:"bitquery"`
	Lists      ListsConfig            `mapstructure:"lists"`
	Freshness  FreshnessConfig        `mapstructure:"freshness"`
	Worker     WorkerConfig           `mapstructure:"worker"`
	Chains     map[string]ChainConfig `mapstructure:"chains"`
}

// BackfillerConfig holds configuration for the history backfiller
type BackfillerConfig struct {
	BaseConfig       `mapstructure:",squash"`
	Database         DatabaseConfig         `mapstructure:"database"`
	Bitquery         BitqueryConfig         `mapstructure:"bitquery"`
	Lists            ListsConfig            `mapstructure:"lists"`
	Freshness        FreshnessConfig        `mapstructure:"freshness"`
	Worker           WorkerConfig           `mapstructure:"worker"`
	Chains           map[string]ChainConfig `mapstructure:"chains"`
	BackfillSchedule string                 `mapstructure:"backfill_schedule"`
	RefreshSchedule  string                 `mapstructure:"refresh_schedule"`
}

// Chain resolves the typed config of one network by chain id
func Chain(chains map[string]ChainConfig, id domain.ChainID) (*ChainConfig, error) {
	for _, c := range chains {
		if c.ChainID == id {
			chain := c
			return &chain, nil
		}
	}
	return nil, fmt.Errorf("no configuration for chain %d: %w", uint64(id), domain.ErrUnsupportedChain)
}

// LoadAPIConfig loads configuration for the API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.idle_timeout", 120)
	setSharedDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config APIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateChains(config.Chains); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadBackfillerConfig loads configuration for the history backfiller
func LoadBackfillerConfig(configFile string, envPath string) (*BackfillerConfig, error) {
	v := configureViper("backfiller", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("backfill_schedule", "0 1 * * *")   // daily at 01:00 UTC
	v.SetDefault("refresh_schedule", "*/10 * * * *") // every 10 minutes
	setSharedDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config BackfillerConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateChains(config.Chains); err != nil {
		return nil, err
	}

	return &config, nil
}

// setSharedDefaults applies the defaults common to every binary
func setSharedDefaults(v *viper.Viper) {
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("freshness.memory_ttl", "120s")
	v.SetDefault("freshness.store_ttl", "300s")
	v.SetDefault("freshness.compute_timeout", "4m")
	v.SetDefault("worker.pool_size", 20)
	v.SetDefault("worker.queue_size", 256)
	v.SetDefault("bitquery.url", "https://graphql.bitquery.io")
	v.SetDefault("bitquery.requests_per_second", 5)
	v.SetDefault("bitquery.burst", 5)
	v.SetDefault("chains.bsc.chain_id", 56)
	v.SetDefault("chains.bsc.fee_lp", 0.0017)
	v.SetDefault("chains.polygon.chain_id", 137)
	v.SetDefault("chains.polygon.fee_lp", 0.0017)
	v.SetDefault("chains.telos.chain_id", 40)
	v.SetDefault("chains.telos.fee_lp", 0.0017)
}

// validateChains rejects chain blocks with missing required fields
func validateChains(chains map[string]ChainConfig) error {
	for name, c := range chains {
		if !domain.IsValidChain(c.ChainID) {
			return fmt.Errorf("chains.%s: unknown chain id %d", name, uint64(c.ChainID))
		}
		if len(c.Nodes) == 0 {
			return fmt.Errorf("chains.%s: at least one node url is required", name)
		}
		if c.Contracts.Multicall == "" {
			return fmt.Errorf("chains.%s: contracts.multicall is required", name)
		}
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Service-specific directory (e.g., cmd/api/, cmd/backfiller/)
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("DIGISWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	commonKeys := []string{
		"debug",
		"sentry_dsn",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		// Bitquery
		"bitquery.url",
		"bitquery.api_key",
		"bitquery.requests_per_second",
		"bitquery.burst",
		// Lists
		"lists.token_list_url",
		"lists.bill_list_url",
		"lists.bill_image_url",
		"lists.hidden_bill_image_url",
		// Freshness
		"freshness.memory_ttl",
		"freshness.store_ttl",
		"freshness.compute_timeout",
		// Worker
		"worker.pool_size",
		"worker.queue_size",
		// Schedules
		"backfill_schedule",
		"refresh_schedule",
	}

	// Per-chain keys follow chains.<name>.<key>
	chainKeys := []string{
		"chain_id",
		"nodes",
		"archive_node",
		"websocket_url",
		"subgraph_url",
		"fee_lp",
		"bills_start_block",
		"contracts.multicall",
		"contracts.master_chef",
		"contracts.mini_chef",
		"contracts.digichain",
		"contracts.golden_digichain",
		"contracts.burn_address",
		"contracts.price_getter",
		"contracts.treasury",
		"contracts.operational",
		"contracts.bill_nfts",
		"contracts.lending_unitroller",
	}
	for _, name := range []string{"bsc", "polygon", "telos"} {
		for _, key := range chainKeys {
			commonKeys = append(commonKeys, fmt.Sprintf("chains.%s.%s", name, key))
		}
	}

	for _, key := range commonKeys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
