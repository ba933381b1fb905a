package domain

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	MainNetwork = "mainnet"
	TestNetwork = "testnet"
)

const (
	AdapterKindWallet  = "wallet"
	AdapterKindDex     = "dex"
	AdapterKindLending = "lending"
	AdapterKindVault   = "vault"
)

var (
	ErrorInvalidNetwork = fmt.Errorf("network must be equal to 'mainnet' or 'testnet' only")

	ErrorInvalidTreausryAddress   = fmt.Errorf("invalid treasury address")
	ErrorInvalidJettonMaster      = fmt.Errorf("invalid staked jetton master address")
	ErrorInvalidDecimals          = fmt.Errorf("decimals must be between 0 and 36")
	ErrorInvalidPendingTTL        = fmt.Errorf("invalid time interval for pending cache entries")
	ErrorInvalidNegativeTTL       = fmt.Errorf("invalid time interval for failed cache entries")
	ErrorInvalidQuoteMaxAge       = fmt.Errorf("invalid maximum quote age")
	ErrorInvalidRefreshInterval   = fmt.Errorf("invalid time interval for refresh process")
	ErrorInvalidBlockTime         = fmt.Errorf("invalid block time")
	ErrorInvalidAdapter           = fmt.Errorf("invalid adapter configuration")
	ErrorDuplicateAdapter         = fmt.Errorf("protocol is configured more than once")
	ErrorInvalidParallelism       = fmt.Errorf("max_parallel_adapters must be positive")
	ErrorInvalidSuppliedSource    = fmt.Errorf("invalid supplied_source entry")
	ErrorMissingIndexDatabase     = fmt.Errorf("vault adapter requires service_db_uri")
	ErrorMissingLendingIndex      = fmt.Errorf("lending adapter requires lending_api_url")
	ErrorInvalidWatchedAddress    = fmt.Errorf("invalid watched address")
	ErrorInvalidAdapterAddress    = fmt.Errorf("invalid adapter contract address")
	ErrorInvalidCacheSize         = fmt.Errorf("cache_size must be positive")
	ErrorInvalidAPRLookbackBlocks = fmt.Errorf("apr_lookback_blocks must be positive")
)

var (
	TrailingSlashRE = regexp.MustCompile("/+$")
)

// AdapterConfig describes one protocol integration.
type AdapterConfig struct {
	Protocol   ProtocolID
	Kind       string
	Address    Address // pool or vault contract, if any
	LPMaster   Address // LP jetton master for dex pools
	DeployedAt uint64
}

type Config struct {
	Network            string
	TreasuryAddress    Address
	StakedJettonMaster Address
	StakedDecimals     uint8
	UnderlyingDecimals uint8
	UnderlyingToken    Address
	StakedSymbol       string

	DbUri         string
	QuoteAPIURL   string
	YieldsAPIURL  string
	LendingAPIURL string
	ListenAddress string
	HTTPRateLimit float64

	PendingTTL          time.Duration
	NegativeTTL         time.Duration
	CacheSize           int64
	MaxParallelAdapters int

	QuoteMaxAge       time.Duration
	RefreshInterval   time.Duration
	WatchAddresses    []Address
	APRLookbackBlocks uint64
	BlockTime         time.Duration

	Adapters []AdapterConfig

	// SuppliedSource names, per protocol, the yield component title whose
	// TotalSupplied is authoritative.
	SuppliedSource map[ProtocolID]string
}

func (c *Config) IsTestNet() bool {
	return strings.Compare(c.Network, TestNetwork) == 0
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("network", MainNetwork)
	v.SetDefault("staked_symbol", "hTON")
	v.SetDefault("staked_decimals", 9)
	v.SetDefault("underlying_decimals", 9)
	v.SetDefault("listen_address", ":8080")
	v.SetDefault("http_rate_limit", 10.0)
	v.SetDefault("pending_ttl", "60s")
	v.SetDefault("negative_ttl", "5s")
	v.SetDefault("cache_size", 10000)
	v.SetDefault("max_parallel_adapters", 4)
	v.SetDefault("quote_max_age", "30s")
	v.SetDefault("refresh_interval", "30s")
	v.SetDefault("apr_lookback_blocks", 100000)
	v.SetDefault("block_time", "5s")
}

// ReadConfig loads the config file (if any) and the environment into a Config.
func ReadConfig(filePath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if filePath != "" {
		v.SetConfigFile(filePath)
	}

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Printf("⚠️ Failed reading config file: %v\n", err.Error())
	}

	return parseConfig(v)
}

// This method processes the configuration parameters and keeps the processed values
// in a Config for later accesses rapidly.
func parseConfig(v *viper.Viper) (*Config, error) {
	var err error
	config := &Config{}

	// Network stuff
	config.Network = strings.TrimSpace(strings.ToLower(v.GetString("network")))
	if config.Network != MainNetwork && config.Network != TestNetwork {
		return nil, ErrorInvalidNetwork
	}

	// Treasury stuff
	config.TreasuryAddress, err = parseAccount(v.GetString("treasury_address"), ErrorInvalidTreausryAddress)
	if err != nil {
		return nil, err
	}
	config.StakedJettonMaster, err = parseAccount(v.GetString("staked_jetton_master"), ErrorInvalidJettonMaster)
	if err != nil {
		return nil, err
	}
	config.UnderlyingToken = Address(strings.TrimSpace(v.GetString("underlying_token")))
	config.StakedSymbol = strings.TrimSpace(v.GetString("staked_symbol"))

	stakedDecimals := v.GetInt("staked_decimals")
	underlyingDecimals := v.GetInt("underlying_decimals")
	if stakedDecimals < 0 || stakedDecimals > 36 || underlyingDecimals < 0 || underlyingDecimals > 36 {
		return nil, ErrorInvalidDecimals
	}
	config.StakedDecimals = uint8(stakedDecimals)
	config.UnderlyingDecimals = uint8(underlyingDecimals)

	// Endpoints
	config.DbUri = TrailingSlashRE.ReplaceAllString(v.GetString("service_db_uri"), "")
	config.QuoteAPIURL = TrailingSlashRE.ReplaceAllString(strings.TrimSpace(v.GetString("quote_api_url")), "")
	config.YieldsAPIURL = TrailingSlashRE.ReplaceAllString(strings.TrimSpace(v.GetString("yields_api_url")), "")
	config.LendingAPIURL = TrailingSlashRE.ReplaceAllString(strings.TrimSpace(v.GetString("lending_api_url")), "")
	config.ListenAddress = strings.TrimSpace(v.GetString("listen_address"))
	config.HTTPRateLimit = v.GetFloat64("http_rate_limit")

	//---------------------------------------------------------------
	// cache
	if config.PendingTTL, err = parseDuration(v, "pending_ttl", ErrorInvalidPendingTTL); err != nil {
		return nil, err
	}
	if config.NegativeTTL, err = parseDuration(v, "negative_ttl", ErrorInvalidNegativeTTL); err != nil {
		return nil, err
	}
	config.CacheSize = v.GetInt64("cache_size")
	if config.CacheSize <= 0 {
		return nil, ErrorInvalidCacheSize
	}
	config.MaxParallelAdapters = v.GetInt("max_parallel_adapters")
	if config.MaxParallelAdapters <= 0 {
		return nil, ErrorInvalidParallelism
	}

	//---------------------------------------------------------------
	// quotes and refresh
	if config.QuoteMaxAge, err = parseDuration(v, "quote_max_age", ErrorInvalidQuoteMaxAge); err != nil {
		return nil, err
	}
	if config.RefreshInterval, err = parseDuration(v, "refresh_interval", ErrorInvalidRefreshInterval); err != nil {
		return nil, err
	}
	if config.BlockTime, err = parseDuration(v, "block_time", ErrorInvalidBlockTime); err != nil {
		return nil, err
	}
	lookback := v.GetInt64("apr_lookback_blocks")
	if lookback <= 0 {
		return nil, ErrorInvalidAPRLookbackBlocks
	}
	config.APRLookbackBlocks = uint64(lookback)

	for _, raw := range v.GetStringSlice("watch_addresses") {
		addr, err := parseAccount(raw, ErrorInvalidWatchedAddress)
		if err != nil {
			return nil, err
		}
		config.WatchAddresses = append(config.WatchAddresses, addr)
	}

	//---------------------------------------------------------------
	// adapters
	if config.Adapters, err = parseAdapters(v, config); err != nil {
		return nil, err
	}

	config.SuppliedSource = make(map[ProtocolID]string)
	for name, title := range v.GetStringMapString("supplied_source") {
		protocol, err := ParseProtocolID(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrorInvalidSuppliedSource, err)
		}
		config.SuppliedSource[protocol] = strings.TrimSpace(title)
	}

	return config, nil
}

func parseAdapters(v *viper.Viper, config *Config) ([]AdapterConfig, error) {
	var raw []struct {
		Protocol   string `mapstructure:"protocol"`
		Kind       string `mapstructure:"kind"`
		Address    string `mapstructure:"address"`
		LPMaster   string `mapstructure:"lp_master"`
		DeployedAt uint64 `mapstructure:"deployed_at"`
	}
	if err := v.UnmarshalKey("adapters", &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrorInvalidAdapter, err)
	}

	seen := make(map[ProtocolID]bool, len(raw))
	adapters := make([]AdapterConfig, 0, len(raw))
	for _, r := range raw {
		protocol, err := ParseProtocolID(r.Protocol)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrorInvalidAdapter, err)
		}
		if seen[protocol] {
			return nil, fmt.Errorf("%w: %v", ErrorDuplicateAdapter, protocol)
		}
		seen[protocol] = true

		kind := strings.ToLower(strings.TrimSpace(r.Kind))
		if kind == "" {
			kind = protocol.String()
		}

		adapter := AdapterConfig{
			Protocol:   protocol,
			Kind:       kind,
			DeployedAt: r.DeployedAt,
		}

		switch kind {
		case AdapterKindWallet:
		case AdapterKindDex:
			if adapter.Address, err = parseAccount(r.Address, ErrorInvalidAdapterAddress); err != nil {
				return nil, err
			}
			if adapter.LPMaster, err = parseAccount(r.LPMaster, ErrorInvalidAdapterAddress); err != nil {
				return nil, err
			}
		case AdapterKindLending:
			if config.LendingAPIURL == "" {
				return nil, ErrorMissingLendingIndex
			}
		case AdapterKindVault:
			if config.DbUri == "" {
				return nil, ErrorMissingIndexDatabase
			}
			adapter.Address = Address(strings.TrimSpace(r.Address))
		default:
			return nil, fmt.Errorf("%w: unknown kind %q", ErrorInvalidAdapter, kind)
		}

		adapters = append(adapters, adapter)
	}
	return adapters, nil
}

func parseDuration(v *viper.Viper, key string, invalid error) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil || d <= 0 {
		return 0, invalid
	}
	return d, nil
}

func parseAccount(raw string, invalid error) (Address, error) {
	address, err := ParseAddress(raw)
	if err != nil {
		return "", invalid
	}
	return address, nil
}
