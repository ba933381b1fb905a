package cmd

import (
	"database/sql"
	"fmt"
	"log"

	"dashboard/domain"
	"dashboard/infrastructure/chain"
	"dashboard/infrastructure/dbhandler"
	"dashboard/interface/adapter"
	"dashboard/interface/exporter"
	"dashboard/interface/gateway"
	"dashboard/interface/repository"
	"dashboard/usecase"

	"github.com/prometheus/client_golang/prometheus"
)

type dependencies struct {
	config  *domain.Config
	engine  *usecase.Engine
	metrics *exporter.Metrics
	dbPool  *sql.DB
}

func (d *dependencies) Close() {
	if d.engine != nil {
		d.engine.Close()
	}
	if d.dbPool != nil {
		d.dbPool.Close()
	}
}

// defaultDependencyInject builds one Engine from the config file.
func defaultDependencyInject() (*dependencies, error) {
	config, err := domain.ReadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	deps := &dependencies{
		config:  config,
		metrics: exporter.NewMetrics(prometheus.DefaultRegisterer),
	}

	tonChain, err := chain.NewTonChain(config.Network)
	if err != nil {
		return nil, err
	}

	adapters, err := deps.buildAdapters(tonChain)
	if err != nil {
		deps.Close()
		return nil, err
	}

	var quoter usecase.SwapQuoter
	if config.QuoteAPIURL != "" {
		quoter = gateway.NewQuoteClient(config.QuoteAPIURL, config.HTTPRateLimit, config.StakedDecimals, config.UnderlyingDecimals)
	} else {
		log.Printf("⚠️ quote_api_url is not set, unstake quotes use the native route only\n")
	}

	sources := make([]usecase.YieldSource, 0, 1)
	if config.YieldsAPIURL != "" {
		sources = append(sources, gateway.NewYieldsClient(config.YieldsAPIURL, config.HTTPRateLimit, config.StakedSymbol, config.StakedDecimals))
	}

	deps.engine, err = usecase.NewEngine(usecase.EngineDeps{
		Config:       config,
		Chain:        tonChain,
		Pool:         chain.NewTreasury(tonChain, config.TreasuryAddress, config.StakedDecimals, config.UnderlyingDecimals),
		Adapters:     adapters,
		Quoter:       quoter,
		YieldSources: sources,
		Metrics:      deps.metrics,
	})
	if err != nil {
		deps.Close()
		return nil, err
	}
	return deps, nil
}

func (d *dependencies) buildAdapters(tonChain *chain.TonChain) ([]usecase.ProtocolAdapter, error) {
	config := d.config
	decimals := adapter.Decimals{Staked: config.StakedDecimals, Underlying: config.UnderlyingDecimals}

	adapterConfigs := config.Adapters
	if len(adapterConfigs) == 0 {
		adapterConfigs = []domain.AdapterConfig{{Protocol: domain.ProtocolWallet, Kind: domain.AdapterKindWallet}}
	}

	adapters := make([]usecase.ProtocolAdapter, 0, len(adapterConfigs))
	for _, ac := range adapterConfigs {
		switch ac.Kind {
		case domain.AdapterKindWallet:
			adapters = append(adapters, adapter.NewWalletAdapter(tonChain, config.StakedJettonMaster, ac, decimals))

		case domain.AdapterKindDex:
			adapters = append(adapters, adapter.NewDexAdapter(tonChain, ac, decimals))

		case domain.AdapterKindLending:
			index := gateway.NewLendingClient(config.LendingAPIURL, config.HTTPRateLimit, config.StakedDecimals, config.UnderlyingDecimals)
			adapters = append(adapters, adapter.NewLendingAdapter(index, ac, decimals))

		case domain.AdapterKindVault:
			if d.dbPool == nil {
				db, err := dbhandler.Open(config.DbUri)
				if err != nil {
					return nil, fmt.Errorf("open index database: %w", err)
				}
				d.dbPool = db
			}
			index := repository.NewVaultPositionRepository(dbhandler.DBHandler{DB: d.dbPool}, config.StakedDecimals, config.UnderlyingDecimals)
			adapters = append(adapters, adapter.NewVaultAdapter(index, ac, decimals))

		default:
			return nil, fmt.Errorf("%w: unknown kind %q", domain.ErrorInvalidAdapter, ac.Kind)
		}
	}
	return adapters, nil
}
