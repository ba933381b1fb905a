/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dashboard/domain"
	"dashboard/interface/api"
	"dashboard/usecase"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the dashboard API",
	Long: `Starts the dashboard API and periodically refreshes the snapshots of the
watched addresses. Stop it with SIGINT or SIGTERM.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("serve called.")

		deps, err := defaultDependencyInject()
		if err != nil {
			log.Fatalf("⛔️ Unable to start - %v\n", err.Error())
		}
		defer deps.Close()

		server := api.NewServer(deps.engine, deps.config.ListenAddress, deps.config.StakedDecimals)
		server.Router().Handle("/metrics", promhttp.Handler())
		go func() {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("⛔️ API server stopped - %v\n", err.Error())
			}
		}()

		quit := make(chan bool)
		refreshTicker := schedule(func() { refresh(deps.engine, deps.config) }, deps.config.RefreshInterval, quit)

		signal.Ignore()
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		s := <-stop
		log.Printf("Got signal '%v', stopping", s)

		refreshTicker.Stop()
		close(quit)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Stop(ctx)
	},
}

func schedule(task func(), interval time.Duration, done chan bool) *time.Ticker {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {

			case <-ticker.C:
				ticker.Stop()
				task()
				ticker.Reset(interval)

			case <-done:
				return
			}
		}
	}()
	return ticker
}

func refresh(engine *usecase.Engine, config *domain.Config) {
	for _, address := range config.WatchAddresses {
		ctx, cancel := context.WithTimeout(context.Background(), config.RefreshInterval)
		snapshot, err := engine.Refresh(ctx, address, domain.LatestBlock())
		cancel()
		if err != nil {
			fmt.Printf("❌ Failed to refresh %v - %v\n", address, err.Error())
			continue
		}
		if failed := snapshot.Holdings.Failures(); len(failed) > 0 {
			log.Printf("🟡 refreshed %v at %v with unavailable protocols %v\n", address, snapshot.Block, failed)
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
