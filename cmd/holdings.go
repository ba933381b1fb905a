/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"dashboard/domain"
	"dashboard/domain/util"
	"dashboard/usecase"

	"github.com/spf13/cobra"
)

var partialFlag bool

// holdingsCmd represents the holdings command
var holdingsCmd = &cobra.Command{
	Use:   "holdings <address>",
	Short: "Prints an address's holdings across protocols",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		address, err := domain.ParseAddress(args[0])
		if err != nil {
			log.Fatalf("⛔️ %v\n", err.Error())
		}
		block, err := domain.ParseBlockReference(blockFlag)
		if err != nil {
			log.Fatalf("⛔️ %v\n", err.Error())
		}

		deps, err := defaultDependencyInject()
		if err != nil {
			log.Fatalf("⛔️ Unable to start - %v\n", err.Error())
		}
		defer deps.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		holdings, err := deps.engine.Holdings(ctx, address, block, usecase.AggregateOptions{AllowPartial: partialFlag})
		if err != nil {
			fmt.Printf("❌ Holdings are %v\n", util.FormatUnavailable(err))
			return
		}
		printOutHoldings(holdings, deps.config.StakedSymbol)
	},
}

func printOutHoldings(holdings domain.AggregateHoldings, symbol string) {
	fmt.Printf("------------- HOLDINGS AT %v -----------------\n", holdings.Block)

	ids := make([]domain.ProtocolID, 0, len(holdings.PerProtocol))
	for id := range holdings.PerProtocol {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for i, id := range ids {
		holding := holdings.PerProtocol[id]
		if holding.Failed() {
			fmt.Printf("#%03d - %-8v %v\n", i+1, id, util.FormatUnavailable(holding.Err))
			continue
		}
		fmt.Printf("#%03d - %-8v %v [ underlying %v ]\n", i+1, id,
			util.FormatAmount(holding.StakedTokenAmount, 4, symbol),
			util.FormatAmount(holding.UnderlyingTokenAmount, 4, ""))
	}

	fmt.Printf("TOTAL          %v [ underlying %v ]\n",
		util.FormatAmount(holdings.Total.StakedTokenAmount, 4, symbol),
		util.FormatAmount(holdings.Total.UnderlyingTokenAmount, 4, ""))
	if holdings.Partial {
		fmt.Printf("❗️ Partial result: the request was cancelled before every protocol answered\n")
	}
}

func init() {
	rootCmd.AddCommand(holdingsCmd)
	holdingsCmd.Flags().StringVar(&blockFlag, "block", "latest", "block reference: latest, pending or a block number")
	holdingsCmd.Flags().BoolVar(&partialFlag, "partial", false, "report the protocols that answered if the request times out")
}
