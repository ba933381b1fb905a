/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"dashboard/domain"
	"dashboard/domain/util"

	"github.com/spf13/cobra"
)

var blockFlag string

// rateCmd represents the rate command
var rateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Prints the exchange rate",
	Long:  `Prints the staked token to underlying exchange rate at a block ('latest', 'pending' or a number).`,
	Run: func(cmd *cobra.Command, args []string) {
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

		rate, err := deps.engine.Rate(ctx, block)
		if err != nil {
			fmt.Printf("❌ Exchange rate is %v\n", util.FormatUnavailable(err))
			return
		}
		if rate.Unavailable() {
			fmt.Printf("❗️ Exchange rate at %v is unavailable: total supply is zero\n", rate.ComputedAtBlock)
			return
		}
		fmt.Printf("1 %v = %v underlying at block %v\n",
			deps.config.StakedSymbol, rate.PreciseRate.DisplayString(9), rate.ComputedAtBlock)
	},
}

func init() {
	rootCmd.AddCommand(rateCmd)
	rateCmd.Flags().StringVar(&blockFlag, "block", "latest", "block reference: latest, pending or a block number")
}
