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

var takerFlag string

// unstakeCmd represents the unstake command
var unstakeCmd = &cobra.Command{
	Use:   "unstake <amount>",
	Short: "Prints the best route to unstake an amount",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		deps, err := defaultDependencyInject()
		if err != nil {
			log.Fatalf("⛔️ Unable to start - %v\n", err.Error())
		}
		defer deps.Close()

		amount, err := domain.ParseFixedPoint(args[0], deps.config.StakedDecimals)
		if err != nil {
			log.Fatalf("⛔️ %v\n", err.Error())
		}
		var taker domain.Address
		if takerFlag != "" {
			if taker, err = domain.ParseAddress(takerFlag); err != nil {
				log.Fatalf("⛔️ %v\n", err.Error())
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		session := deps.engine.NewQuoteSession(taker)
		if state := session.SetAmount(ctx, amount); state != domain.QuoteReady {
			_, err := session.Current()
			fmt.Printf("❌ Unstake quote is %v\n", util.FormatUnavailable(err))
			return
		}

		quote, err := session.Executable()
		if err != nil {
			fmt.Printf("❗️ %v\n", err.Error())
			return
		}
		fmt.Printf("%v -> %v via %v (%v), rate %v\n",
			util.FormatAmount(quote.InputAmount, 4, deps.config.StakedSymbol),
			util.FormatAmount(quote.OutputAmount, 4, ""),
			quote.Route, quote.WaitClass, quote.EffectiveRate.DisplayString(6))
	},
}

func init() {
	rootCmd.AddCommand(unstakeCmd)
	unstakeCmd.Flags().StringVar(&takerFlag, "taker", "", "address that would execute the swap")
}
