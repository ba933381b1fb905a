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

// yieldCmd represents the yield command
var yieldCmd = &cobra.Command{
	Use:   "yield <protocol>",
	Short: "Prints the composite yield of a protocol",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		protocol, err := domain.ParseProtocolID(args[0])
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

		yield, err := deps.engine.Yield(ctx, protocol)
		if err != nil {
			fmt.Printf("❌ Yield of %v is %v\n", protocol, util.FormatUnavailable(err))
			return
		}

		fmt.Printf("------------- %v YIELD: %v -----------------\n", protocol, util.FormatPercent(yield.Total))
		for _, component := range yield.Components {
			fmt.Printf("  %-22v %8v  (%v) %v\n", component.Title, util.FormatPercent(component.Value), component.Kind, component.Remarks)
		}
		if yield.TotalSupplied != nil {
			fmt.Printf("  total supplied: %v\n", util.FormatAmount(*yield.TotalSupplied, 2, deps.config.StakedSymbol))
		}
	},
}

func init() {
	rootCmd.AddCommand(yieldCmd)
}
