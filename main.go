/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package main

import "dashboard/cmd"

func main() {
	cmd.Execute()
}
