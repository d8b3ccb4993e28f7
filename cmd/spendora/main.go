package main

import (
	"spendora/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	if err := newRootCmd().Execute(); err != nil {
		cli.Fatal(err)
	}
}
