package main

import (
	"os"

	"github.com/tkingovr/companybook/cmd/companybook/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
