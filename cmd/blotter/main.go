package main

import (
	"os"

	"github.com/felixgeelhaar/blotter/internal/infrastructure/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	return cli.Report(os.Stderr, cli.Execute())
}
