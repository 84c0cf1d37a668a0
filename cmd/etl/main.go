package main

import (
	"os"

	"github.com/vcabral19/json-placeholder-elt/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
