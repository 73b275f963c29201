// strategyctl runs the product strategy generation tasks from the command line.
package main

import (
	"os"

	"product-strategy-gateway/internal/cli"
)

func main() {
	if err := cli.New(cli.Options{}).Execute(); err != nil {
		os.Exit(1)
	}
}
