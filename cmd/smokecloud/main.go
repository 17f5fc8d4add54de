package main

import (
	"os"

	"github.com/Smoke-Cloud/smoke-cloud-sdk/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
