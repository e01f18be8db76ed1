// Package main is the single-binary entrypoint for swarmpay.
package main

import "github.com/tutu-network/swarmpay/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
