// Package main provides the fumetti CLI.
package main

import "github.com/mesh-intelligence/fumetti/internal/cli"

func main() {
	cli.Execute()
}
