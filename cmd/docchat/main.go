// Package main is the entry point for the docchat command line client.
package main

import "github.com/capitalize-ai/docchat/internal/cli"

func main() {
	cli.Execute()
}
