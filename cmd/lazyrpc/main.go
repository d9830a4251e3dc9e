// Package main provides the entry point for the lazyrpc CLI.
package main

import (
	"fmt"
	"os"

	"github.com/telnet2/go-lazyrpc/cmd/lazyrpc/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
