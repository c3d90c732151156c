package main

import (
	"fmt"
	"os"

	"github.com/coredbg/coredbg/cmd/coredbg/command"
)

func main() {
	if err := command.App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}
