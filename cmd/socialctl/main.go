package main

import (
	"fmt"
	"os"

	"github.com/anonto42/goalsocial/backend/cmd/socialctl/command"
)

func main() {
	if err := command.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
