package main

import (
	"os"

	"github.com/askiada/go-dframe/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
