package main

import (
	"os"

	"github.com/docbase-dev/docbase/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
