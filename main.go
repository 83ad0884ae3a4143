package main

import (
	"os"

	"github.com/wane/wane-sub001/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
