package main

import (
	"os"

	"github.com/leeineian/radiobox/cmd"
)

func main() {
	if code := cmd.Execute(); code != 0 {
		os.Exit(code)
	}
}
