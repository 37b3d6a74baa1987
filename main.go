package main

import (
	"log"
	"os"

	"github.com/kvesta/depcheck/cli"
	"github.com/kvesta/depcheck/config"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Printf("%s %v", config.Red("[ERROR]"), err)
		os.Exit(1)
	}
}
