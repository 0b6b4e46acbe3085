// Command adviserctl inspects a restaurant knowledge base offline: it queries
// entities, estimates routes and exports the derived address and opening
// hours artifacts.
package main

import (
	"os"

	"github.com/Thommy96/BaRiStA/internal/config"
)

func main() {
	_ = config.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
