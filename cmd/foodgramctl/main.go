// Command foodgramctl runs maintenance tasks against the Foodgram database.
package main

import (
	"os"

	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/logging"
)

func main() {
	logging.Setup()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
