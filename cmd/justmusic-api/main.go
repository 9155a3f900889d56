package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// @title justMusic API
// @version 1.0.0
// @description Class booking backend: users, classes, selections and card payments.
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "justmusic-api",
		Short:   "justMusic class booking API",
		Version: version,
		RunE:    runServe,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(ensureIndexesCmd())
	rootCmd.AddCommand(reconcileCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
