package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/axellelanca/shortener/internal/config"
)

// Cfg is the global variable that will contain the loaded configuration
// It will be accessible to all Cobra commands throughout the application
var Cfg *config.Config

// Logger is built from Cfg.Log before any command runs.
var Logger *logrus.Logger

// RootCmd is the base command for the CLI application
// All other commands (run-server, create, stats, migrate, cleanup) are added as subcommands
var RootCmd = &cobra.Command{
	Use:   "shortener",
	Short: "A URL shortener service",
	Long: `A URL shortener service that creates short links, redirects visitors,
counts clicks and removes expired links in the background.`,
	SilenceUsage: true,
}

// Execute is the main entry point for the Cobra application
// It is called from 'main.go' and handles command execution and error handling
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

// init() is a special Go function that executes automatically before main()
func init() {
	// Configuration is loaded before any command executes.
	cobra.OnInitialize(initConfig)

	// Subcommands register themselves via their own init() functions,
	// which keeps this package free of import cycles.
}

// initConfig loads the application configuration and the logger.
// An invalid configuration falls back to the defaults with a warning.
func initConfig() {
	var err error
	Cfg, err = config.LoadConfig()
	if err != nil {
		Cfg = config.Default()
		Logger = config.NewLogger(Cfg.Log)
		Logger.Warnf("Problem loading configuration: %v. Using default values.", err)
		return
	}
	Logger = config.NewLogger(Cfg.Log)
}
