// Package cmd is for command line interactions with the dnastore application.
package cmd

import (
	"log"
	"os"

	"github.com/ihh/dnastore/internal/xlog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use: "dnastore",
	Short: `Encode arbitrary binary data as DNA, and decode it back,
via a finite-state transducer built from a de Bruijn graph of valid
k-mers. Build the transducer, encode or decode through it, or train an
error model against a database of guide alignments.`,
	Version: "0.1.0",
}

var (
	verbose int
	logFile string
	noColor bool
)

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().IntVar(&verbose, "verbose", 1, "log verbosity level")
	rootCmd.PersistentFlags().StringVar(&logFile, "log", "", "write log output to this file instead of stderr")
	rootCmd.PersistentFlags().BoolVar(&noColor, "nocolor", false, "disable ANSI color in warning/fatal log output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log", rootCmd.PersistentFlags().Lookup("log"))
	viper.BindPFlag("nocolor", rootCmd.PersistentFlags().Lookup("nocolor"))

	cobra.OnInitialize(func() {
		xlog.Verbosity = verbose
		xlog.NoColor = noColor
		if logFile != "" {
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				log.Fatalf("unable to open log file %s: %v", logFile, err)
			}
			xlog.SetOutput(f)
		}
	})
}
