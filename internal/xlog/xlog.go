// Package xlog is a small leveled logger used by every other package in
// this module. It mirrors the LogThisAt(level, ...) style of the original
// dnastore implementation: a global verbosity integer gates whether a
// message is printed, and fatal/warning conditions go through the
// standard log package without a timestamp prefix, matching the
// "stderr = log.New(os.Stderr, "", 0)" pattern used throughout this
// module.
package xlog

import (
	"fmt"
	"io"
	"log"
	"os"
)

// stderr is for logging to Stderr without an annoying timestamp.
var stderr = log.New(os.Stderr, "", 0)

// SetOutput redirects all subsequent log output to w, for the CLI's
// "--log FILE" flag.
func SetOutput(w io.Writer) { stderr = log.New(w, "", 0) }

// Verbosity is the global log level. Messages logged At a level higher
// than Verbosity are suppressed. Sensible default matches the CLI's
// "--verbose N" default of 1.
var Verbosity = 1

// NoColor disables ANSI coloring of Warn/Fatal output when set, matching
// the CLI's "--nocolor" switch.
var NoColor = false

const (
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorReset  = "\033[0m"
)

// At logs msg, formatted with args, if level <= Verbosity.
func At(level int, format string, args ...interface{}) {
	if level <= Verbosity {
		stderr.Printf(format, args...)
	}
}

// Warn logs a recoverable-warning condition and continues.
func Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if NoColor {
		stderr.Printf("warning: %s", msg)
	} else {
		stderr.Printf("%swarning: %s%s", colorYellow, msg, colorReset)
	}
}

// Fatal logs a fatal condition and exits with a non-zero status.
func Fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if NoColor {
		stderr.Printf("fatal: %s", msg)
	} else {
		stderr.Printf("%sfatal: %s%s", colorRed, msg, colorReset)
	}
	os.Exit(1)
}

// FatalErr is a convenience wrapper for the common "die if err != nil"
// check that appears throughout the builder, codec, and CLI layers.
func FatalErr(err error, format string, args ...interface{}) {
	if err != nil {
		Fatal(format+": %v", append(args, err)...)
	}
}
