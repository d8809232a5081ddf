// Package main provides tobactl, the operator command line for offline
// forecasts, workbook statistics and API tokens.
package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
)

// Version is set at compile time via ldflags.
var Version = "dev"

// Globals are shared by every command.
type Globals struct {
	Logger zerolog.Logger
}

// CLI is the tobactl command tree.
type CLI struct {
	LogLevel string `help:"Diagnostics level written to stderr." default:"warn" enum:"debug,info,warn,error"`

	Forecast ForecastCmd      `cmd:"" help:"Forecast the next month from a monitoring workbook."`
	Stats    StatsCmd         `cmd:"" help:"Summarize the locations of a monitoring workbook."`
	Token    TokenCmd         `cmd:"" help:"Issue an operator token for the API."`
	Version  kong.VersionFlag `help:"Print version and exit."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("tobactl"),
		kong.Description("Danau Toba water quality tooling."),
		kong.UsageOnError(),
		kong.Vars{"version": Version},
	)

	level, err := zerolog.ParseLevel(cli.LogLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()

	ctx.FatalIfErrorf(ctx.Run(&Globals{Logger: logger}))
}
