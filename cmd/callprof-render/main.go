package main

import (
	"context"
	"os"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"

	"github.com/getsentry/callprof/internal/logutil"
)

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("callprof-render"),
		kong.Description("Render a template with profiling and print its call tree."),
		kong.UsageOnError(),
		kong.Vars{"pprofModes": pprofModes()},
	)

	logutil.ConfigureLogger(logutil.ParseLevel(cli.LogLevel))

	if err := cli.run(context.Background(), os.Stdout, os.Stderr); err != nil {
		log.Fatal().Err(err).Str("template", cli.Template).Msg("can't render template")
	}
}
