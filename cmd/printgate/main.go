package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/printgate/printgate/cmd/printgate/commands"
)

func main() {
	if err := commands.NewCommand().Execute(); err != nil {
		log.Error().Err(err).Msg("printgate failed")
		os.Exit(1)
	}
}
