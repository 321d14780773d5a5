package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/NaserJamal/simple-ocr/internal/cli"
	"github.com/NaserJamal/simple-ocr/internal/render"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	render.InitVips()
	err := cli.Execute()
	render.ShutdownVips()

	if err != nil {
		os.Exit(1)
	}
}
