package main

import (
	"log"

	"audio-transcriber/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		log.Fatalf("audio-transcriber: %v", err)
	}
}
