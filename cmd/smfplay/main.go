package main

import (
	"embed"
	"fmt"
	"os"

	"github.com/zurustar/smfplay/pkg/app"
)

//go:embed songs
var embeddedSongs embed.FS

func main() {
	application := app.New(embeddedSongs)
	if err := application.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
