package main

import (
	"log"
)

// Build details injected with -ldflags.
var (
	GitCommit string
	GitTag    string
	BuildTime string
)

func main() {
	app, err := NewApp()
	if err != nil {
		log.Fatal("books catalog failed to initialize: ", err)
	}
	if err = app.Run(); err != nil {
		log.Fatal("books catalog exited. check logs for more details. ", err)
	}
}
