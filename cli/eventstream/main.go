package main

import (
	"os"

	eventstreamcmder "github.com/jpopesculian/eventstream-parser/cmd/eventstream"
)

func main() {
	cmd := eventstreamcmder.NewEventstreamCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
