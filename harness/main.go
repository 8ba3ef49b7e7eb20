package main

import (
	"fmt"
	"log"
	"os"

	"code.linksmart.eu/dt/sensor-fleet/harness/env"
)

func main() {
	env.Load()
	if env.LogTimestamps {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.Lshortfile)
	}

	err := run(os.Args[1:])
	if err == errUsage {
		usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
