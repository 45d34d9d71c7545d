// Command goredis-server runs the TCP key-value server. It generalizes
// the teacher's main.go (server.ConstructServer then Run) with an
// explicit config path flag. main has no signal wait of its own: this
// repo's Server.Serve blocks internally on its own signal handling, so
// main's job is just construction, logging the terminal error, and
// propagating the process exit code.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/minidb/goredis/internal/config"
	"github.com/minidb/goredis/internal/server"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "goredis-server: load config: %s\n", err.Error())
		os.Exit(1)
	}

	srv, err := server.Construct(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "goredis-server: construct: %s\n", err.Error())
		os.Exit(1)
	}

	if err := srv.Serve(); err != nil {
		fmt.Fprintf(os.Stderr, "goredis-server: serve: %s\n", err.Error())
		os.Exit(1)
	}
}
