package main

import (
	"flag"
	"os"

	"github.com/df07/go-realtime-restir/pkg/log"
	"github.com/df07/go-realtime-restir/web/server"
)

var logger = log.New("main")

func main() {
	// Parse command line flags
	port := flag.Int("port", 8080, "Port to serve on")
	verbose := flag.Bool("v", false, "Log every frame")
	levels := flag.String("log-level", "", "Per-module log levels, e.g. renderer=debug,web=info")
	flag.Parse()

	if *verbose {
		log.SetLevel(log.Debug)
	} else {
		log.SetLevel(log.Info)
	}
	if err := log.SetModuleLevels(*levels); err != nil {
		logger.Errorf("Invalid -log-level: %v", err)
		os.Exit(2)
	}

	// Create and start web server
	webServer := server.NewServer(*port)

	logger.Notice("Real-time ReSTIR Web Server")
	logger.Noticef("Visit http://localhost:%d to start rendering", *port)

	if err := webServer.Start(); err != nil {
		logger.Errorf("Error starting server: %v", err)
		os.Exit(1)
	}
}
