// Package main is the entry point for the labelcore service.
package main

import (
	"log"
	"os"
)

var (
	// version can be set at build time via -ldflags
	version = "dev"
)

func main() {
	// Default to running the API server and the optimizer worker together
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "serve", "both":
		runServe(true)
	case "api":
		runServe(false)
	case "version":
		log.Printf("labelcore version %s\n", version)
		os.Exit(0)
	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)
	default:
		log.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	log.Println("labelcore - distribution and optimization service")
	log.Println()
	log.Println("Usage:")
	log.Println("  labelcore [command]")
	log.Println()
	log.Println("Commands:")
	log.Println("  serve      Start the HTTP API server and optimizer worker (default)")
	log.Println("  api        Start the HTTP API server only")
	log.Println("  version    Print version information")
	log.Println("  help       Show this help message")
	log.Println()
	log.Println("Configuration is read from config.yaml (override with LABELCORE_CONFIG).")
}
