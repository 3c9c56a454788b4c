package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/brngle/puizcloud"
	"github.com/fatih/color"
)

func main() {
	configPath := os.Getenv("CONFIG")
	if configPath == "" && len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	explicit := configPath != ""
	if !explicit {
		configPath = puizcloud.DefaultConfigPath
	}

	config, err := puizcloud.LoadConfigOrDefault(configPath, explicit)
	if err != nil {
		log.Panicf("Failed to load configuration from path '%s': %v", configPath, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("listening on %s", color.GreenString("http://%s%s", config.Addr(), puizcloud.BrowsePrefix))

	server := puizcloud.NewServer(config)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
