package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jengzang/greenarea-go/internal/api"
	"github.com/jengzang/greenarea-go/internal/config"
)

func main() {
	configPath := flag.String("config", os.Getenv("GREENAREA_CONFIG"), "Path to a YAML config file")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath, nil)
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := api.Serve(ctx, cfg); err != nil {
		log.Fatal(err)
	}
}
