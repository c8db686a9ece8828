package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
)

// weatherWarmupDelay lets the messaging gateway finish connecting before the
// first weather check fires.
const weatherWarmupDelay = 15 * time.Second

func main() {
	cfg := LoadConfig()

	db, err := InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wpp := NewWPPClient(cfg)

	dispatcher := NewDispatcher(db, cfg, wpp)
	dispatcher.Start(ctx)

	weather := NewWeatherChecker(db, cfg, wpp)
	wc := cron.New()
	if _, err := wc.AddFunc(fmt.Sprintf("@every %dm", cfg.WeatherPeriodMin), weather.Run); err != nil {
		log.Fatalf("Invalid weather schedule: %v", err)
	}
	wc.Start()
	go func() {
		<-ctx.Done()
		wc.Stop()
	}()
	go func() {
		select {
		case <-time.After(weatherWarmupDelay):
			weather.Run()
		case <-ctx.Done():
		}
	}()

	log.Println("=== ShadowDesk Worker Starting ===")
	log.Printf("Check interval: %s, portal: %s", cfg.CheckInterval(), cfg.PortalURL)

	runScrapeLoop(ctx, cfg, db)

	log.Println("Worker stopped")
}
