package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/orbitview/orbitview/internal/api"
	"github.com/orbitview/orbitview/internal/catalog"
	"github.com/orbitview/orbitview/internal/config"
	"github.com/orbitview/orbitview/internal/httputil"
	"github.com/orbitview/orbitview/internal/timeutil"
	"github.com/orbitview/orbitview/internal/trajectory"
)

var (
	listen         = flag.String("listen", ":8080", "Listen address")
	configPath     = flag.String("config", "", "Path to auto-load config JSON (optional)")
	dbFile         = flag.String("db", "catalog.db", "Path to the catalog cache database")
	serviceURL     = flag.String("service", "", "Trajectory service base URL (overrides config)")
	refreshCatalog = flag.Bool("refresh-catalog", true, "Fetch the comet catalog on startup")
	catalogLimit   = flag.Int("catalog-limit", 2000, "Maximum catalog objects to fetch")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg := &config.AutoLoadConfig{}
	if *configPath != "" {
		loaded, err := config.LoadAutoLoadConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *serviceURL != "" {
		cfg.ServiceURL = serviceURL
	}

	cache, err := catalog.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open catalog cache: %v", err)
	}
	defer cache.Close()

	client := trajectory.NewClient(cfg.GetServiceURL(),
		httputil.NewStandardClient(&http.Client{Timeout: cfg.GetFetchTimeout()}))
	pipeline := trajectory.NewPipeline(client, cfg, timeutil.RealClock{})

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *refreshCatalog {
		wg.Add(1)
		go func() {
			defer wg.Done()
			refreshCatalogCache(ctx, client, cache)
		}()
	}

	// animation clock goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := pipeline.Run(ctx); err != nil {
			log.Printf("pipeline stopped with error: %v", err)
		}
		log.Print("pipeline routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(pipeline, cache).ServeMux()
		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("listening on %s (service %s)", *listen, cfg.GetServiceURL())
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

// refreshCatalogCache pulls the comet listing from the trajectory service
// into the local cache and records the attempt in the fetch log. Failure
// is not fatal; the viewer serves whatever the cache already holds.
func refreshCatalogCache(ctx context.Context, client *trajectory.Client, cache *catalog.DB) {
	start := time.Now()
	list, err := client.FetchComets(ctx, *catalogLimit)
	if err != nil {
		if _, logErr := cache.RecordFetch("/comets", 0, time.Since(start), err); logErr != nil {
			log.Printf("failed to record catalog fetch: %v", logErr)
		}
		log.Printf("catalog refresh failed, serving cached data: %v", err)
		return
	}

	if err := cache.SaveComets(list.Comets); err != nil {
		log.Printf("failed to cache catalog: %v", err)
		return
	}
	requestID, err := cache.RecordFetch("/comets", len(list.Comets), time.Since(start), nil)
	if err != nil {
		log.Printf("failed to record catalog fetch: %v", err)
	}
	log.Printf("cached %d comets (request %s)", len(list.Comets), requestID)
}
