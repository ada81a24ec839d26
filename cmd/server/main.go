// Command server wires config -> pool -> store -> writer -> cache ->
// handler -> http.Server into a runnable read-through/write-behind KV
// service, with Prometheus metrics served from the same listener at
// /metrics.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kvedge/kvedge/cache"
	"github.com/kvedge/kvedge/config"
	"github.com/kvedge/kvedge/handler"
	"github.com/kvedge/kvedge/httpapi"
	pmet "github.com/kvedge/kvedge/metrics/prom"
	"github.com/kvedge/kvedge/pool"
	"github.com/kvedge/kvedge/store"
	"github.com/kvedge/kvedge/writer"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	var (
		addr             = flag.String("addr", ":8080", "HTTP listen address for the KV API and /metrics")
		dsn              = flag.String("dsn", "postgres://localhost:5432/kvstore", "backing store connection string")
		shardCount       = flag.Int("shards", config.DefaultShardCount, "number of LRU cache shards")
		perShardCapacity = flag.Int("per-shard-capacity", config.DefaultPerShardCapacity, "entries held per shard")
		poolSize         = flag.Int("pool-size", config.DefaultPoolSize, "fixed connection pool size")
		queueCapacity    = flag.Int("queue-capacity", config.DefaultQueueCapacity, "async writer queue capacity")
		acquireTimeout   = flag.Duration("acquire-timeout", config.DefaultAcquireTimeout, "write-behind enqueue / writer pool acquire timeout")
		ensureSchema     = flag.Bool("ensure-schema", true, "create the kv table on startup if missing")
	)
	flag.Parse()

	cfg := config.WithDefaults(config.Config{
		ShardCount:       *shardCount,
		PerShardCapacity: *perShardCapacity,
		PoolSize:         *poolSize,
		QueueCapacity:    *queueCapacity,
		StoreDSN:         *dsn,
		AcquireTimeout:   *acquireTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	poolMetrics := pool.NewPromMetrics(nil, "kvedge", "pool", nil)
	p, err := pool.New(ctx, pool.Config{DSN: cfg.StoreDSN, Size: cfg.PoolSize, Metrics: poolMetrics})
	if err != nil {
		log.Fatalf("server: pool.New: %v", err)
	}

	st := store.NewPGStore()

	if *ensureSchema {
		conn, err := p.Acquire(ctx)
		if err != nil {
			log.Fatalf("server: acquire for schema setup: %v", err)
		}
		if err := store.EnsureSchema(ctx, conn); err != nil {
			p.Release(conn)
			log.Fatalf("server: ensure schema: %v", err)
		}
		p.Release(conn)
	}

	writerMetrics := writer.NewPromMetrics(nil, "kvedge", "writer", nil)
	w := writer.New(writer.Config{
		Pool:           p,
		Store:          st,
		QueueCapacity:  cfg.QueueCapacity,
		AcquireTimeout: cfg.AcquireTimeout,
		Metrics:        writerMetrics,
	})
	if err := w.Start(); err != nil {
		log.Fatalf("server: writer.Start: %v", err)
	}

	cacheMetrics := pmet.New(nil, "kvedge", "cache", nil)
	c := cache.New(cache.Config{
		Shards:           cfg.ShardCount,
		PerShardCapacity: cfg.PerShardCapacity,
		Metrics:          cacheMetrics,
	})

	h := handler.New(c, p, st, w, handler.Config{
		MaxKeyLen:   cfg.MaxKeyLen,
		MaxValueLen: cfg.MaxValueLen,
	})

	api := httpapi.New(h)
	mux := api.Mux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		log.Printf("server: listening at %s", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: ListenAndServe: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Println("server: shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server: http shutdown: %v", err)
	}
	// Drain-on-stop: every write already acknowledged to a client is
	// applied to the store, or its failure logged, before the process
	// exits, as long as the drain finishes within shutdownCtx's deadline;
	// tasks still queued when that deadline passes are not applied.
	if err := w.Stop(shutdownCtx); err != nil {
		log.Printf("server: writer shutdown: %v", err)
	}
	if err := c.Close(); err != nil {
		log.Printf("server: cache close: %v", err)
	}
	if err := p.Shutdown(shutdownCtx); err != nil {
		log.Printf("server: pool shutdown: %v", err)
	}
}
