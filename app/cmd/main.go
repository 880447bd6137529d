package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"linkrag/app/server"
	"linkrag/chunk"
	"linkrag/fetch"
	"linkrag/ingest"
	"linkrag/model"
	"linkrag/search"
	"linkrag/store"
	"linkrag/types"
)

func init() {
	loadEnvVariables()
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := types.LoadConfig()

	embedder, err := model.NewFromEnv()
	if err != nil {
		log.Fatal("error to create embedder: ", err)
	}

	summarizer, err := model.NewSummarizerFromEnv()
	if err != nil {
		log.Fatal("error to create summarizer: ", err)
	}

	st, err := newStore(ctx, embedder.Dimension())
	if err != nil {
		log.Fatal("error to create store: ", err)
	}
	defer st.Close()

	var (
		fetcher  = fetch.NewHTTPFetcher(cfg.FetchTimeout)
		chunker  = chunk.New(cfg.ChunkSize, cfg.ChunkOverlap)
		pipeline = ingest.NewPipeline(st, fetcher, chunker, embedder, summarizer)
		svc      = ingest.NewService(pipeline, cfg.IngestWorkers, cfg.QueueSize)
		engine   = search.NewEngine(st, embedder)
		srv      = server.NewServer(cfg, st, svc, engine)
	)

	svc.Run(ctx)
	go srv.Run()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	<-sigch
	log.Println("Received shutdown signal, shutting down server...")

	srv.Stop()
	svc.Stop(30 * time.Second)
}

type closableStore interface {
	store.Storer
	Close() error
}

func newStore(ctx context.Context, dim int) (closableStore, error) {
	switch backend := os.Getenv("STORE_BACKEND"); backend {
	case "", "postgres":
		port, _ := strconv.Atoi(os.Getenv("PG_PORT"))
		connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			os.Getenv("PG_HOST"), port, os.Getenv("PG_USER"), os.Getenv("PG_PASS"), os.Getenv("PG_DB_NAME"))
		pg, err := store.NewPostgresStore(ctx, connStr)
		if err != nil {
			return nil, err
		}
		if err := pg.Init(ctx, dim); err != nil {
			return nil, fmt.Errorf("create tables: %w", err)
		}
		return pg, nil
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", backend)
	}
}

func loadEnvVariables() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment as is")
	}
}
