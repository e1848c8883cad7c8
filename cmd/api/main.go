package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"docchat/internal/api"
	"docchat/internal/config"
	"docchat/internal/engine"
	"docchat/internal/providers"
	"docchat/internal/storage"
	"docchat/internal/vectorstore"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatal(err)
	}

	indexes, err := vectorstore.NewManager(cfg.IndexDir)
	if err != nil {
		log.Fatal(err)
	}
	pm, err := providers.NewManager(cfg)
	if err != nil {
		log.Fatal(err)
	}

	eng := engine.New(cfg, storage.NewSessionRepo(db), indexes, pm.Embedder(), pm)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	srv := api.NewServer(eng, logger)

	logger.Info("docchat api listening",
		"addr", cfg.APIAddr,
		"index_dir", cfg.IndexDir,
		"default_model", cfg.DefaultModel,
		"embed_provider", cfg.EmbedProvider,
	)
	if err := http.ListenAndServe(cfg.APIAddr, srv.Routes()); err != nil {
		log.Fatal(err)
	}
}
