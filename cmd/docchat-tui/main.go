package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"docchat/internal/chunker"
	"docchat/internal/config"
	"docchat/internal/domain"
	"docchat/internal/embedding"
	embeddinglocal "docchat/internal/embedding/local"
	embeddingopenai "docchat/internal/embedding/openai"
	"docchat/internal/extract"
	"docchat/internal/generation/extractive"
	generationopenai "docchat/internal/generation/openai"
	historybolt "docchat/internal/history/bolt"
	historymem "docchat/internal/history/memory"
	"docchat/internal/service"
	"docchat/internal/tui"
	indexmem "docchat/internal/vectorstore/memory"
	indexsqlite "docchat/internal/vectorstore/sqlite"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docchat/config.yaml if not provided)")
	flag.Parse()
	inputs := flag.Args()
	if len(inputs) == 0 {
		fmt.Println("Usage: docchat-tui [--config=config.yaml] file1.txt [file2.pdf ...]")
		os.Exit(1)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	svc, closeAll := buildService(cfg)
	defer closeAll()

	ctx := context.Background()
	for _, path := range inputs {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("read %s: %v", path, err)
		}
		res, err := svc.Ingest(ctx, data, filepath.Base(path), contentTypeFor(path))
		if err != nil {
			log.Fatalf("ingest %s: %v", path, err)
		}
		log.Printf("ingested %s: %d chunks", res.FileName, res.TotalChunks)
	}

	m := tui.New(svc)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}

func contentTypeFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return "application/pdf"
	}
	return "text/plain"
}

// buildService assembles the retrieval service from config, returning a
// cleanup function for backends that hold open files.
func buildService(cfg *config.AppConfig) (*service.Service, func()) {
	var emb domain.EmbeddingProvider
	switch cfg.Embedder.Type {
	case "local", "":
		emb = embeddinglocal.NewProvider(cfg.Embedder.Dimension)
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			log.Fatalf("openai embedder config missing")
		}
		p, err := embeddingopenai.NewProvider(embeddingopenai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			log.Fatalf("openai embedder init failed: %v", err)
		}
		emb = p
	default:
		log.Fatalf("unknown embedder: %s", cfg.Embedder.Type)
	}

	var gen domain.GenerationProvider
	switch cfg.Generator.Type {
	case "extractive", "":
		gen = extractive.NewProvider(cfg.Generator.MaxSentences)
	case "openai":
		if cfg.Generator.OpenAI == nil {
			log.Fatalf("openai generator config missing")
		}
		p, err := generationopenai.NewProvider(generationopenai.Config{
			BaseURL:   cfg.Generator.OpenAI.BaseURL,
			APIKeyEnv: cfg.Generator.OpenAI.APIKeyEnv,
			Model:     cfg.Generator.OpenAI.Model,
			Timeout:   time.Duration(cfg.Generator.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			log.Fatalf("openai generator init failed: %v", err)
		}
		gen = p
	default:
		log.Fatalf("unknown generator: %s", cfg.Generator.Type)
	}

	var closers []func() error

	var index domain.Index
	switch cfg.VectorStore.Type {
	case "memory", "":
		index = indexmem.NewIndex()
	case "sqlite":
		if cfg.VectorStore.Path == "" {
			log.Fatalf("sqlite vector store path missing")
		}
		x, err := indexsqlite.Open(cfg.VectorStore.Path)
		if err != nil {
			log.Fatalf("sqlite vector store init failed: %v", err)
		}
		closers = append(closers, x.Close)
		index = x
	default:
		log.Fatalf("unknown vector store: %s", cfg.VectorStore.Type)
	}

	retention := time.Duration(cfg.History.RetentionHours) * time.Hour
	var hist domain.Log
	switch cfg.History.Type {
	case "memory", "":
		hist = historymem.NewLog(retention)
	case "bolt":
		if cfg.History.Path == "" {
			log.Fatalf("bolt history path missing")
		}
		l, err := historybolt.Open(cfg.History.Path, retention)
		if err != nil {
			log.Fatalf("bolt history init failed: %v", err)
		}
		closers = append(closers, l.Close)
		hist = l
	default:
		log.Fatalf("unknown history backend: %s", cfg.History.Type)
	}

	svc := service.New(service.Config{
		Extractor: extract.New(),
		Embedder:  embedding.NewClient(emb, cfg.Embedder.BatchSize),
		Generator: gen,
		Index:     index,
		Log:       hist,
		Splitter:  chunker.NewRecursiveSplitter(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap),
	})
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Printf("close backend: %v", err)
			}
		}
	}
	return svc, closeAll
}
