package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	cfgPkg "github.com/docsage/docsage/pkg/config"
	"github.com/docsage/docsage/pkg/llm"
	"github.com/docsage/docsage/pkg/retrieval"
	"github.com/docsage/docsage/pkg/store"
	"github.com/docsage/docsage/server"
)

func main() {
	var configPath, addr string
	var hideSource bool

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&addr, "addr", ":8080", "Address to listen on")
	flag.BoolVar(&hideSource, "hide-source", false, "Disable source attribution in responses")
	flag.Parse()

	cfg, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "config: %s\n", e)
		}
		os.Exit(1)
	}

	if err := run(cfg, addr, hideSource); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *cfgPkg.Config, addr string, hideSource bool) error {
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:          cfg.Embedding.Model,
		BaseURL:        cfg.Embedding.BaseURL,
		DocPrefix:      cfg.Embedding.DocPrefix,
		QueryPrefix:    cfg.Embedding.QueryPrefix,
		MaxInputChars:  cfg.Embedding.MaxInputChars,
		RequestsPerSec: cfg.Embedding.RequestsPerSec,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		BaseURL:     cfg.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize chat engine: %v", err)
	}

	index, err := store.Open(cfg.Index.Backend,
		store.FileIndexConfig{PersistDir: cfg.Index.PersistDir},
		store.PGIndexConfig{
			ConnString: cfg.Index.URL,
			TableName:  cfg.Index.TableName,
			VectorDim:  cfg.Index.VectorDim,
		})
	if err != nil {
		return fmt.Errorf("failed to open vector index: %v", err)
	}
	defer index.Close()

	engine, err := retrieval.New(embedder, index, cfg.Query.TopN)
	if err != nil {
		return err
	}

	return server.NewWSServer(server.Config{
		Addr:       addr,
		HideSource: hideSource,
	}, engine, chatEngine).Start()
}
