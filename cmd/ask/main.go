package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	cfgPkg "github.com/docsage/docsage/pkg/config"
	"github.com/docsage/docsage/pkg/llm"
	"github.com/docsage/docsage/pkg/repl"
	"github.com/docsage/docsage/pkg/retrieval"
	"github.com/docsage/docsage/pkg/store"
)

func main() {
	var configPath string
	var hideSource, muteStream bool

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.BoolVar(&hideSource, "hide-source", false, "Disable printing of the source documents used for answers")
	flag.BoolVar(&muteStream, "mute-stream", false, "Disable incremental streaming of the answer")
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

	if err := run(cfg, hideSource, muteStream); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *cfgPkg.Config, hideSource, muteStream bool) error {
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

	count, err := index.Count()
	if err != nil {
		return fmt.Errorf("failed to read index: %v", err)
	}
	if count == 0 {
		return fmt.Errorf("the index at %s is empty: run the ingest command first", cfg.Index.PersistDir)
	}

	engine, err := retrieval.New(embedder, index, cfg.Query.TopN)
	if err != nil {
		return err
	}

	loop := repl.New(repl.Config{
		HideSource: hideSource,
		MuteStream: muteStream,
	}, engine, chatEngine)

	return loop.Run(context.Background())
}
