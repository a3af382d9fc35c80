package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	cfgPkg "github.com/docsage/docsage/pkg/config"
	"github.com/docsage/docsage/pkg/extractor"
	"github.com/docsage/docsage/pkg/ingest"
	"github.com/docsage/docsage/pkg/llm"
	"github.com/docsage/docsage/pkg/store"
)

func main() {
	var configPath, sourceDir, persistDir string

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&sourceDir, "source", "", "Directory of documents to ingest")
	flag.StringVar(&persistDir, "persist", "", "Directory for the persisted index")
	flag.Parse()

	cfg, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if sourceDir != "" {
		cfg.Ingest.SourceDir = sourceDir
	}
	if persistDir != "" {
		cfg.Index.PersistDir = persistDir
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "config: %s\n", e)
		}
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *cfgPkg.Config) error {
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:          cfg.Embedding.Model,
		BaseURL:        cfg.Embedding.BaseURL,
		DocPrefix:      cfg.Embedding.DocPrefix,
		QueryPrefix:    cfg.Embedding.QueryPrefix,
		MaxInputChars:  cfg.Embedding.MaxInputChars,
		RequestsPerSec: cfg.Embedding.RequestsPerSec,
		BatchSize:      cfg.Ingest.BatchSize,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
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

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.BlueString(" Ingesting documents")),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)

	pipeline, err := ingest.NewWithConfig(ingest.Config{
		SourceDir:    cfg.Ingest.SourceDir,
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
		Workers:      cfg.Ingest.Workers,
		OnProgress:   func(string) { bar.Add(1) },
	}, extractor.NewRegistry(), embedder, index)
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %v", err)
	}

	color.Cyan("Ingesting documents from %s", cfg.Ingest.SourceDir)

	summary, err := pipeline.Run(context.Background())
	bar.Finish()
	fmt.Println()
	if err != nil {
		return err
	}

	color.Green("✓ Indexed %d documents (%d replaced), skipped %d unchanged",
		summary.Indexed, summary.Replaced, summary.Skipped)

	if summary.Failed > 0 {
		color.Red("✗ %d documents failed:", summary.Failed)
		for _, res := range summary.Results {
			if res.Status == ingest.StatusFailed {
				color.Red("  %s: %v", res.Source, res.Err)
			}
		}
	}

	color.Cyan("Ingestion complete. You can now ask questions with the ask command.")
	return nil
}
