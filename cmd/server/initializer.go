package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"

	"turnindex/internal/chain"
	"turnindex/internal/config"
	"turnindex/internal/embedding"
	"turnindex/internal/enrichment"
	"turnindex/internal/extraction"
	"turnindex/internal/feedback"
	"turnindex/internal/index"
	"turnindex/internal/learning"
	"turnindex/internal/maintenance"
	"turnindex/internal/rpc"
	"turnindex/internal/topic"
)

// ServerComponents holds all initialized server components.
// Extracted from main() to enable testing.
type ServerComponents struct {
	Config       *config.Config
	Gateway      *embedding.Gateway
	Index        *index.Index
	Enricher     *enrichment.Processor
	ChainBuilder *chain.Builder
	Learner      *learning.Learner
	Maintainer   *maintenance.Maintainer
	Service      *rpc.Service
}

// InitializeServer creates and initializes all server components.
func InitializeServer(cfg *config.Config) (*ServerComponents, error) {
	components := &ServerComponents{Config: cfg}

	gateway := embedding.Get(embedding.Config{
		Provider:         cfg.Embedding.Provider,
		Model:            cfg.Embedding.Model,
		APIKey:           cfg.Embedding.APIKey,
		Endpoint:         cfg.Embedding.Endpoint,
		AllowUpdateCheck: cfg.Embedding.AllowUpdateCheck,
		CacheEnabled:     cfg.Embedding.CacheEnabled,
		CacheSize:        cfg.Embedding.CacheSize,
		Timeout:          cfg.Embedding.Timeout.Milliseconds(),
	})
	components.Gateway = gateway
	log.Printf("Initialized embedding gateway (provider=%s, offline=%v)", cfg.Embedding.Provider, gateway.Offline())

	idx, err := index.New(index.Config{
		PersistPath:    cfg.Index.PersistPath,
		CollectionName: cfg.Index.Collection,
		Gateway:        gateway,
	})
	if err != nil {
		return nil, err
	}
	components.Index = idx
	log.Printf("Initialized index (collection=%s, persist=%q)", cfg.Index.Collection, cfg.Index.PersistPath)

	semantic := feedback.NewSemanticAnalyzer(gateway)
	processor := enrichment.NewProcessor(enrichment.Config{
		TopicClassifier:  topic.NewClassifier(),
		SemanticAnalyzer: semantic,
		Extractor:        extraction.NewExtractor(gateway),
		PerTurnDeadline:  cfg.Enrichment.PerTurnDeadline,
	})
	components.Enricher = processor
	log.Println("Initialized enrichment processor")

	builder := chain.NewBuilder()
	components.ChainBuilder = builder
	log.Println("Initialized chain builder")

	learner := learning.NewLearner(idx, semantic)
	components.Learner = learner
	log.Println("Initialized feedback learner")

	maintainer, err := maintenance.Open(idx, cfg.Maintenance.DBPath)
	if err != nil {
		return nil, err
	}
	components.Maintainer = maintainer
	log.Printf("Initialized maintainer (rollback log=%q)", cfg.Maintenance.DBPath)

	var transcripts rpc.TranscriptSource
	if cfg.Transcripts.Dir != "" {
		transcripts = directoryTranscriptSource{dir: cfg.Transcripts.Dir}
		log.Printf("Transcript source: %s", cfg.Transcripts.Dir)
	} else {
		log.Println("transcripts.dir not configured; force_sync will error until one is set")
	}

	components.Service = rpc.NewService(rpc.Config{
		Index:           idx,
		ChainBuilder:    builder,
		Learner:         learner,
		Maintainer:      maintainer,
		Enricher:        processor,
		Transcripts:     transcripts,
		QueryDeadline:   cfg.Query.QueryDeadline,
		DefaultN:        cfg.Query.DefaultN,
		CandidateFactor: cfg.Query.CandidateFactor,
		DefaultChainLen: cfg.Query.DefaultChainLen,
	})
	log.Println("Initialized RPC service")

	return components, nil
}

// directoryTranscriptSource walks a directory tree of .jsonl transcript
// files. Discovery and filesystem watching are deliberately outside the
// core (spec.md §1); this is the one concrete rpc.TranscriptSource, owned
// by cmd/server rather than by any internal package.
type directoryTranscriptSource struct {
	dir string
}

func (d directoryTranscriptSource) ListFiles(ctx context.Context) ([]string, error) {
	var files []string
	err := filepath.WalkDir(d.dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if filepath.Ext(path) == ".jsonl" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (d directoryTranscriptSource) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Cleanup closes every resource ServerComponents opened.
func (c *ServerComponents) Cleanup() error {
	if c.Maintainer != nil {
		return c.Maintainer.Close()
	}
	return nil
}
