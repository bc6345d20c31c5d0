package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"multimodal-rag/internal/chunker"
	"multimodal-rag/internal/config"
	"multimodal-rag/internal/db"
	"multimodal-rag/internal/embedding"
	"multimodal-rag/internal/helper"
	"multimodal-rag/internal/ingest"
	"multimodal-rag/internal/knowledge"
	"multimodal-rag/internal/llmservice"
	"multimodal-rag/internal/models"
	"multimodal-rag/internal/parser"
	"multimodal-rag/internal/rag"
	"multimodal-rag/internal/summarizer"
)

const configFilePath = "./configs/config.yaml"

// knowledgeStore is the backend-independent store surface the commands use.
type knowledgeStore interface {
	Exists(ctx context.Context, source string) (bool, error)
	Put(ctx context.Context, chunks []models.StoredChunk) error
	Search(ctx context.Context, query string, k int) ([]models.SearchResult, error)
	ListSources(ctx context.Context) ([]string, error)
	Reset(ctx context.Context) error
	Close() error
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	_ = godotenv.Load()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Path to a document file to ingest")
	query := flag.String("query", "", "Question to be answered")
	imagePath := flag.String("image", "", "Optional image to accompany the question")
	list := flag.Bool("list", false, "List indexed sources")
	reset := flag.Bool("reset", false, "Clear the entire knowledge base")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if key := os.Getenv("OPENROUTER_KEY"); key != "" {
		cfg.EmbedLLM.Key = key
		cfg.GenLLM.Key = key
		cfg.VisionLLM.Key = key
	}

	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening knowledge store")
	}
	defer store.Close()

	switch {
	case *reset:
		resetKnowledgeBase(ctx, store)
	case *list:
		listSources(ctx, store)
	case *filePath != "":
		ingestDocument(ctx, cfg, store, *filePath)
	case *query != "":
		answerQuestion(ctx, cfg, store, *query, *imagePath)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

// openStore builds the configured backend and attaches its handles.
func openStore(ctx context.Context, cfg *config.Config) (knowledgeStore, error) {
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	switch cfg.Storage.Backend {
	case "chromem":
		store := knowledge.NewStore(cfg.Storage.Root, cfg.Storage.Collection, false, embedder)
		if err := store.Open(); err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		sqldb, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		store := db.NewStore(db.NewDB(sqldb, cfg.Database.Debug), embedder)
		if err := store.Open(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}

func ingestDocument(ctx context.Context, cfg *config.Config, store knowledgeStore, filePath string) {
	units, err := parser.ParseFile(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing document")
	}
	if len(units) == 0 {
		log.Warn().Str("file", filePath).Msg("Document produced no content")
		return
	}

	visionClient, err := llmservice.NewClient(&cfg.VisionLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing vision model")
	}

	pipeline := ingest.NewPipeline(
		store,
		summarizer.NewSummarizer(visionClient),
		chunker.NewSplitter(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap),
	)

	outcome, err := pipeline.Ingest(ctx, units[0].Source, units)
	if err != nil {
		log.Fatal().Err(err).Msg("Error ingesting document")
	}

	switch outcome.Status {
	case models.StatusAlreadyExists:
		fmt.Printf("'%s' is already in the knowledge base\n", units[0].Source)
	default:
		fmt.Printf("Added %d chunks from '%s'\n", outcome.ChunksAdded, units[0].Source)
	}
}

func answerQuestion(ctx context.Context, cfg *config.Config, store knowledgeStore, question, imagePath string) {
	genClient, err := llmservice.NewClient(&cfg.GenLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing generation model")
	}
	visionClient, err := llmservice.NewClient(&cfg.VisionLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing vision model")
	}

	var image []byte
	if imagePath != "" {
		image, err = os.ReadFile(imagePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Error reading query image")
		}
	}

	orchestrator := rag.NewOrchestrator(
		rag.NewRetriever(store, cfg.RAG.TopK),
		rag.NewSynthesizer(genClient),
		rag.NewVerifier(genClient),
		summarizer.NewSummarizer(visionClient),
	)

	answer, err := orchestrator.Answer(ctx, question, image)
	if err != nil {
		log.Fatal().Err(err).Msg("Error answering question")
	}

	fmt.Printf("\n%s\n\n", answer.Content)
	if len(answer.Sources) == 0 {
		fmt.Println("Cited sources: none")
		return
	}
	fmt.Println("Cited sources:")
	for i, src := range answer.Sources {
		fmt.Printf("  %d. %s (page %d, %s)\n", i+1, src.Source, src.Page, src.Type)
	}
}

func listSources(ctx context.Context, store knowledgeStore) {
	sources, err := store.ListSources(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Error listing sources")
	}
	if len(sources) == 0 {
		fmt.Println("The knowledge base is empty")
		return
	}
	helper.PrettyPrint(sources)
}

func resetKnowledgeBase(ctx context.Context, store knowledgeStore) {
	err := store.Reset(ctx)
	if errors.Is(err, knowledge.ErrManualInterventionRequired) {
		fmt.Println("The knowledge base files are in use. Restart the process holding them and run -reset again.")
		os.Exit(1)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Error clearing knowledge base")
	}
	fmt.Println("Knowledge base cleared")
}
