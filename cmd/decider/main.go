// Command decider runs the memory decision pipeline as an HTTP service.
//
// Storage defaults to in-memory; pass -store chromem (optionally with
// -data) for an embedded persistent database. With ANTHROPIC_API_KEY set
// the LLM extractor replaces the pattern rules, and with OPENAI_API_KEY
// set stored embeddings come from the OpenAI API instead of the
// deterministic placeholder.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/edyhq/decider-go/decider"
	"github.com/edyhq/decider-go/decider/embedder/mock"
	openaiembedder "github.com/edyhq/decider-go/decider/embedder/openai"
	chromemstore "github.com/edyhq/decider-go/decider/store/chromem"
	"github.com/edyhq/decider-go/decider/store/inmem"
	"github.com/edyhq/decider-go/extract"
	"github.com/edyhq/decider-go/extract/claude"
	"github.com/edyhq/decider-go/server"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config (defaults apply when empty)")
		addr       = flag.String("addr", ":8000", "listen address")
		storeKind  = flag.String("store", "inmem", "storage backend: inmem or chromem")
		dataPath   = flag.String("data", "", "on-disk path for the chromem store (empty keeps it in memory)")
	)
	flag.Parse()

	cfg := decider.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = decider.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
	}

	var embedder decider.Embedder = mock.New()
	if os.Getenv("OPENAI_API_KEY") != "" {
		embedder = openaiembedder.New()
		log.Printf("[MAIN] using OpenAI embeddings")
	}

	var store decider.Store
	switch *storeKind {
	case "inmem":
		store = inmem.New()
	case "chromem":
		var err error
		store, err = chromemstore.New(chromemstore.Config{Path: *dataPath, Embedder: embedder})
		if err != nil {
			log.Fatalf("chromem store: %v", err)
		}
	default:
		log.Fatalf("unknown store backend %q", *storeKind)
	}

	var extractor extract.Extractor = extract.NewPatternExtractor()
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		client := anthropic.NewClient()
		extractor = claude.New(&client)
		log.Printf("[MAIN] using Claude extraction")
	}

	hub := server.NewHub()
	svc, err := decider.NewService(store, cfg,
		decider.WithEmbedder(embedder),
		decider.WithAuditNotifier(hub.Publish),
	)
	if err != nil {
		log.Fatalf("service: %v", err)
	}
	defer svc.Close()

	srv := server.New(svc, extractor, hub)
	log.Printf("[MAIN] decider listening on %s (store=%s)", *addr, *storeKind)
	if err := http.ListenAndServe(*addr, srv.Handler()); err != nil {
		log.Fatalf("server: %v", err)
	}
}
