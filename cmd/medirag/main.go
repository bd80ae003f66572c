// Medical assistant chatbot: retrieval-augmented answers over a local
// medical knowledge base, with per-user conversation memory and an
// emergency gate for severe symptoms.
//
// Examples:
//
//	export GROQ_API_KEY=...
//	go run ./cmd/medirag
//
//	go run ./cmd/medirag -rebuild -sources
//	go run ./cmd/medirag -test
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/medkitlab/medirag/src/config"
	"github.com/medkitlab/medirag/src/embed"
	"github.com/medkitlab/medirag/src/index"
	"github.com/medkitlab/medirag/src/ingest"
	"github.com/medkitlab/medirag/src/memory"
	"github.com/medkitlab/medirag/src/models"
	"github.com/medkitlab/medirag/src/rag"
	"github.com/medkitlab/medirag/src/severity"
)

var (
	flagRebuild = flag.Bool("rebuild", false, "Rebuild the vector index from the data sources")
	flagSources = flag.Bool("sources", false, "Show source citations in responses")
	flagTest    = flag.Bool("test", false, "Run a single test query and exit")
)

var (
	accent  = color.New(color.FgCyan)
	success = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
	header  = color.New(color.FgCyan, color.Bold)
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	accent.Println("\n🔧 Initializing Medical Assistant...")

	agent, err := models.NewProvider(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ load model: %v", err)
	}
	agent = models.NewRetryLLM(agent)
	if cfg.ResponseCachePath != "" {
		agent = models.NewCachedLLM(agent, 256, time.Hour, cfg.ResponseCachePath)
	}
	success.Printf("   ✅ %s model ready (%s)\n", cfg.Provider, cfg.Model)

	store, err := memory.NewStore(cfg.MemoryPath, cfg.MaxHistory)
	if err != nil {
		log.Fatalf("❌ init memory: %v", err)
	}
	success.Println("   ✅ Conversation memory ready")

	ix, err := loadOrBuildIndex(ctx, cfg, *flagRebuild)
	if err != nil {
		log.Fatalf("❌ init index: %v", err)
	}
	defer ix.Close(ctx)

	chain := rag.NewChain(severity.NewClassifier(), ix, store, agent, cfg.RetrieverK)
	success.Println("✨ Medical Assistant ready!")

	if *flagTest {
		runTestQuery(ctx, chain)
		return
	}
	runChatLoop(ctx, chain, store, *flagSources)
}

// loadOrBuildIndex reuses a persisted index unless a rebuild is asked
// for or none exists yet. An empty document set gets the placeholder
// so the index is never built empty.
func loadOrBuildIndex(ctx context.Context, cfg *config.Config, rebuild bool) (*index.Index, error) {
	embedder, err := embed.NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	vstore, err := index.NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ix := index.New(embedder, vstore)

	if !rebuild {
		loaded, err := ix.Load(ctx)
		if err != nil {
			return nil, err
		}
		if loaded {
			n, _ := ix.Count(ctx)
			success.Printf("   ✅ Loaded existing index (%d documents)\n", n)
			return ix, nil
		}
		warn.Println("📚 No existing index found. Building a new one...")
	} else {
		warn.Println("🔄 Rebuilding vector index...")
	}

	loader := ingest.NewLoader(cfg.PDFPath, cfg.CSVPath, cfg.URLsFile)
	docs, err := loader.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		warn.Println("⚠️ No documents found. Indexing a placeholder...")
		docs = []index.Document{ingest.Placeholder()}
	}
	if err := ix.Build(ctx, docs); err != nil {
		return nil, err
	}
	success.Printf("   ✅ Indexed %d documents\n", len(docs))
	return ix, nil
}

func runTestQuery(ctx context.Context, chain *rag.Chain) {
	warn.Println("\n🧪 Running test query...")
	answer, err := chain.Run(ctx, "test-user", "What are common symptoms of the flu?", true)
	if err != nil {
		log.Fatalf("❌ test query: %v", err)
	}
	accent.Println("\n🤖 Response:")
	fmt.Println(answer)
}

func runChatLoop(ctx context.Context, chain *rag.Chain, store *memory.Store, showSources bool) {
	scanner := bufio.NewScanner(os.Stdin)

	userID := promptUsername(scanner, store)
	if userID == "" {
		return
	}

	header.Println("\n🏥 Medical Assistant")
	fmt.Printf("Logged in as: %s\n", userID)
	fmt.Println("\nType '/help' for available commands or describe your symptoms.")

	for {
		fmt.Print("\n🧑 You: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		if strings.HasPrefix(input, "/") {
			if strings.EqualFold(input, "/exit") {
				break
			}
			if !runCommand(input, userID, store, &showSources) {
				warn.Println("❌ Unknown command. Type '/help' for options.")
			}
			continue
		}

		answer, err := chain.Run(ctx, userID, input, showSources)
		if err != nil {
			warn.Printf("❌ %v\n", err)
			continue
		}
		header.Println("\n🤖 Medical Assistant:")
		fmt.Println(answer)
	}

	fmt.Println("\n👋 Take care! Remember to consult a healthcare professional for medical concerns.")
}

func promptUsername(scanner *bufio.Scanner, store *memory.Store) string {
	header.Println("\n👤 User Login")
	known := store.ListUsers()

	for {
		fmt.Print("Username: ")
		if !scanner.Scan() {
			return ""
		}
		username := strings.TrimSpace(scanner.Text())
		if username == "" {
			warn.Println("❌ Username cannot be empty")
			continue
		}

		returning := false
		for _, u := range known {
			if u == username {
				returning = true
				break
			}
		}
		if returning {
			success.Printf("✅ Welcome back, %s!\n", username)
		} else {
			success.Printf("✅ Created new user: %s\n", username)
		}
		return username
	}
}

// runCommand handles the slash commands; false means the command was
// not recognized.
func runCommand(input, userID string, store *memory.Store, showSources *bool) bool {
	switch strings.ToLower(input) {
	case "/help":
		printHelp()
	case "/history":
		turns := store.History(userID)
		accent.Printf("\n📜 Conversation History (%d messages):\n", len(turns))
		start := len(turns) - 5
		if start < 0 {
			start = 0
		}
		for i, turn := range turns[start:] {
			msg := turn.UserMessage
			if len(msg) > 50 {
				msg = msg[:50]
			}
			fmt.Printf("%d. User: %s...\n", i+1, msg)
		}
	case "/clear":
		if err := store.Clear(userID); err != nil {
			warn.Printf("❌ clear history: %v\n", err)
			return true
		}
		success.Println("✅ Conversation history cleared")
	case "/sources":
		*showSources = !*showSources
		status := "disabled"
		if *showSources {
			status = "enabled"
		}
		success.Printf("✅ Source citations %s\n", status)
	default:
		return false
	}
	return true
}

func printHelp() {
	accent.Println("\n📖 Available Commands:")
	fmt.Println("  /help     Show this help message")
	fmt.Println("  /history  Show your recent conversation history")
	fmt.Println("  /clear    Clear your conversation history")
	fmt.Println("  /sources  Toggle source citations")
	fmt.Println("  /exit     Leave the chat")
	fmt.Println("\nAnything else is treated as a medical question or symptom description.")
}
