// Command ai-agent runs the conversational brewery recommendation
// assistant: a terminal chat loop over the planner agent, with the
// semantic summary cache, the customers database and the brewery
// directory wired in.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/andluizsouza/ai-agent-personalization/internal/agent"
	"github.com/andluizsouza/ai-agent-personalization/internal/config"
	"github.com/andluizsouza/ai-agent-personalization/internal/embedding"
	"github.com/andluizsouza/ai-agent-personalization/internal/llm"
	"github.com/andluizsouza/ai-agent-personalization/internal/ragcache"
	"github.com/andluizsouza/ai-agent-personalization/internal/session"
	"github.com/andluizsouza/ai-agent-personalization/internal/tools/brewerydir"
	"github.com/andluizsouza/ai-agent-personalization/internal/tools/profile"
	"github.com/andluizsouza/ai-agent-personalization/internal/tools/webexplorer"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	promptStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func main() {
	var (
		clientID   = flag.String("client-id", "", "client identifier, e.g. CLT-LNU555")
		configPath = flag.String("config", "", "path to a YAML config file")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	if err := run(*clientID, *configPath); err != nil {
		log.Fatal().Err(err).Msg("agent startup failed")
	}
}

func run(clientID, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	embedder, err := embedding.NewGoogleService(embedding.Config{
		APIKey: cfg.APIKey,
		Model:  embedding.ModelType(cfg.Cache.EmbeddingModel),
	})
	if err != nil {
		return fmt.Errorf("failed to create embedding service: %w", err)
	}
	cachedEmbedder, err := embedding.NewCachedService(embedder, 0)
	if err != nil {
		return fmt.Errorf("failed to create embedding memo: %w", err)
	}

	// The cache manager is constructed once here and handed to its
	// consumers; nothing else loads or owns the snapshot.
	cache := ragcache.New(ragcache.Config{
		IndexPath: cfg.Cache.IndexPath,
		TTLDays:   cfg.Cache.TTLDays,
	}, cachedEmbedder)

	chat, err := llm.NewClient(llm.Config{
		APIKey:      cfg.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.TimeoutSecs,
	})
	if err != nil {
		return fmt.Errorf("failed to create chat client: %w", err)
	}

	runner, err := profile.New(cfg.Database.Path, profile.NewLLMGenerator(chat))
	if err != nil {
		return err
	}
	defer runner.Close()

	finder := brewerydir.New(brewerydir.Config{
		BaseURL:    cfg.Brewery.BaseURL,
		Timeout:    time.Duration(cfg.Brewery.TimeoutSecs) * time.Second,
		MaxResults: cfg.Brewery.MaxResults,
	})
	explorer := webexplorer.New(cache, llm.NewGroundedSummarizer(chat))

	planner := agent.New(chat,
		agent.NewProfileTool(runner),
		agent.NewBreweryTool(finder),
		agent.NewSummaryTool(explorer),
	)

	ctx := context.Background()
	store, err := newSessionStore(ctx, cfg.Redis)
	if err != nil {
		return err
	}

	return chatLoop(ctx, planner, cache, store, clientID)
}

func newSessionStore(ctx context.Context, cfg config.Redis) (session.Store, error) {
	if !cfg.Enabled {
		return session.NewMemoryStore(), nil
	}
	store, err := session.NewRedisStore(ctx, cfg.Addr)
	if err != nil {
		return nil, err
	}
	log.Info().Str("addr", cfg.Addr).Msg("using redis session store")
	return store, nil
}

func chatLoop(ctx context.Context, planner *agent.Planner, cache *ragcache.Manager, store session.Store, clientID string) error {
	sessionID := session.NewID()
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println(titleStyle.Render("🍺 Brewery Recommendation Assistant"))
	fmt.Println(dimStyle.Render("Type /help for commands, /exit to quit."))

	if clientID == "" {
		fmt.Print(promptStyle.Render("Client ID: "))
		if !scanner.Scan() {
			return scanner.Err()
		}
		clientID = strings.TrimSpace(scanner.Text())
	}
	fmt.Println(dimStyle.Render("Session " + sessionID + " for client " + clientID))

	for {
		fmt.Print(promptStyle.Render("you> "))
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := handleCommand(ctx, input, planner, cache, store, sessionID); quit {
				return nil
			}
			continue
		}

		if err := store.Append(ctx, sessionID, session.Message{
			Role: session.RoleUser, Content: input, Timestamp: time.Now(),
		}); err != nil {
			log.Warn().Err(err).Msg("failed to record user message")
		}

		result := planner.Run(ctx, clientID, input)
		if result.Status != "success" {
			fmt.Println(errorStyle.Render(result.Response))
			continue
		}

		fmt.Println(assistantStyle.Render(result.Response))
		fmt.Println(dimStyle.Render(fmt.Sprintf("(%d tool calls in %.1fs)",
			result.ToolCalls, result.Duration.Seconds())))

		if err := store.Append(ctx, sessionID, session.Message{
			Role: session.RoleAssistant, Content: result.Response, Timestamp: time.Now(),
		}); err != nil {
			log.Warn().Err(err).Msg("failed to record assistant message")
		}
	}
}

// handleCommand runs one slash command; it reports whether the loop
// should exit.
func handleCommand(ctx context.Context, input string, planner *agent.Planner, cache *ragcache.Manager, store session.Store, sessionID string) bool {
	switch input {
	case "/exit", "/quit":
		fmt.Println(dimStyle.Render("Goodbye!"))
		return true
	case "/clear":
		if err := store.Clear(ctx, sessionID); err != nil {
			fmt.Println(errorStyle.Render("failed to clear session: " + err.Error()))
		} else {
			fmt.Println(dimStyle.Render("Conversation history cleared."))
		}
	case "/log":
		printJSON(planner.ChainOfThought())
	case "/metrics":
		printJSON(planner.Metrics())
	case "/stats":
		printJSON(cache.Statistics(ctx))
	case "/session":
		history, err := store.History(ctx, sessionID)
		if err != nil {
			fmt.Println(dimStyle.Render("No messages in this session yet."))
			break
		}
		printJSON(session.ComputeStats(history))
	case "/help":
		fmt.Println(dimStyle.Render(strings.Join([]string{
			"/exit, /quit  leave the assistant",
			"/clear        clear the conversation history",
			"/log          show the last run's tool trace",
			"/metrics      show execution metrics",
			"/stats        show summary cache statistics",
			"/session      show session statistics",
		}, "\n")))
	default:
		fmt.Println(errorStyle.Render("unknown command: " + input))
	}
	return false
}

func printJSON(v interface{}) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(errorStyle.Render(err.Error()))
		return
	}
	fmt.Println(dimStyle.Render(string(raw)))
}
