package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mikeboe/aria-backend/pkg/clients"
	"github.com/mikeboe/aria-backend/pkg/config"
	"github.com/mikeboe/aria-backend/pkg/research"
	"github.com/mikeboe/aria-backend/pkg/search"
	"github.com/mikeboe/aria-backend/pkg/storage"
)

var (
	topic      string
	sessionID  string
	numResults int
	deep       bool
)

func main() {
	handler := slog.NewTextHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(handler))

	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}

	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "aria",
		Short: "A terminal research assistant",
		Long:  `ARIA-CLI runs the staged research pipeline on a topic and prints the structured result, persisting it to a local file-backed session.`,
		Run: func(cmd *cobra.Command, args []string) {
			if !cmd.Flags().Changed("topic") {
				reader := bufio.NewReader(os.Stdin)
				fmt.Print("Enter research topic: ")
				input, _ := reader.ReadString('\n')
				topic = strings.TrimSpace(input)
			}
			if topic == "" {
				slog.Error("Topic cannot be empty")
				os.Exit(1)
			}

			ctx := context.Background()

			fileStore, err := storage.NewFileStore(cfg.DataDir, slog.Default())
			if err != nil {
				slog.Error("Failed to initialize file store", "error", err)
				os.Exit(1)
			}
			store := storage.NewManager(fileStore, slog.Default())

			llm, err := clients.OpenAI(clients.ModelType(cfg.OpenAIModel), cfg.OpenAIApiKey)
			if err != nil {
				slog.Error("Error initializing LLM", "error", err)
				os.Exit(1)
			}

			pipeline := research.NewPipeline(llm, store, search.NewClient(cfg.SerpApiKey), slog.Default())
			pipeline.Scrape = search.ArticleText
			pipeline.CallTimeout = time.Duration(cfg.LLMTimeoutSecs) * time.Second

			if deep {
				out, err := pipeline.RunFullResearch(ctx, topic, numResults)
				if err != nil {
					slog.Error("Error running full research", "error", err)
					os.Exit(1)
				}
				fmt.Println(out.StructuredReport)
				return
			}

			if sessionID == "" {
				sessionID = uuid.New().String()
			}
			if _, err := store.GetSession(ctx, sessionID); err != nil {
				if _, err := store.CreateSession(ctx, sessionID, ""); err != nil {
					slog.Error("Failed to create session", "error", err)
					os.Exit(1)
				}
			}

			out, err := pipeline.RunResearch(ctx, sessionID, topic, numResults)
			if err != nil {
				slog.Error("Error running research", "error", err)
				os.Exit(1)
			}

			fmt.Printf("Topic: %s\n\n", out.Topic)
			fmt.Printf("Summary:\n%s\n\n", out.Summary)
			fmt.Printf("Notes:\n%s\n\n", out.Notes)
			fmt.Printf("Key Insights:\n%s\n\n", out.KeyInsights)
			if len(out.Suggestions) > 0 {
				fmt.Println("Suggestions:")
				for i, s := range out.Suggestions {
					fmt.Printf("  %d. %s\n", i+1, s)
				}
				fmt.Println()
			}
			if len(out.ReflectingQuestions) > 0 {
				fmt.Println("Reflecting Questions:")
				for i, q := range out.ReflectingQuestions {
					fmt.Printf("  %d. %s\n", i+1, q)
				}
				fmt.Println()
			}
			fmt.Printf("Report:\n%s\n", out.Report)
			slog.Info("Research saved", "session_id", sessionID)
		},
	}

	rootCmd.Flags().StringVarP(&topic, "topic", "t", "", "The research topic")
	rootCmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session ID to append results to")
	rootCmd.Flags().IntVarP(&numResults, "num-results", "n", 0, "Number of search results to analyze")
	rootCmd.Flags().BoolVarP(&deep, "deep", "d", false, "Run the deep multi-agent research pipeline")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
