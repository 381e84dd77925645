package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/tutor/internal/audio"
	"github.com/pavelanni/tutor/internal/evaluate"
	"github.com/pavelanni/tutor/internal/feedback"
	"github.com/pavelanni/tutor/internal/history"
	appI18n "github.com/pavelanni/tutor/internal/i18n"
	"github.com/pavelanni/tutor/internal/llm"
	"github.com/pavelanni/tutor/internal/model"
	"github.com/pavelanni/tutor/internal/quiz"
	"github.com/pavelanni/tutor/internal/session"
	"github.com/pavelanni/tutor/internal/similarity"
	"github.com/pavelanni/tutor/internal/store"
)

func main() {
	_ = godotenv.Load()
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tutor",
		Short: "Interactive Q&A tutor with answer scoring",
	}

	run := runCmd()
	root.AddCommand(run, historyCmd(), exportCmd())

	// Make "run" the default when no subcommand is given.
	root.RunE = run.RunE

	// Register run flags on root so bare `tutor --questions ...` still works.
	root.Flags().AddFlagSet(run.Flags())

	return root
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start an interactive tutoring session",
		RunE:  runSession,
	}
	f := cmd.Flags()
	f.StringP("questions", "q", "questions/python_basics.json", "Path to questions JSON file")
	f.String("db", "tutor.db", "SQLite database path")
	f.StringP("lang", "l", "en", "Session language (en, ru)")
	f.IntP("num-questions", "n", 0, "Number of questions per session (0 = all available)")
	f.StringP("difficulty", "d", "", "Filter questions by difficulty (easy, medium, hard)")
	f.StringP("topic", "t", "", "Filter questions by topic")
	f.Bool("shuffle", true, "Randomize question order")
	f.Int("max-retries", session.DefaultMaxRetries, "Extra attempts after an empty answer")
	f.Duration("time-limit", 0, "Per-question time limit (0 = none)")
	f.Float64("threshold-correct", evaluate.DefaultThresholdCorrect, "Similarity threshold for a correct verdict")
	f.Float64("threshold-partial", evaluate.DefaultThresholdPartial, "Similarity threshold for a partial verdict")
	f.Bool("text-only", true, "Read answers from the terminal instead of a microphone")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model for feedback and explanations")
	f.Bool("llm-enabled", true, "Use the LLM for enriched feedback")
	f.String("embedding-model", "nomic-embed-text", "Embedding model for answer similarity (empty = lexical matching)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Serve stored session results over HTTP",
		RunE:  runHistory,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "tutor.db", "SQLite database path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export session results as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "tutor.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("TUTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("tutor")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/tutor")
	v.AddConfigPath("/etc/tutor")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runSession(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Open database.
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Initialize i18n.
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx = appI18n.WithLocalizer(ctx, appI18n.NewLocalizer(lang))

	cfg := model.SessionConfig{
		NumQuestions:     v.GetInt("num-questions"),
		Difficulty:       v.GetString("difficulty"),
		Topic:            v.GetString("topic"),
		Shuffle:          v.GetBool("shuffle"),
		MaxRetries:       v.GetInt("max-retries"),
		TimeLimit:        v.GetDuration("time-limit"),
		ThresholdCorrect: v.GetFloat64("threshold-correct"),
		ThresholdPartial: v.GetFloat64("threshold-partial"),
		TextOnly:         v.GetBool("text-only"),
	}

	// Load questions with the session filters applied.
	src, err := quiz.Load(v.GetString("questions"), cfg)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	if src.Count() == 0 {
		return fmt.Errorf("no questions match the configured filters")
	}

	// Create LLM client. The session degrades to templated feedback
	// when the endpoint is unreachable.
	var generator feedback.Generator
	var explainer session.Explainer
	var provider similarity.Provider
	llmURL := v.GetString("llm-url")
	llmKey := v.GetString("llm-key")
	if v.GetBool("llm-enabled") {
		client := llm.New(llmURL, llmKey, v.GetString("llm-model"), true)
		if client.Available(ctx) {
			slog.Info("LLM endpoint OK", "url", llmURL, "model", v.GetString("llm-model"))
		} else {
			slog.Warn("LLM endpoint unavailable, using templated feedback", "url", llmURL)
		}
		generator = client
		explainer = client

		if embeddingModel := v.GetString("embedding-model"); embeddingModel != "" {
			provider = similarity.NewEmbedding(llmURL, llmKey, embeddingModel)
		}
	}

	evaluator := evaluate.New(provider, cfg.ThresholdCorrect, cfg.ThresholdPartial)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	composer := feedback.New(generator, rng)

	if !cfg.TextOnly {
		slog.Warn("no microphone backend built in, reading answers from the terminal")
	}
	listener := audio.NewTextListener(os.Stdin, os.Stdout)
	speaker := audio.NewTerminalSpeaker(os.Stdout)

	sessionID := uuid.NewString()
	slog.Info("starting session",
		"session_id", sessionID,
		"questions", src.Count(),
		"lang", lang,
		"difficulty", cfg.Difficulty,
		"topic", cfg.Topic,
		"shuffle", cfg.Shuffle,
		"time_limit", cfg.TimeLimit,
	)

	controller := session.New(sessionID, src, evaluator, composer, speaker, listener, db, explainer, cfg)
	controller.Run(ctx)
	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	history.New(db).Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting history server", "addr", addr, "db", v.GetString("db"))
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	sessions, err := db.ExportAll()
	if err != nil {
		return fmt.Errorf("export sessions: %w", err)
	}

	export := model.SessionExport{
		ExportedAt: time.Now().Format(time.RFC3339),
		Sessions:   sessions,
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}
