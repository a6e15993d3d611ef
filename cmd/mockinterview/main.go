package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/mockinterview/internal/handler"
	appI18n "github.com/pavelanni/mockinterview/internal/i18n"
	"github.com/pavelanni/mockinterview/internal/interview"
	"github.com/pavelanni/mockinterview/internal/llm"
	"github.com/pavelanni/mockinterview/internal/llm/prompts"
	"github.com/pavelanni/mockinterview/internal/model"
	"github.com/pavelanni/mockinterview/internal/report"
	"github.com/pavelanni/mockinterview/internal/store"
)

// Conventional provider variables accepted next to the MOCKINTERVIEW_ ones.
var providerKeyEnv = map[llm.ProviderName]string{
	llm.ProviderGemini:    "GEMINI_API_KEY",
	llm.ProviderOpenAI:    "OPENAI_API_KEY",
	llm.ProviderGroq:      "GROQ_API_KEY",
	llm.ProviderAnthropic: "ANTHROPIC_API_KEY",
}

var defaultCORSOrigins = []string{
	"http://localhost",
	"http://localhost:8501",
	"http://127.0.0.1",
	"http://127.0.0.1:8501",
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "load .env:", err)
	}
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mockinterview",
		Short: "Mock interview service with LLM-generated questions and feedback",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `mockinterview --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP interview API",
		RunE:  runServe,
	}
	defaults := llm.DefaultConfig()

	f := cmd.Flags()
	f.StringP("addr", "a", ":8000", "HTTP listen address")
	f.String("db", "", "SQLite database path (empty keeps sessions in memory)")
	f.String("default-provider", string(llm.ProviderGemini), "Provider used when a request names none")
	f.IntP("num-questions", "n", 4, "Number of questions per interview")
	f.String("prompt-variant", string(prompts.PromptStandard), "Evaluation prompt variant (strict, standard, lenient)")
	for _, p := range llm.Providers {
		pc := defaults.Provider(p)
		f.String(string(p)+"-key", "", fmt.Sprintf("Server API key for %s (or set %s)", p, providerKeyEnv[p]))
		f.String(string(p)+"-model", pc.Model, fmt.Sprintf("Default %s model", p))
		f.String(string(p)+"-url", pc.BaseURL, fmt.Sprintf("%s API base URL override", p))
	}
	f.Duration("llm-timeout", defaults.Timeout, "Timeout for each LLM call")
	f.StringSlice("cors-origins", defaultCORSOrigins, "Allowed CORS origins")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /api)")
	f.StringP("lang", "l", "en", "Default report language (en, ru)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored interview sessions",
		Long: "Without --session, writes every stored session as JSON. With --session, " +
			"renders that session as a PDF, HTML page or JSON document.",
		RunE: runExport,
	}
	f := cmd.Flags()
	f.String("db", "mockinterview.db", "SQLite database path")
	f.StringP("session", "s", "", "Session id to render")
	f.StringP("format", "f", "pdf", "Single-session format (pdf, html, json)")
	f.StringP("kind", "k", string(report.KindFull), "PDF layout (full, summary)")
	f.StringP("lang", "l", "en", "HTML report language (en, ru)")
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

	v.SetEnvPrefix("MOCKINTERVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for p, env := range providerKeyEnv {
		_ = v.BindEnv(string(p)+"-key", "MOCKINTERVIEW_"+strings.ToUpper(string(p))+"_KEY", env)
	}

	v.SetConfigName("mockinterview")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/mockinterview")
	v.AddConfigPath("/etc/mockinterview")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// llmConfig builds the provider configuration from flags and environment.
func llmConfig(v *viper.Viper) llm.Config {
	cfg := llm.DefaultConfig()
	for _, p := range llm.Providers {
		pc := cfg.Provider(p)
		pc.APIKey = strings.TrimSpace(v.GetString(string(p) + "-key"))
		if m := v.GetString(string(p) + "-model"); m != "" {
			pc.Model = m
		}
		if u := v.GetString(string(p) + "-url"); u != "" {
			pc.BaseURL = u
		}
		cfg.Providers[p] = pc
	}
	if t := v.GetDuration("llm-timeout"); t > 0 {
		cfg.Timeout = t
	}
	return cfg
}

// sessionStore is what serve needs from a backing store.
type sessionStore interface {
	interview.Store
	Close() error
}

type memoryStore struct{ *store.Memory }

func (memoryStore) Close() error { return nil }

func openStore(dbPath string) (sessionStore, error) {
	if dbPath == "" {
		slog.Info("using in-memory session store")
		return memoryStore{store.NewMemory()}, nil
	}
	db, err := store.New(dbPath)
	if err != nil {
		return nil, err
	}
	slog.Info("using SQLite session store", "path", dbPath)
	return db, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Initialize i18n.
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	promptVariant := strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant")))
	if !prompts.IsValidVariant(promptVariant) {
		slog.Warn("invalid prompt-variant, using standard", "variant", promptVariant)
		promptVariant = string(prompts.PromptStandard)
	}
	promptSet, err := prompts.Default()
	if err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}

	defaultProvider, err := llm.ParseProvider(v.GetString("default-provider"))
	if err != nil {
		return err
	}

	llmCfg := llmConfig(v)
	router := llm.NewDefaultRouter(llmCfg)
	for _, info := range router.Providers() {
		slog.Info("LLM provider", "provider", info.Name, "model", info.DefaultModel, "server_key", info.ServerKey,
			"key", llm.Fingerprint(llmCfg.Provider(info.Name).APIKey))
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	appCfg := model.AppConfig{
		NumQuestions:    v.GetInt("num-questions"),
		DefaultProvider: string(defaultProvider),
		PromptVariant:   promptVariant,
		BasePath:        basePath,
	}
	gen := interview.NewGenerator(router, promptSet, prompts.PromptVariant(promptVariant))
	svc := interview.NewService(db, gen, appCfg)
	h := handler.New(svc, router, appCfg)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   v.GetStringSlice("cors-origins"),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, h.Routes)
	} else {
		h.Routes(r)
	}

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"default_provider", appCfg.DefaultProvider,
		"num_questions", appCfg.NumQuestions,
		"prompt_variant", promptVariant,
		"llm_timeout", llmCfg.Timeout,
		"base_path", basePath,
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := context.Background()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	var data []byte
	if id := v.GetString("session"); id != "" {
		data, err = renderSession(ctx, v, db, id)
	} else {
		var export *model.SessionsExport
		export, err = store.ExportAllSessions(ctx, db)
		if err == nil {
			data, err = json.MarshalIndent(export, "", "  ")
			data = append(data, '\n')
		}
	}
	if err != nil {
		return fmt.Errorf("export sessions: %w", err)
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
	if outPath != "" && outPath != "-" {
		slog.Info("export written", "path", outPath, "bytes", len(data))
	}
	return nil
}

func renderSession(ctx context.Context, v *viper.Viper, db *store.Store, id string) ([]byte, error) {
	sess, err := db.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return nil, fmt.Errorf("init i18n: %w", err)
	}

	switch format := strings.ToLower(v.GetString("format")); format {
	case "pdf":
		kind, err := report.ParseKind(v.GetString("kind"))
		if err != nil {
			return nil, err
		}
		doc, err := report.PDF(ctx, sess, kind, time.Now())
		if err != nil {
			return nil, err
		}
		return doc.Data, nil
	case "html":
		var b strings.Builder
		if err := report.HTML(sess).Render(appI18n.WithLang(ctx, lang), &b); err != nil {
			return nil, err
		}
		return []byte(b.String()), nil
	case "json":
		data, err := json.MarshalIndent(model.NewSessionResult(sess), "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}
