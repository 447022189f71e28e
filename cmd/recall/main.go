package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/recall/internal/console"
	"github.com/pavelanni/recall/internal/handler"
	appI18n "github.com/pavelanni/recall/internal/i18n"
	"github.com/pavelanni/recall/internal/llm"
	"github.com/pavelanni/recall/internal/llm/prompts"
	"github.com/pavelanni/recall/internal/model"
	"github.com/pavelanni/recall/internal/session"
	"github.com/pavelanni/recall/internal/source"
	"github.com/pavelanni/recall/internal/store"
)

// defaultBankKey identifies the embedded bank in the import records.
const defaultBankKey = "embedded:" + source.DefaultBankName

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "recall",
		Short: "Active recall question sessions with LLM grading",
	}

	serve := serveCmd()
	root.AddCommand(serve, takeCmd(), documentsCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `recall --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLogFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the recall API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "recall.db", "SQLite database path")
	f.StringSliceP("bank", "b", nil, "Question bank files to import, JSON or YAML (repeatable)")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.StringP("lang", "l", "en", "Default language for messages (en, ru)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /recall)")
	f.String("prompt-variant", string(prompts.PromptStandard), "Grading prompt variant (strict, standard, lenient)")
	f.Bool("skip-llm-check", false, "Start even if the LLM endpoint is unreachable")
	f.Duration("grade-timeout", handler.DefaultGradeTimeout, "Time limit for grading one answer")
	addLogFlags(cmd)
	return cmd
}

func takeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "take",
		Short: "Take a recall session in the terminal",
		Long: `Take a recall session in the terminal.

Without --server the session runs offline over a question bank (--bank, or
the built-in bank) and answers are checked by exact match. With --server the
questions come from a recall API server, which grades every answer.`,
		RunE: runTake,
	}
	f := cmd.Flags()
	f.String("bank", "", "Question bank file for an offline session (default: built-in bank)")
	f.String("server", "", "Recall API base URL, e.g. http://localhost:8080/api")
	f.String("document", "", "Document ID to take when using --server")
	f.StringP("lang", "l", "en", "Interface language (en, ru)")
	f.Bool("no-color", false, "Disable colors")
	f.Duration("grading-timeout", session.DefaultGradingTimeout, "Time limit for grading one answer")
	addLogFlags(cmd)
	return cmd
}

func documentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "List documents on a recall API server",
		RunE:  runDocuments,
	}
	f := cmd.Flags()
	f.String("server", "http://localhost:8080/api", "Recall API base URL")
	f.StringP("lang", "l", "en", "Interface language (en, ru)")
	addLogFlags(cmd)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export documents, questions and answers as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "recall.db", "SQLite database path")
	f.String("prompt-variant", string(prompts.PromptStandard), "Prompt variant included in export metadata")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(cmd)
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

	v.SetEnvPrefix("RECALL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("recall")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/recall")
	v.AddConfigPath("/etc/recall")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := importBanks(db, v.GetStringSlice("bank")); err != nil {
		return fmt.Errorf("import banks: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	promptVariant := strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant")))
	if !prompts.IsValidVariant(promptVariant) {
		slog.Warn("invalid prompt-variant, using standard", "variant", promptVariant)
		promptVariant = string(prompts.PromptStandard)
	}
	llmClient, err := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
		promptVariant,
	)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}
	if err := llmClient.Ping(cmd.Context()); err != nil {
		if !v.GetBool("skip-llm-check") {
			return fmt.Errorf("LLM health check: %w", err)
		}
		slog.Warn("LLM health check failed, grading will fail until it recovers", "error", err)
	} else {
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	cfg := model.ServerConfig{
		BasePath:      basePath,
		PromptVariant: promptVariant,
		Lang:          lang,
		GradeTimeout:  v.GetDuration("grade-timeout"),
	}
	h, err := handler.New(db, llmClient, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"lang", lang,
		"prompt_variant", promptVariant,
		"base_path", basePath,
	)
	return http.ListenAndServe(addr, r)
}

func runTake(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = appI18n.WithLocalizer(ctx, appI18n.NewLocalizer(lang))

	gradingTimeout := v.GetDuration("grading-timeout")
	var (
		src        session.Source
		documentID string
	)
	if server := v.GetString("server"); server != "" {
		documentID = v.GetString("document")
		if documentID == "" {
			return errors.New("--document is required with --server")
		}
		// Server-side grading can outlast source.DefaultTimeout; the session
		// bounds each grading call itself.
		client, err := source.NewClient(server,
			source.WithHTTPClient(&http.Client{Timeout: takeHTTPTimeout(gradingTimeout)}))
		if err != nil {
			return err
		}
		src = client
	} else {
		bank, name, err := openBank(v.GetString("bank"))
		if err != nil {
			return err
		}
		src, documentID = bank, name
	}

	s := session.New(src,
		session.WithLogger(slog.Default()),
		session.WithGradingTimeout(gradingTimeout),
	)
	defer s.Wait()

	runner := console.NewRunner(s, os.Stdin, os.Stdout, console.WithNoColor(v.GetBool("no-color")))
	return runner.Run(ctx, documentID)
}

// openBank loads the bank at path, or the embedded bank when path is empty.
func openBank(path string) (*source.Bank, string, error) {
	if path == "" {
		b, err := source.DefaultBank()
		return b, source.DefaultBankName, err
	}
	b, err := source.LoadBank(path)
	return b, path, err
}

func runDocuments(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLocalizer(cmd.Context(), appI18n.NewLocalizer(lang))

	client, err := source.NewClient(v.GetString("server"))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, source.DefaultTimeout)
	defer cancel()
	docs, err := client.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(docs) == 0 {
		fmt.Fprintln(out, appI18n.T(ctx, "DocumentsEmpty"))
		return nil
	}
	for _, d := range docs {
		fmt.Fprintf(out, "%s  %-40s  %s\n", d.DocumentID, d.Title, appI18n.Tp(ctx, "QuestionCount", d.QuestionsCount))
	}
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	results, err := db.ExportDocuments()
	if err != nil {
		return fmt.Errorf("export documents: %w", err)
	}

	export := model.RecallExport{
		ExportedAt:    time.Now().UTC(),
		PromptVariant: v.GetString("prompt-variant"),
		Documents:     results,
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

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

// importBanks imports each bank file as a document. With no paths the
// embedded bank is imported into an empty database. A file is imported once;
// a file that changed since its import is skipped so answers keep pointing
// at the questions they were given for.
func importBanks(db *store.Store, paths []string) error {
	type bankData struct {
		key  string
		name string
		data []byte
	}
	var banks []bankData

	if len(paths) == 0 {
		count, err := db.QuestionCount()
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		banks = append(banks, bankData{key: defaultBankKey, name: source.DefaultBankName, data: source.DefaultBankData()})
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		banks = append(banks, bankData{key: path, name: path, data: data})
	}

	for _, b := range banks {
		hash := sha256sum(b.data)
		storedHash, err := db.GetImportedFileHash(b.key)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", b.key, err)
		}

		if storedHash == hash {
			slog.Info("bank file unchanged, skipping", "path", b.key)
			continue
		}
		if storedHash != "" {
			slog.Warn("bank file changed since last import, skipping to keep existing answers consistent",
				"path", b.key)
			continue
		}

		f, err := source.ParseBankFile(b.name, b.data)
		if err != nil {
			return err
		}
		docID, err := db.ImportBank(b.key, hash, f)
		if err != nil {
			return fmt.Errorf("import %s: %w", b.key, err)
		}
		slog.Info("imported bank", "path", b.key, "document_id", docID, "count", len(f.Questions))
	}

	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// takeHTTPTimeout is the HTTP client timeout for a networked session: never
// shorter than one grading call, and unbounded when grading is.
func takeHTTPTimeout(grading time.Duration) time.Duration {
	if grading <= 0 {
		return 0
	}
	return max(grading, source.DefaultTimeout)
}
