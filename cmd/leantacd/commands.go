package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/oraraka-deko/leantac/server"
	"github.com/oraraka-deko/leantac/tactic"
)

// --- Global Command Variables ---
var (
	configPath string
	envFile    string
	logLevel   string
	logFormat  string

	listenAddr   string
	suggestModel []string
	suggestPfx   string
	jsonOutput   bool

	rootCmd = &cobra.Command{
		Use:   "leantacd",
		Short: "Ranked Lean 4 tactic suggestions from hosted and local LLMs",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnv(envFile); err != nil {
				return err
			}
			return setupLogging(logLevel, logFormat)
		},
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve /generate over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	suggestCmd = &cobra.Command{
		Use:   "suggest [proof state]",
		Short: "Print ranked tactics for a proof state (argument or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSuggest,
	}

	modelsCmd = &cobra.Command{
		Use:   "models",
		Short: "List configured models with their family, provider and mode",
		Args:  cobra.NoArgs,
		RunE:  runModels,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (defaults serve gpt-5-mini and gpt-5-nano)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading credentials")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "json or text")

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address, overrides the config file")

	rootCmd.AddCommand(suggestCmd)
	suggestCmd.Flags().StringArrayVarP(&suggestModel, "model", "m", nil, "model name to query; repeatable (default: all configured)")
	suggestCmd.Flags().StringVarP(&suggestPfx, "prefix", "p", "", "only ask for tactics starting with this prefix")
	suggestCmd.Flags().BoolVar(&jsonOutput, "json", false, "print results as JSON")

	rootCmd.AddCommand(modelsCmd)
}

// loadEnv reads a dotenv file without overriding variables already set. A
// missing file is not an error.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func setupLogging(level, format string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid --log-level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	switch format {
	case "json":
		h = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		h = slog.NewTextHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid --log-format %q", format)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()
	reg, err := server.NewRegistry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return server.New(reg, logger, cfg.RequestTimeout).ListenAndServe(ctx, cfg.Listen)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	state, err := readState(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if len(suggestModel) > 0 {
		if cfg.Models, err = selectModels(cfg.Models, suggestModel); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	reg, err := server.NewRegistry(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	results, genErr := reg.GenerateMany(ctx, reg.Models(), state, suggestPfx)
	if genErr != nil {
		slog.Warn("some models failed", "error", genErr)
	}
	if len(results) == 0 {
		return genErr
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	return printResults(out, results)
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMODEL\tFAMILY\tPROVIDER\tMODE")
	for _, m := range cfg.Models {
		family := m.Family
		if family == "" {
			if f, err := tactic.FamilyOf(m.Model); err == nil {
				family = f.String()
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.Name, m.Model, family, orAuto(m.Provider), orAuto(m.Mode))
	}
	return w.Flush()
}

func orAuto(s string) string {
	if s == "" {
		return "auto"
	}
	return s
}

// readState takes the proof state from the first argument or, when absent, stdin.
func readState(args []string, stdin io.Reader) (string, error) {
	var state string
	if len(args) == 1 {
		state = args[0]
	} else {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read proof state: %w", err)
		}
		state = string(raw)
	}
	if strings.TrimSpace(state) == "" {
		return "", errors.New("empty proof state")
	}
	return state, nil
}

func selectModels(all []server.ModelConfig, names []string) ([]server.ModelConfig, error) {
	byName := make(map[string]server.ModelConfig, len(all))
	for _, m := range all {
		byName[m.Name] = m
	}
	out := make([]server.ModelConfig, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		m, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("%w: %q", tactic.ErrUnknownModel, n)
		}
		out = append(out, m)
	}
	return out, nil
}

func printResults(out io.Writer, results map[string][]tactic.Candidate) error {
	names := make([]string, 0, len(results))
	for n := range results {
		names = append(names, n)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, n := range names {
		fmt.Fprintf(w, "# %s\n", n)
		for _, c := range results[n] {
			fmt.Fprintf(w, "%.2f\t%s\n", c.Confidence, c.Tactic)
		}
	}
	return w.Flush()
}
