// JapaAdvisor terminal client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ashureev/japa-advisor/internal/advisor"
	"github.com/ashureev/japa-advisor/internal/config"
	"github.com/ashureev/japa-advisor/internal/domain"
	"github.com/ashureev/japa-advisor/internal/prompt"
	"github.com/ashureev/japa-advisor/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/muesli/termenv"
)

func main() {
	promptMode := flag.Bool("prompt", false, "ask questions line by line instead of the full-screen form")
	baseURL := flag.String("url", "", "advisor API base URL (overrides ADVISOR_BASE_URL)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}

	// The terminal belongs to the UI, so diagnostics go to a file.
	logFile, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	if cfg.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend := advisor.NewHTTPBackend(cfg.BaseURL, &http.Client{Timeout: cfg.RequestTimeout})
	opts := []advisor.Option{advisor.WithLogger(logger), advisor.WithNationality(cfg.Nationality)}
	slog.Info("Client starting", "base_url", cfg.BaseURL, "prompt_mode", *promptMode)

	if *promptMode {
		err = runPrompt(ctx, backend, opts)
	} else {
		_, err = tea.NewProgram(tui.New(ctx, backend, opts...), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	}
	if err != nil && !errors.Is(err, prompt.ErrAborted) && !errors.Is(err, tea.ErrProgramKilled) {
		slog.Error("Client exited with error", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runPrompt(ctx context.Context, backend advisor.Backend, opts []advisor.Option) error {
	opts = append(opts, advisor.WithObserver(func(s advisor.State) {
		if s.Pending() {
			fmt.Println("Generating your roadmap...")
		}
	}))
	orch := advisor.New(backend, opts...)
	driver := prompt.NewSurveyDriver()

	var last domain.ProfileInput
	for {
		profile, err := prompt.AskProfile(ctx, driver, last)
		if err != nil {
			return err
		}
		last = profile

		final, err := orch.Submit(ctx, profile)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(tui.RenderState(final, 100))
		fmt.Println()

		again, err := prompt.Confirm(ctx, "Plan another move?", false)
		if err != nil || !again {
			return err
		}
	}
}
