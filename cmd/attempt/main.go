package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/proctorly/backend/internal/apiclient"
	"github.com/proctorly/backend/internal/config"
	"github.com/proctorly/backend/internal/engine"
	"github.com/proctorly/backend/internal/logger"
	"github.com/proctorly/backend/internal/tui"
	"golang.org/x/term"
)

func main() {
	var serverURL, testIDStr, resumeIDStr string
	flag.StringVar(&serverURL, "server", "http://localhost:8080", "Attempt service base URL")
	flag.StringVar(&testIDStr, "test", "", "Test ID to attempt")
	flag.StringVar(&resumeIDStr, "resume", "", "Attempt ID to resume (optional)")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if testIDStr == "" {
		fmt.Println("Error: -test is required")
		flag.PrintDefaults()
		os.Exit(1)
	}
	testID, err := uuid.Parse(testIDStr)
	if err != nil {
		fmt.Println("Error: -test must be a valid UUID")
		os.Exit(1)
	}
	resumeID := uuid.Nil
	if resumeIDStr != "" {
		resumeID, err = uuid.Parse(resumeIDStr)
		if err != nil {
			fmt.Println("Error: -resume must be a valid UUID")
			os.Exit(1)
		}
	}

	// ─── Login ─────────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)

	fmt.Print("Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		os.Exit(1)
	}
	fmt.Println()

	loginCtx, loginCancel := context.WithTimeout(context.Background(), 15*time.Second)
	client, err := apiclient.Login(loginCtx, serverURL, email, string(bytePassword))
	loginCancel()
	if err != nil {
		fmt.Printf("Login failed: %v\n", err)
		os.Exit(1)
	}

	// ─── Wire the Engine ───────────────────────────────────────────────
	source := tui.NewTerminalSignalSource()
	monitor := engine.NewMonitor(engine.MonitorConfig{Source: source}, log)

	session := engine.NewSession(engine.SessionConfig{
		Service: client,
		Monitor: monitor,
	}, log)
	defer session.Close()

	ctx := context.Background()
	if err := session.Acquire(ctx, testID, resumeID); err != nil {
		fmt.Printf("Could not acquire an attempt: %v\n", err)
		os.Exit(1)
	}
	if err := session.LoadContent(ctx); err != nil {
		fmt.Printf("Could not load attempt content: %v\n", err)
		os.Exit(1)
	}

	// ─── Run the TUI ───────────────────────────────────────────────────
	p := tea.NewProgram(
		tui.New(session, source),
		tea.WithAltScreen(),
		tea.WithReportFocus(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Printf("TUI error: %v\n", err)
		os.Exit(1)
	}
}
