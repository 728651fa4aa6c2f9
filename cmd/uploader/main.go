package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"vrc-uploader/infrastructure/webhook"
	"vrc-uploader/internal"
	"vrc-uploader/repositories"
	"vrc-uploader/runtime"
	"vrc-uploader/runtime/workers"
	"vrc-uploader/sink"
)

// Exit codes for the uploader.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "vrc-uploader error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the worker lifecycle, and
// centralizes error reporting so deferred cleanups execute before exit.
func run() (int, error) {
	flag.Parse()

	// 1. Configuration & Logger
	_ = godotenv.Load()
	var cfg internal.Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(cfg.LogLevel)

	dataDir := cfg.DataDir
	if dataDir == "" {
		var err error
		if dataDir, err = internal.DefaultDataDir(); err != nil {
			return exitConfig, err
		}
	}

	// 2. Durable stores, read once at startup for the initial count display
	history := repositories.NewHistoryRepository(dataDir, log)
	counter := repositories.NewCounterRepository(dataDir, log)
	history.Load()
	counter.Load()
	fmt.Printf("Total Uploads: %d\n", counter.Count())

	// 3. Pipeline wiring
	queue := runtime.NewUploadQueue()
	mailbox := runtime.NewMailbox()
	responses := runtime.NewResponseSlot()
	state := runtime.NewRunState()
	var canceled atomic.Bool

	supervisor := workers.NewSupervisor(log)
	orch := runtime.NewOrchestrator(log, queue, mailbox, responses, state, supervisor, &canceled)

	transport := webhook.NewClient(cfg.WebhookURL, cfg.UploadTimeout, log)
	orch.SetWorker(workers.NewUploadWorker(
		log, queue, mailbox, responses, state, history, counter, transport, &canceled,
		workers.Options{
			MaxFileSize:    cfg.MaxFileSize,
			MaxRetries:     cfg.MaxRetries,
			ConfirmTimeout: cfg.ConfirmTimeout,
			PacingDelay:    cfg.PacingDelay,
		},
	))

	prompter := newStdinPrompter(os.Stdout, cfg.ConfirmTimeout)
	console := sink.NewConsoleSink(log, mailbox, orch, prompter, cfg.PollInterval, os.Stdout)

	// 4. Context & signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	supervisor.Start(ctx, console)

	// 5. Initial batch from the command line, then interactive commands
	if args := flag.Args(); len(args) > 0 {
		orch.AddFiles(ctx, args)
	}
	go commandLoop(ctx, orch, prompter, stop)

	<-ctx.Done()
	log.Info("Shutting down gracefully...")
	supervisor.Wait()
	return exitOK, nil
}

// commandLoop reads stdin: a path (or "add <path> ...") enqueues files,
// "cancel" aborts the current run, "quit" exits. While a duplicate prompt is
// pending, the next line answers it instead.
func commandLoop(ctx context.Context, orch *runtime.Orchestrator, prompter *stdinPrompter, stop context.CancelFunc) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if prompter.Offer(line) {
			continue
		}
		switch {
		case line == "":
		case line == "quit" || line == "exit":
			stop()
			return
		case line == "cancel":
			orch.Cancel()
		case strings.HasPrefix(line, "add "):
			orch.AddFiles(ctx, strings.Fields(line)[1:])
		default:
			orch.AddFiles(ctx, []string{line})
		}
	}
	stop()
}
