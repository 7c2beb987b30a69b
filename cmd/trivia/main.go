package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/quizlab/go-trivia/internal/config"
	"github.com/quizlab/go-trivia/internal/log"
	"github.com/quizlab/go-trivia/pkg/game"
	"github.com/quizlab/go-trivia/pkg/session"
)

func main() {
	configPath := flag.String("config", "trivia.toml", "Path to the config file")
	maxRounds := flag.Int("rounds", 0, "Override game.max_rounds (0 keeps the config value)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trivia: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.Logging.Level)
	logger := log.L()

	creds, err := config.LoadCredentials()
	if err != nil {
		logger.Error("credential resolution failed", "error", err)
		os.Exit(1)
	}

	bundle, err := config.Resolve(cfg, creds, logger)
	if err != nil {
		logger.Error("provider setup failed", "error", err)
		os.Exit(1)
	}
	defer bundle.Close()

	rounds := cfg.Game.MaxRounds
	if *maxRounds > 0 {
		rounds = *maxRounds
	}
	sess := session.New(rounds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nwrapping up after this round...")
		sess.MarkTerminate()
		<-sigChan
		cancel()
	}()

	opts := []game.Option{
		game.WithJudge(bundle.Judge),
		game.WithPersonality(cfg.Persona()),
		game.WithScript(game.NewScript(cfg.Persona(), cfg.ScriptOptions()...)),
		game.WithListenWindow(cfg.Game.ListenWindow),
		game.WithOutput(os.Stdout),
		game.WithLogger(logger),
	}
	if bundle.Speaker != nil {
		opts = append(opts, game.WithSpeaker(bundle.Speaker))
	}
	if bundle.Listener != nil {
		opts = append(opts, game.WithListener(bundle.Listener))
	}

	host, err := game.New(bundle.Generator, sess, opts...)
	if err != nil {
		logger.Error("orchestrator setup failed", "error", err)
		os.Exit(1)
	}

	if err := host.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("session ended abnormally", "error", err)
		os.Exit(1)
	}

	fmt.Printf("\nFinal score after %d rounds: %d\n", sess.Round(), sess.Score())
}
