// Command scores builds a score index from a rated review corpus and answers
// a file of WORDSCORE, REVIEWSCORE and WORDSABOVE commands on stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/review-scores/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/review-scores/internal/query/engine"
	"github.com/Adithya-Monish-Kumar-K/review-scores/internal/scoring/index"
	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/review-scores/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/postgres"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to config file")
	corpusPath := flag.String("corpus", "", "corpus file (overrides corpus.path)")
	lines := flag.Int("lines", -1, "number of corpus lines to index (overrides corpus.maxLines)")
	queries := flag.String("queries", "", "command file; stdin when empty")
	source := flag.String("source", "", "corpus source: file or postgres (overrides corpus.source)")
	seed := flag.String("seed", "", "copy this corpus file into the postgres corpus table and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 2
	}
	if *corpusPath != "" {
		cfg.Corpus.Path = *corpusPath
	}
	if *lines >= 0 {
		cfg.Corpus.MaxLines = *lines
	}
	if *source != "" {
		cfg.Corpus.Source = *source
	}
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *seed != "" {
		return seedCorpus(ctx, cfg, *seed)
	}

	src, closeSource, err := corpus.Open(ctx, cfg.Corpus, cfg.Postgres)
	if err != nil {
		return sourceFailure(err)
	}
	defer closeSource()

	idx, err := index.BuildFromSource(ctx, src, cfg.Corpus.MaxLines, nil)
	if err != nil {
		return sourceFailure(err)
	}

	eng := engine.New(idx, nil)
	var out string
	if *queries == "" {
		out, err = eng.ResultsFrom(os.Stdin)
		if err != nil {
			out = engine.SourceNotFound
		}
	} else {
		out = eng.RunFile(*queries)
	}
	if out == engine.SourceNotFound {
		fmt.Println(out)
		return 1
	}
	fmt.Print(out)
	return 0
}

func sourceFailure(err error) int {
	if errors.Is(err, apperrors.ErrSourceUnavailable) {
		logger.WithComponent("scores").Error("corpus unavailable", "error", err)
		fmt.Println(engine.SourceNotFound)
		return 1
	}
	fmt.Fprintf(os.Stderr, "%v\n", err)
	return 2
}

func seedCorpus(ctx context.Context, cfg *config.Config, path string) int {
	lines, err := corpus.NewFileSource(path).Lines(ctx, math.MaxInt)
	if err != nil {
		return sourceFailure(err)
	}
	client, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connecting to postgres: %v\n", err)
		return 1
	}
	defer client.Close()
	n, err := corpus.Seed(ctx, client, cfg.Corpus.Table, lines)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	fmt.Fprintf(os.Stderr, "seeded %d lines into %s\n", n, cfg.Corpus.Table)
	return 0
}
