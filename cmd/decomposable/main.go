package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/danielpatrickdp/strongsup/go-decoder/internal/codec"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/config"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/decomposable"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/embed"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/parse"
	"github.com/danielpatrickdp/strongsup/go-decoder/internal/trainlog"
)

// #region main
func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code so deferred cleanup finishes before exit.
func run(args []string) int {
	fs := flag.NewFlagSet("decomposable", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to decoder config JSON (defaults if empty)")
	csvPath := fs.String("csv", "", "training CSV: utterance,decisions,label with a header row")
	glovePath := fs.String("glove", "", "GloVe text file")
	predicatesPath := fs.String("predicates", "", "file with one predicate name per line")
	exportPath := fs.String("export", "", "write the logged decomposable rows to this CSV and exit")
	seed := fs.Int64("seed", 0, "minibatch sampling seed")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}

	store, err := trainlog.NewStore(cfg.DBPath)
	if err != nil {
		log.Printf("failed to open train log %s: %v", cfg.DBPath, err)
		return 1
	}
	defer store.Close()

	if *exportPath != "" {
		return runExport(store, *exportPath)
	}

	if *csvPath == "" || *glovePath == "" || *predicatesPath == "" {
		fmt.Fprintln(os.Stderr, "usage: decomposable --csv rows.csv --glove glove.txt --predicates predicates.txt [--config cfg.json] [--seed N]")
		fmt.Fprintln(os.Stderr, "       decomposable --export rows.csv [--config cfg.json]")
		return 2
	}

	predicates, err := readPredicates(*predicatesPath)
	if err != nil {
		log.Printf("failed to read predicates: %v", err)
		return 1
	}
	glove, err := embed.LoadGlove(*glovePath, embed.GloveDim)
	if err != nil {
		log.Printf("failed to load glove: %v", err)
		return 1
	}
	embedder, err := embed.NewDecisionEmbedder(embed.OneHotKind, embed.NewDictionary(predicates), nil, cfg.MaxStackSize)
	if err != nil {
		log.Printf("failed to build decision embedder: %v", err)
		return 1
	}

	client, err := codec.NewModelClient(cfg.ModelAddr)
	if err != nil {
		log.Printf("failed to connect to model service at %s: %v", cfg.ModelAddr, err)
		return 1
	}
	defer client.Close()

	trainer, err := decomposable.NewTrainer(decomposable.Config{
		BatchSize:  cfg.Decomposable.BatchSize,
		Iterations: cfg.Decomposable.Iterations,
		UtterLen:   cfg.UtterLen,
		Seed:       *seed,
	}, client, glove, embedder, store)
	if err != nil {
		log.Printf("failed to build trainer: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Decomposable trainer ready.\n  DB: %s | Model: %s | Run: %s\n", cfg.DBPath, cfg.ModelAddr, store.RunID())
	if err := trainer.TrainFromCSV(ctx, *csvPath); err != nil {
		log.Printf("[DECOMP] stopped after %d steps: %v", trainer.Steps(), err)
		return 1
	}
	fmt.Printf("Done: %d classifier updates.\n", trainer.Steps())
	return 0
}

// #endregion main

// #region helpers
func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg := config.Default()
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

func readPredicates(path string) ([]parse.Predicate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []parse.Predicate
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		out = append(out, parse.Predicate{Name: name})
	}
	return out, scanner.Err()
}

func runExport(store *trainlog.Store, path string) int {
	rows, err := store.ListRows()
	if err != nil {
		fmt.Fprintf(os.Stderr, "list rows: %v\n", err)
		return 1
	}
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create %s: %v\n", path, err)
		return 1
	}
	defer f.Close()
	if err := decomposable.WriteCSV(f, rows); err != nil {
		fmt.Fprintf(os.Stderr, "write csv: %v\n", err)
		return 1
	}
	fmt.Printf("Exported %d rows to %s\n", len(rows), path)
	return 0
}

// #endregion helpers
