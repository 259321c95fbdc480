package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/strongsup/go-decoder/internal/trainlog"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to decoder.db")
	last := flag.Int("last", 20, "show N most recent steps")
	metric := flag.String("metric", "", "show metric points instead of steps (\"all\" for every metric)")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/decoder.db [--last N] [--metric name|all] [--json]")
		os.Exit(2)
	}

	store, err := trainlog.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *metric != "" {
		name := *metric
		if name == "all" {
			name = ""
		}
		if err := runMetricMode(store, name, *last, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	} else {
		if err := runStepMode(store, *last, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
}

// #endregion main

// #region step-mode

type stepRow struct {
	StepID     string  `json:"step_id"`
	RunID      string  `json:"run_id"`
	Step       int     `json:"step"`
	ModelStep  int     `json:"model_step"`
	Examples   int     `json:"examples"`
	Paths      int     `json:"paths"`
	Cases      int     `json:"cases"`
	Reinforced int     `json:"reinforced"`
	Accuracy   float64 `json:"accuracy"`
	CreatedAt  string  `json:"created_at"`
}

func runStepMode(store *trainlog.Store, last int, jsonOut bool) error {
	steps, err := store.ListSteps(last)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		fmt.Fprintln(os.Stderr, "no steps found")
		return nil
	}

	// Store returns DESC, reverse for chronological
	rows := make([]stepRow, len(steps))
	for i, s := range steps {
		rows[len(steps)-1-i] = stepRow{
			StepID:     s.StepID,
			RunID:      s.RunID,
			Step:       s.Step,
			ModelStep:  s.ModelStep,
			Examples:   s.Examples,
			Paths:      s.Paths,
			Cases:      s.Cases,
			Reinforced: s.Reinforced,
			Accuracy:   ratio(s.Correct, s.All),
			CreatedAt:  s.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-8s  %-8s  %6s  %6s  %8s  %6s  %6s  %10s  %8s  %s\n",
		"Step ID", "Run", "Step", "Model", "Examples", "Paths", "Cases", "Reinforced", "Accuracy", "Time")
	fmt.Printf("%-8s+-%-8s+-%6s+-%6s+-%8s+-%6s+-%6s+-%10s+-%8s+-%s\n",
		"--------", "--------", "------", "------", "--------", "------", "------", "----------", "--------", "--------------------")
	for _, r := range rows {
		fmt.Printf("%-8s  %-8s  %6d  %6d  %8d  %6d  %6d  %10d  %8.4f  %s\n",
			shortID(r.StepID), shortID(r.RunID), r.Step, r.ModelStep, r.Examples, r.Paths,
			r.Cases, r.Reinforced, r.Accuracy, r.CreatedAt)
	}

	latest := steps[0]
	fmt.Printf("\nCumulative (latest): %d / %d correct\n", latest.Correct, latest.All)
	return nil
}

// #endregion step-mode

// #region metric-mode

func runMetricMode(store *trainlog.Store, name string, last int, jsonOut bool) error {
	points, err := store.ListMetrics(name, last)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		fmt.Fprintln(os.Stderr, "no metrics found")
		return nil
	}
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}

	if jsonOut {
		return printJSON(points)
	}

	fmt.Printf("%-24s  %6s  %10s  %-8s  %s\n", "Metric", "Step", "Value", "Run", "Time")
	fmt.Printf("%-24s+-%6s+-%10s+-%-8s+-%s\n",
		"------------------------", "------", "----------", "--------", "--------------------")
	for _, p := range points {
		fmt.Printf("%-24s  %6d  %10.4f  %-8s  %s\n",
			p.Name, p.Step, p.Value, shortID(p.RunID), p.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}

// #endregion metric-mode

// #region output

func ratio(correct, all int) float64 {
	if all == 0 {
		return 0
	}
	return float64(correct) / float64(all)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
