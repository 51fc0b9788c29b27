// reportctl inspects the load_reports table written by progressd.
//
// Usage:
//
//	go run ./cmd/reportctl <command> [-config path] [-limit n] [-out file]
//
// Commands: migrate, dump
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/l1jgo/progress/internal/config"
	"github.com/l1jgo/progress/internal/persist"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type reportYAML struct {
	State        string    `yaml:"state"`
	Target       string    `yaml:"target"`
	VisibleDone  uint32    `yaml:"visible_done"`
	VisibleTotal uint32    `yaml:"visible_total"`
	HiddenDone   uint32    `yaml:"hidden_done"`
	HiddenTotal  uint32    `yaml:"hidden_total"`
	Entries      int       `yaml:"entries"`
	Dropped      uint64    `yaml:"dropped"`
	DurationMs   int64     `yaml:"duration_ms"`
	CompletedAt  time.Time `yaml:"completed_at"`
}

type reportListYAML struct {
	Reports []reportYAML `yaml:"reports"`
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: reportctl <migrate|dump> [-config path] [-limit n] [-out file]")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		printUsage()
		return
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	cfgPath := fs.String("config", "config/progressd.toml", "progressd config file")
	limit := fs.Int("limit", 50, "number of reports to dump")
	out := fs.String("out", "", "YAML output file (default stdout)")
	_ = fs.Parse(os.Args[2:])

	commands := map[string]func(context.Context, *persist.DB) error{
		"migrate": func(ctx context.Context, db *persist.DB) error {
			v, err := persist.Migrate(ctx, db.Pool, zap.NewNop())
			if err != nil {
				return err
			}
			fmt.Printf("schema at version %d\n", v)
			return nil
		},
		"dump": func(ctx context.Context, db *persist.DB) error {
			return dump(ctx, persist.NewReportRepo(db), *limit, *out)
		},
	}
	fn, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err := run(*cfgPath, fn); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string, fn func(context.Context, *persist.DB) error) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, zap.NewNop())
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, db)
}

func dump(ctx context.Context, repo *persist.ReportRepo, limit int, outPath string) error {
	reps, err := repo.Recent(ctx, limit)
	if err != nil {
		return err
	}
	var w io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		defer f.Close()
		w = f
	}
	return writeReports(w, reps)
}

func writeReports(w io.Writer, reps []persist.LoadReport) error {
	list := reportListYAML{Reports: make([]reportYAML, 0, len(reps))}
	for _, r := range reps {
		list.Reports = append(list.Reports, reportYAML{
			State:        r.State,
			Target:       r.Target,
			VisibleDone:  r.VisibleDone,
			VisibleTotal: r.VisibleTotal,
			HiddenDone:   r.HiddenDone,
			HiddenTotal:  r.HiddenTotal,
			Entries:      r.Entries,
			Dropped:      r.Dropped,
			DurationMs:   r.Duration.Milliseconds(),
			CompletedAt:  r.CompletedAt,
		})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(list); err != nil {
		return fmt.Errorf("encode reports: %w", err)
	}
	return enc.Close()
}
