package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/lana-info/llm-council/internal/config"
	"github.com/lana-info/llm-council/internal/domain/council"
	"github.com/lana-info/llm-council/internal/domain/skill"
	"github.com/lana-info/llm-council/internal/logger"
	"github.com/lana-info/llm-council/internal/resilience"
	"github.com/lana-info/llm-council/internal/secrets"
	"github.com/lana-info/llm-council/internal/service"
)

// runConsult runs one deliberation (or verification) from the command
// line and prints the outcome. It builds a standalone service with no
// cache, history, or event publishing.
func runConsult(args []string, verifyMode bool) error {
	name := "consult"
	if verifyMode {
		name = "verify"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	query := fs.String("q", "", "query to deliberate on (required)")
	tierName := fs.String("tier", "", "deliberation tier (quick, balanced, high, reasoning)")
	threshold := fs.Float64("threshold", 0, "confidence threshold for a pass verdict")
	configPath := fs.String("config", "", "path to YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *query == "" {
		return fmt.Errorf("-q is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	// CLI runs log to stderr-style noise only on warnings and above.
	if cfg.Logging.Level == "" || cfg.Logging.Level == "info" {
		cfg.Logging.Level = "warn"
	}
	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	ctx := context.Background()

	vault, err := secrets.NewVault(secrets.ProviderLoader())
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}
	registry, err := buildRegistry(ctx, cfg, vault)
	if err != nil {
		return err
	}
	svc := service.NewCouncilService(cfg.Council, 0, service.CouncilDeps{
		Routers: registry,
		Breakers: resilience.NewGroup(
			cfg.Breaker.FailureThreshold,
			cfg.Breaker.SuccessThreshold,
			cfg.Breaker.Timeout,
		),
	})

	tn := *tierName
	if tn == "" {
		tn = cfg.Council.DefaultTier
	}

	if verifyMode {
		v, res, err := svc.Verify(ctx, *query, tn, *threshold)
		if err != nil {
			return err
		}
		fmt.Printf("Verdict:    %s\n", v.Verdict)
		fmt.Printf("Confidence: %.2f\n", v.Confidence)
		if v.Rationale != "" {
			fmt.Printf("Rationale:  %s\n", v.Rationale)
		}
		for _, issue := range v.BlockingIssues {
			fmt.Printf("  [%s] %s\n", issue.Severity, issue.Description)
		}
		printFailures(res)
		return nil
	}

	res, err := svc.Deliberate(ctx, *query, tn)
	if err != nil {
		return err
	}
	fmt.Println(res.Stage3.Content)
	if len(res.Metadata.AggregateRankings) > 0 {
		fmt.Fprintln(os.Stderr, "\nCouncil ranking:")
		for i, r := range res.Metadata.AggregateRankings {
			fmt.Fprintf(os.Stderr, "  %d. %s (%d points)\n", i+1, r.Model, r.BordaScore)
		}
	}
	printFailures(res)
	return nil
}

func printFailures(res *council.Result) {
	for _, f := range res.Metadata.FailedModels {
		fmt.Fprintf(os.Stderr, "note: %s failed during %s: %s\n", f.Model, f.Stage, f.Reason)
	}
}

// runSkills inspects the skill library.
func runSkills(args []string) error {
	if len(args) == 0 || args[0] == "help" {
		fmt.Fprintf(os.Stderr, `Usage: council skills <command>

Commands:
  list          List available skills
  show <name>   Print a skill's full instructions
`)
		return nil
	}

	cfg, err := loadConfig("")
	if err != nil {
		return err
	}
	loader := skill.NewLoader(cfg.Skills.Dir)

	switch args[0] {
	case "list":
		names, err := loader.List()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No skills found in", cfg.Skills.Dir)
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "NAME\tCATEGORY\tDESCRIPTION")
		for _, name := range names {
			meta, err := loader.LoadMetadata(name)
			if err != nil {
				_, _ = fmt.Fprintf(w, "%s\t\t(unparseable: %v)\n", name, err)
				continue
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", meta.Name, meta.Category, meta.Description)
		}
		return w.Flush()
	case "show":
		if len(args) < 2 {
			return fmt.Errorf("usage: council skills show <name>")
		}
		sk, err := loader.LoadFull(args[1])
		if err != nil {
			return err
		}
		fmt.Println(sk.Body)
		return nil
	default:
		return fmt.Errorf("unknown skills command: %s", args[0])
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}
