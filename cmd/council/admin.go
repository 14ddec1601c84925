package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/lana-info/llm-council/internal/config"
)

// runAdmin dispatches admin subcommands.
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "apikey":
		return runAdminAPIKey(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: council admin <command> [options]

Commands:
  apikey generate   Generate an API key and print its bcrypt hash
  apikey hash       Hash an existing key (prompted, not echoed)
  apikey list       Show the configured key hashes
  help              Show this help message

The printed hash goes into auth.key_hashes in council.yaml (or the
LLM_COUNCIL_API_KEY_HASHES environment variable). The plaintext key is
shown once and never stored.
`)
}

func runAdminAPIKey(args []string) error {
	if len(args) == 0 {
		printAdminHelp()
		return fmt.Errorf("apikey needs a subcommand")
	}

	switch args[0] {
	case "generate":
		return runAPIKeyGenerate(args[1:])
	case "hash":
		return runAPIKeyHash(args[1:])
	case "list":
		return runAPIKeyList(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown apikey command: %s", args[0])
	}
}

func runAPIKeyGenerate(args []string) error {
	fs := flag.NewFlagSet("apikey generate", flag.ContinueOnError)
	cost := fs.Int("cost", bcrypt.DefaultCost, "bcrypt cost factor")
	if err := fs.Parse(args); err != nil {
		return err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	key := "lc_" + base64.RawURLEncoding.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(key), *cost)
	if err != nil {
		return fmt.Errorf("hash key: %w", err)
	}

	fmt.Fprintln(os.Stderr, "API key (store it now, it will not be shown again):")
	fmt.Println(key)
	fmt.Fprintln(os.Stderr, "\nbcrypt hash for auth.key_hashes:")
	fmt.Println(string(hash))
	return nil
}

func runAPIKeyHash(args []string) error {
	fs := flag.NewFlagSet("apikey hash", flag.ContinueOnError)
	cost := fs.Int("cost", bcrypt.DefaultCost, "bcrypt cost factor")
	if err := fs.Parse(args); err != nil {
		return err
	}

	key, err := promptSecret("API key: ")
	if err != nil {
		return fmt.Errorf("read key: %w", err)
	}
	if key == "" {
		return fmt.Errorf("key must not be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(key), *cost)
	if err != nil {
		return fmt.Errorf("hash key: %w", err)
	}
	fmt.Println(string(hash))
	return nil
}

func runAPIKeyList(args []string) error {
	fs := flag.NewFlagSet("apikey list", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if len(cfg.Auth.KeyHashes) == 0 {
		fmt.Println("No API key hashes configured.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tHASH")
	for i, hash := range cfg.Auth.KeyHashes {
		_, _ = fmt.Fprintf(w, "%d\t%s\n", i+1, hash)
	}
	return w.Flush()
}

// promptSecret reads a line from the terminal without echoing.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
