package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"wt-go/internal/app"
	"wt-go/internal/config"
	"wt-go/internal/encryption"
	"wt-go/internal/wt"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	// A .env next to the binary is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when it does not
// exist, and applies WT_* environment overrides.
func loadConfig() (*config.Config, app.Defaults, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, defaults, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.Load(defaults.ConfigPath, defaults.BaseDir)
	if err != nil {
		return nil, defaults, fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults, nil
}

// newApp reads the config and creates a WTApp. The caller must defer app.Close().
// unlock controls whether the private key is unlocked for reading entries.
func newApp(ctx context.Context, cmd *cobra.Command, unlock bool) (*app.WTApp, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	opts := app.Options{RunID: uuid.New().String(), LogLevel: slog.LevelInfo}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		opts.LogLevel = slog.LevelDebug
	}
	if unlock {
		opts.Passphrase = app.PassphrasePrompt("Passphrase: ")
	}

	a, err := app.NewWTApp(ctx, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "wt",
	Short:        "Personal body composition tracker",
	SilenceUsage: true,
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the input, dashboard and data management screens",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cmd, true)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.CheckStore(ctx); err != nil {
			a.Logger().Warn("object store check failed", "error", err)
		}
		return a.Serve(ctx)
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults.BaseDir)
		if bucket, _ := cmd.Flags().GetString("bucket"); bucket != "" {
			cfg.Store.S3Bucket = bucket
		}

		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		if cfg.Store.S3Bucket == "" {
			fmt.Println("No bucket set: edit s3_bucket or export WT_S3_BUCKET before saving entries.")
		}
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, defaults, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Store:       %s\n", cfg.Store.Type)
		if cfg.Store.Type == "s3" {
			fmt.Printf("Bucket:      %s\n", orUnset(cfg.Store.S3Bucket))
		}
		fmt.Printf("Prefix:      %s\n", cfg.Store.Prefix)
		fmt.Printf("Encryption:  %s\n", orUnset(cfg.Encryption.Type))
		fmt.Printf("Events:      %s\n", orUnset(cfg.Events.Type))
		fmt.Printf("Listen Addr: %s\n", cfg.Server.ListenAddr)
		fmt.Printf("Time Zone:   %s\n", cfg.Server.TimeZone)
		return nil
	},
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

var configStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the object store",
}

var configStoreCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the object store is configured and reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.CheckStore(cmd.Context()); err != nil {
			return fmt.Errorf("store check failed: %w", err)
		}
		fmt.Println("Object store OK")
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var configKeysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the age key pair used to encrypt entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		passphrase, err := newPassphrase()
		if err != nil {
			return err
		}

		enc := encryption.NewAgeEncryptor(cfg.Encryption)
		if err := enc.Setup(passphrase); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}

		fmt.Printf("Public key:  %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s\n", cfg.Encryption.PrivateKeyPath)
		if cfg.Encryption.Type != "age" {
			fmt.Println(`Set type = "age" under [encryption] to start encrypting entries.`)
		}
		return nil
	},
}

// newPassphrase reads a new passphrase, asking twice on a terminal.
func newPassphrase() (string, error) {
	if p := os.Getenv("WT_PASSPHRASE"); p != "" {
		return p, nil
	}

	first, err := app.ReadPassphrase("New passphrase: ")
	if err != nil {
		return "", err
	}
	second, err := app.ReadPassphrase("Repeat passphrase: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passphrases do not match")
	}
	return first, nil
}

// entry command
var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Manage measurement entries",
}

var entryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a measurement taken now",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		form := wt.MeasurementForm{}
		form.Weight, _ = flags.GetString("weight")
		form.BMI, _ = flags.GetString("bmi")
		form.BodyFat, _ = flags.GetString("body-fat")
		form.MuscleMass, _ = flags.GetString("muscle-mass")
		form.VisceralFat, _ = flags.GetString("visceral-fat")

		a, err := newApp(cmd.Context(), cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.AddEntry(cmd.Context(), form)
		if err != nil {
			return fmt.Errorf("saving entry: %w", err)
		}

		fmt.Printf("Saved entry %d at %s\n", entry.ID, entry.Timestamp)
		return nil
	},
}

var entryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cmd, true)
		if err != nil {
			return err
		}
		defer a.Close()

		rows, err := a.ListEntries(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing entries: %w", err)
		}

		if len(rows) == 0 {
			fmt.Println("No entries.")
			return nil
		}

		for _, r := range rows {
			fmt.Printf("%-20d  %-17s  %-10s  %-5s  %-7s  %-8s  %s\n",
				r.ID, r.Date, r.Weight, r.BMI, r.BodyFat, r.MuscleMass, r.VisceralFat)
		}
		return nil
	},
}

var entryDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", args[0], err)
		}

		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			confirmed, err := confirm(fmt.Sprintf("Delete entry %d? [y/N] ", id))
			if err != nil {
				return err
			}
			if !confirmed {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		a, err := newApp(cmd.Context(), cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteEntry(cmd.Context(), id); err != nil {
			return fmt.Errorf("deleting entry: %w", err)
		}
		fmt.Printf("Deleted entry %d\n", id)
		return nil
	},
}

// confirm asks a yes/no question on the terminal. Without a terminal it
// refuses, so scripts must pass --yes.
func confirm(question string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, errors.New("not a terminal: pass --yes to delete without confirmation")
	}

	fmt.Fprint(os.Stderr, question)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug messages")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().String("bucket", "", "S3 bucket holding the entries")
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configStoreCmd)
	configStoreCmd.AddCommand(configStoreCheckCmd)
	configCmd.AddCommand(configKeysCmd)
	configKeysCmd.AddCommand(configKeysInitCmd)

	// entry subcommands
	entryCmd.AddCommand(entryAddCmd)
	entryAddCmd.Flags().String("weight", "", "Weight in kg (required)")
	entryAddCmd.Flags().String("bmi", "", "Body mass index")
	entryAddCmd.Flags().String("body-fat", "", "Body fat percentage")
	entryAddCmd.Flags().String("muscle-mass", "", "Muscle mass in kg")
	entryAddCmd.Flags().String("visceral-fat", "", "Visceral fat level")
	entryCmd.AddCommand(entryListCmd)
	entryCmd.AddCommand(entryDeleteCmd)
	entryDeleteCmd.Flags().BoolP("yes", "y", false, "Delete without asking")

	// root commands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(entryCmd)
}
