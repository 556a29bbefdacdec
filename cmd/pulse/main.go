package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/solcial/pulse/internal/analytics"
	"github.com/solcial/pulse/internal/api"
	"github.com/solcial/pulse/internal/config"
	"github.com/solcial/pulse/internal/prefs"
	"github.com/solcial/pulse/internal/server"
)

var (
	// Version is set at build time
	Version = "dev"

	// Global flags
	configPath string
	cfg        *config.Config
	store      *prefs.Store
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	rootCmd := &cobra.Command{
		Use:   "pulse",
		Short: "Pulse - Solana social analytics gateway",
		Long: `Pulse fronts the Solcial analytics provider and export service. It owns
the client-side analytics view-state: a bounded TTL cache over fetched
results, date-range presets, comparison periods, export jobs, and durable
dashboard preferences.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
				zerolog.SetGlobalLevel(level)
			}

			// Auto-generate config file if it doesn't exist
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				log.Info().Str("path", configPath).Msg("config file not found, creating default")
				if err := cfg.Save(configPath); err != nil {
					log.Warn().Err(err).Msg("failed to save default config")
				}
			}

			store, err = prefs.Open(cfg.PrefsPath)
			if err != nil {
				return fmt.Errorf("failed to open preference store: %w", err)
			}

			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if store != nil {
				return store.Close()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/appdata/config/pulse.yaml", "Path to configuration file")

	// Serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the analytics dashboard API server",
		RunE:  runServe,
	}

	// Fetch command
	fetchCmd := &cobra.Command{
		Use:   "fetch <subject>",
		Short: "Fetch analytics for a subject wallet",
		Args:  cobra.ExactArgs(1),
		RunE:  runFetch,
	}
	fetchCmd.Flags().StringP("preset", "p", "", "Date range preset (today, week, month, quarter, year, all)")
	fetchCmd.Flags().Bool("comparison", false, "Also fetch the preceding comparison period")
	fetchCmd.Flags().StringP("granularity", "g", "", "Series granularity (hour, day, week)")

	// Export command
	exportCmd := &cobra.Command{
		Use:   "export <subject>",
		Short: "Export analytics for a subject wallet",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	exportCmd.Flags().StringP("preset", "p", "", "Date range preset (today, week, month, quarter, year, all)")
	exportCmd.Flags().StringP("format", "f", "csv", "Export format (json, csv)")

	// Prefs command
	prefsCmd := &cobra.Command{
		Use:   "prefs",
		Short: "Preference management",
	}

	prefsShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Show persisted preferences",
		RunE:  runPrefsShow,
	}

	prefsResetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset persisted preferences",
		RunE:  runPrefsReset,
	}

	prefsCmd.AddCommand(prefsShowCmd, prefsResetCmd)

	// Config command
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configValidateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE:  runConfigValidate,
	}

	configShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE:  runConfigShow,
	}

	configCmd.AddCommand(configValidateCmd, configShowCmd)

	rootCmd.AddCommand(serveCmd, fetchCmd, exportCmd, prefsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildCoordinator wires the collaborator clients and persisted preferences
// into a coordinator
func buildCoordinator(comparisonOverride *bool) (*analytics.Coordinator, api.Provider, api.Exporter, error) {
	provider := api.NewProviderClient(cfg.Services.Provider.URL, cfg.Services.Provider.APIKey, cfg.APITimeout)
	exporter := api.NewExportClient(cfg.Services.Exporter.URL, cfg.Services.Exporter.APIKey, cfg.APITimeout)

	filters, err := store.LoadFilters()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load filter preferences: %w", err)
	}

	comparison, err := store.LoadComparisonEnabled()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load comparison preference: %w", err)
	}
	if comparisonOverride != nil {
		comparison = *comparisonOverride
	}

	coordinator := analytics.NewCoordinator(provider, exporter, analytics.Options{
		CacheTTL:          cfg.CacheTTL,
		CacheMaxEntries:   cfg.CacheMaxEntries,
		InitialFilters:    filters,
		ComparisonEnabled: comparison,
		Prefs:             store,
		Logger:            log.Logger,
	})

	return coordinator, provider, exporter, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	coordinator, provider, exporter, err := buildCoordinator(nil)
	if err != nil {
		return err
	}

	log.Info().Int("port", cfg.ListenPort).Str("version", Version).Msg("starting pulse")
	srv := server.NewServer(coordinator, provider, exporter, store, cfg, Version, log.Logger)
	return srv.Run()
}

// presetOverrides builds filter overrides from the --preset/--granularity flags
func presetOverrides(cmd *cobra.Command) (*analytics.FilterOverrides, error) {
	overrides := &analytics.FilterOverrides{}
	touched := false

	if preset, _ := cmd.Flags().GetString("preset"); preset != "" {
		p := analytics.Preset(preset)
		if !p.Valid() {
			return nil, fmt.Errorf("unknown preset %q", preset)
		}
		overrides.Preset = &p
		touched = true
	}

	if cmd.Flags().Lookup("granularity") != nil {
		if granularity, _ := cmd.Flags().GetString("granularity"); granularity != "" {
			overrides.Granularity = &granularity
			touched = true
		}
	}

	if !touched {
		return nil, nil
	}
	return overrides, nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	comparison, _ := cmd.Flags().GetBool("comparison")

	coordinator, _, _, err := buildCoordinator(&comparison)
	if err != nil {
		return err
	}

	overrides, err := presetOverrides(cmd)
	if err != nil {
		return err
	}

	if err := coordinator.FetchAnalytics(context.Background(), args[0], overrides); err != nil {
		return err
	}

	snap := coordinator.Snapshot()
	printResult("Analytics", snap.Result)
	if snap.Comparison != nil {
		printResult("Comparison period", snap.Comparison)
	}

	return nil
}

func printResult(label string, result *api.AnalyticsResult) {
	fmt.Printf("\n=== %s: %s ===\n\n", label, result.SubjectID)
	fmt.Printf("Window:          %s .. %s\n",
		time.UnixMilli(result.StartMs).Format(time.RFC3339),
		time.UnixMilli(result.EndMs).Format(time.RFC3339))
	fmt.Printf("Impressions:     %d\n", result.Totals.Impressions)
	fmt.Printf("Engagements:     %d\n", result.Totals.Engagements)
	fmt.Printf("Profile visits:  %d\n", result.Totals.ProfileVisits)
	fmt.Printf("New followers:   %d\n", result.Totals.NewFollowers)
	fmt.Printf("Posts created:   %d\n", result.Totals.PostsCreated)
	fmt.Printf("Tips:            %d (%d lamports)\n", result.Totals.TipCount, result.Totals.TipLamports)
	fmt.Printf("Series buckets:  %d\n", len(result.Series))
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	coordinator, _, _, err := buildCoordinator(nil)
	if err != nil {
		return err
	}

	overrides, err := presetOverrides(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := coordinator.FetchAnalytics(ctx, args[0], overrides); err != nil {
		return fmt.Errorf("fetch before export failed: %w", err)
	}

	artifact, err := coordinator.Export(ctx, api.ExportOptions{Format: format})
	if err != nil {
		return err
	}

	fmt.Printf("Exported %s (%d bytes)\n", artifact.Filename, artifact.Size)
	fmt.Printf("Download: %s\n", artifact.URL)
	if !artifact.ExpiresAt.IsZero() {
		fmt.Printf("Expires:  %s\n", artifact.ExpiresAt.Format(time.RFC3339))
	}

	return nil
}

func runPrefsShow(cmd *cobra.Command, args []string) error {
	filters, err := store.LoadFilters()
	if err != nil {
		return err
	}
	comparison, err := store.LoadComparisonEnabled()
	if err != nil {
		return err
	}
	tab, err := store.SelectedTab()
	if err != nil {
		return err
	}

	out := map[string]any{
		"filters":           filters,
		"comparisonEnabled": comparison,
		"selectedTab":       tab,
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(data))
	return nil
}

func runPrefsReset(cmd *cobra.Command, args []string) error {
	if err := store.Reset(); err != nil {
		return err
	}
	fmt.Println("Preferences reset")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Configuration is INVALID: %v\n", err)
		return err
	}

	fmt.Println("Configuration is valid")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Println(string(data))
	return nil
}
