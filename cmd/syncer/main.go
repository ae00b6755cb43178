package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/ledgersync/internal/config"
	"github.com/cuemby/ledgersync/internal/graphstore"
	"github.com/cuemby/ledgersync/internal/ledgerapi"
	"github.com/cuemby/ledgersync/internal/offset"
	"github.com/cuemby/ledgersync/internal/progress"
	"github.com/cuemby/ledgersync/internal/supervisor"
	"github.com/cuemby/ledgersync/internal/token"
	"github.com/cuemby/ledgersync/internal/tokencache"
	"github.com/cuemby/ledgersync/pkg/events"
	"github.com/cuemby/ledgersync/pkg/health"
	"github.com/cuemby/ledgersync/pkg/log"
	"github.com/cuemby/ledgersync/pkg/metrics"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "syncer",
	Short:   "syncer mirrors a ledger's transaction stream into a graph database",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("syncer version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(syncCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the synchronizer against a configured ledger profile",
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().String("config", "./syncer.yaml", "Path to the configuration file")
	syncCmd.Flags().String("profile", "", "Profile to run, overriding the config's active_profile")
	syncCmd.Flags().String("static-token", "", "Use a fixed bearer token instead of the profile's identity provider")
	syncCmd.Flags().Bool("development-token", false, "Mint an unsigned development token for the profile's synthetic_user, bypassing the identity provider")
	syncCmd.Flags().Bool("fresh", false, "Clear the graph and start from the current ledger end, ignoring any existing graph state")
	syncCmd.Flags().String("http-addr", "127.0.0.1:9464", "Address for the health and metrics HTTP server")
	syncCmd.Flags().String("token-cache", "", "Path to a bbolt file used to cache tokens across restarts (disabled by default)")
}

func runSync(cmd *cobra.Command, args []string) error {
	logger := log.WithComponent("main")

	configPath, _ := cmd.Flags().GetString("config")
	profileOverride, _ := cmd.Flags().GetString("profile")
	staticToken, _ := cmd.Flags().GetString("static-token")
	developmentToken, _ := cmd.Flags().GetBool("development-token")
	fresh, _ := cmd.Flags().GetBool("fresh")
	httpAddr, _ := cmd.Flags().GetString("http-addr")
	tokenCachePath, _ := cmd.Flags().GetString("token-cache")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	profileName := profileOverride
	if profileName == "" {
		profileName = cfg.ActiveProfile
	}
	profile, err := cfg.SelectedProfile(profileOverride)
	if err != nil {
		return fmt.Errorf("select profile: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	source, err := buildTokenSource(profile, staticToken, developmentToken, profileName, tokenCachePath)
	if err != nil {
		return err
	}
	provider := token.New(source, 0)

	store, err := graphstore.NewNeo4jStore(ctx, cfg.GraphStore.URI, cfg.GraphStore.User, cfg.GraphStore.Password, "")
	if err != nil {
		return fmt.Errorf("connect graph store: %w", err)
	}
	defer store.Close(ctx)

	client, err := ledgerapi.NewClient(profile.LedgerURL, nil)
	if err != nil {
		return fmt.Errorf("connect ledger: %w", err)
	}
	defer client.Close()

	oracle := &offset.Oracle{
		Graph:          store,
		Ledger:         client,
		StartingOffset: profile.StartingOffset,
	}

	status := health.NewStatus()
	recorder := events.NewRecorder()

	mux := http.NewServeMux()
	health.NewHandler(status, recorder).Register(mux)
	mux.Handle("/metrics", metrics.Handler())
	httpServer := &http.Server{Addr: httpAddr, Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("health/metrics server failed")
		}
	}()
	defer httpServer.Shutdown(context.Background())

	sup := supervisor.New(client, store, provider, oracle, supervisor.Config{
		Parties:     profile.Parties,
		Fresh:       fresh,
		IdleTimeout: time.Duration(cfg.GraphStore.IdleTimeoutSecs) * time.Second,
		Writer: graphstore.WriterConfig{
			BatchSize:  cfg.GraphStore.BatchSize,
			FlushEvery: time.Duration(cfg.GraphStore.FlushTimeoutSecs) * time.Second,
		},
	}, status, recorder)

	reporter := &progress.Reporter{Graph: store, Ledger: client, Token: provider}
	go reporter.Run(ctx)

	logger.Info().Str("profile", profileName).Str("ledger_url", profile.LedgerURL).Bool("fresh", fresh).Msg("starting syncer")
	return sup.Run(ctx)
}

func buildTokenSource(profile config.Profile, staticToken string, developmentToken bool, profileName, tokenCachePath string) (token.Source, error) {
	if staticToken != "" {
		return token.StaticSource{Token: staticToken}, nil
	}
	if developmentToken {
		return token.DevelopmentSource{UserID: profile.SyntheticUser, Audience: profile.LedgerURL, Issuer: "syncer"}, nil
	}
	if profile.IdentityProvider == nil {
		return nil, fmt.Errorf("profile %q has no identity_provider and no --static-token/--development-token given", profileName)
	}

	source := token.IdentityProviderSource{
		TokenEndpoint: profile.IdentityProvider.TokenEndpoint,
		ClientID:      profile.IdentityProvider.ClientID,
		ClientSecret:  profile.IdentityProvider.ClientSecret,
		Username:      profile.IdentityProvider.Username,
		Password:      profile.IdentityProvider.Password,
		UsePassword:   profile.IdentityProvider.GrantType == config.GrantPassword,
	}

	if tokenCachePath == "" {
		return source, nil
	}
	cache, err := tokencache.Open(tokenCachePath)
	if err != nil {
		return nil, fmt.Errorf("open token cache: %w", err)
	}
	return cachedSource{inner: source, cache: cache, profile: profileName}, nil
}

// cachedSource wraps a token.Source with the optional on-disk development
// cache, serving a still-fresh cached entry before falling through to the
// wrapped source.
type cachedSource struct {
	inner   token.Source
	cache   *tokencache.Cache
	profile string
}

func (c cachedSource) Fetch(ctx context.Context) (string, time.Duration, error) {
	if entry, found, err := c.cache.Get(c.profile); err == nil && found && entry.Fresh(0.8) {
		return entry.Token, entry.ExpiresIn, nil
	}

	tok, expiresIn, err := c.inner.Fetch(ctx)
	if err != nil {
		return "", 0, err
	}
	_ = c.cache.Put(c.profile, tokencache.Entry{Token: tok, ObtainedAt: time.Now(), ExpiresIn: expiresIn})
	return tok, expiresIn, nil
}
