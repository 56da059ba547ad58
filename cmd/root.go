package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/referral/auth"
	"github.com/s0up4200/referral/config"
	"github.com/s0up4200/referral/filter"
	"github.com/s0up4200/referral/force"
	"github.com/s0up4200/referral/referral"
)

var (
	cfgFile      string
	outputFormat string

	cfg           *config.Config
	logger        zerolog.Logger
	authenticator *auth.Authenticator
	tokenStore    auth.Store
	forceClient   *force.Client
	filters       *filter.Manager
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "referral",
	Short: "Enroll members and record referral events against a loyalty referral program",
	Long: `referral is a CLI for a loyalty program's referral API. It enrolls members
in promotions, records Refer, Enrollment and Purchase events, and submits
batches of events from a file with optional filtering.`,
	SilenceUsage:       true,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: shutdownApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "output format (json, yaml or text)")
}

// initializeApp loads configuration and builds the API client
func initializeApp(cmd *cobra.Command, args []string) error {
	switch outputFormat {
	case "json", "yaml", "text":
	default:
		return fmt.Errorf("invalid output format: %s (must be 'json', 'yaml' or 'text')", outputFormat)
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging)

	var provider force.TokenProvider
	if cfg.Auth.AccessToken != "" {
		logger.Debug().Msg("Using static access token from configuration")
		provider = force.StaticToken(cfg.Auth.AccessToken)
	} else {
		store, err := auth.OpenBoltStore(cfg.Auth.TokenStore)
		if err != nil {
			return err
		}
		tokenStore = store
		authenticator, err = auth.New(auth.Config{
			LoginURL:     cfg.Auth.LoginURL,
			ClientID:     cfg.Auth.ClientID,
			ClientSecret: cfg.Auth.ClientSecret,
			Username:     cfg.Auth.Username,
			Password:     cfg.Auth.Password,
			RedirectURL:  cfg.Auth.RedirectURL,
			Scopes:       cfg.Auth.Scopes,
		},
			auth.WithStore(tokenStore),
			auth.WithLogger(logger.With().Str("component", "auth").Logger()),
		)
		if err != nil {
			store.Close()
			return fmt.Errorf("failed to create authenticator: %w", err)
		}
		provider = authenticator
	}

	forceClient, err = force.NewClient(provider, force.NewRestyTransport(cfg.HTTP.Timeout),
		force.WithLogger(logger.With().Str("component", "force").Logger()),
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	filters = filter.NewManager()
	if err := filters.RegisterFilters(cfg.Filter); err != nil {
		return fmt.Errorf("invalid filter in config: %w", err)
	}

	return nil
}

// shutdownApp releases resources opened by initializeApp
func shutdownApp(cmd *cobra.Command, args []string) error {
	if tokenStore != nil {
		return tokenStore.Close()
	}
	return nil
}

// skipInit replaces initializeApp for commands that need no configuration
func skipInit(cmd *cobra.Command, args []string) error {
	return nil
}

// newManager builds a referral manager. The instance URL comes from the
// configuration, or from the last token response when not configured.
func newManager() (*referral.Manager, error) {
	instanceURL := cfg.Instance.URL
	if instanceURL == "" && authenticator != nil {
		instanceURL = authenticator.InstanceURL()
	}
	if instanceURL == "" {
		return nil, fmt.Errorf("instance.url is not configured; set it or run 'referral auth login' first")
	}

	return referral.NewManager(forceClient, instanceURL, cfg.Instance.Program,
		referral.WithVersion(cfg.Instance.APIVersion),
		referral.WithLogger(logger.With().Str("component", "referral").Logger()),
	)
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isatty.IsTerminal(os.Stderr.Fd()),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
