package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aure/rumtrack/internal/api"
	"github.com/aure/rumtrack/internal/cache"
	"github.com/aure/rumtrack/internal/config"
	"github.com/aure/rumtrack/internal/rum"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "rumtrack",
	Short: "Real user monitoring bundle loader",
	Long: `rumtrack loads RUM bundles from the bundles API by UTC hour, day and month,
rolls them up per day and keeps the rollups in a local database.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.rumtrack.yaml)")
	rootCmd.PersistentFlags().String("endpoint", "", "bundles API endpoint")
	rootCmd.PersistentFlags().String("domain", "", "domain to load, or <org>:all for an organization")
	rootCmd.PersistentFlags().String("domain-key", "", "domain key for the bundles API")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	viper.BindPFlag("api_endpoint", rootCmd.PersistentFlags().Lookup("endpoint"))
	viper.BindPFlag("domain", rootCmd.PersistentFlags().Lookup("domain"))
	viper.BindPFlag("domain_key", rootCmd.PersistentFlags().Lookup("domain-key"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".rumtrack")
	}

	godotenv.Load()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	loaded, err := config.Load()
	cobra.CheckErr(err)
	cfg = loaded

	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func requireDomain() error {
	if cfg.Domain == "" {
		return fmt.Errorf("domain not set (use --domain or RUMTRACK_DOMAIN)")
	}
	if cfg.DomainKey == "" {
		return fmt.Errorf("domain key not set (use --domain-key or RUM_DOMAIN_KEY)")
	}
	return nil
}

// newLoader builds a loader from the effective configuration. The returned
// func releases the shared cache connection, if any.
func newLoader(ctx context.Context) (*rum.Loader, func(), error) {
	opts := []rum.Option{
		rum.WithGetter(api.NewClient(cfg.HTTPTimeout)),
		rum.WithConcurrency(cfg.MaxConcurrency),
		rum.WithCacheSize(cfg.CacheSize),
		rum.WithDomain(cfg.Domain),
		rum.WithDomainKey(cfg.DomainKey),
	}

	cleanup := func() {}
	if cfg.RedisAddr != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		store, err := cache.NewRedis(pingCtx, cfg.RedisAddr, cfg.RedisPassword, cache.DefaultTTL)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, rum.WithStore(store))
		cleanup = func() { store.Close() }
	}

	loader, err := rum.NewLoader(cfg.APIEndpoint, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return loader, cleanup, nil
}
