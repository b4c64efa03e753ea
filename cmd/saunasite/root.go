package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eringen/saunasite"
	"github.com/eringen/saunasite/logger"
	"github.com/eringen/saunasite/storage"
)

// config mirrors saunasite.SiteConfig with flat keys so every setting can
// come from the config file or a SAUNA_* environment variable.
type config struct {
	Name        string `mapstructure:"name"`
	URL         string `mapstructure:"url"`
	Description string `mapstructure:"description"`
	Phone       string `mapstructure:"phone"`
	Email       string `mapstructure:"email"`
	Street      string `mapstructure:"street"`
	Locality    string `mapstructure:"locality"`
	Region      string `mapstructure:"region"`
	PostalCode  string `mapstructure:"postal_code"`
	Country     string `mapstructure:"country"`
	PriceRange  string `mapstructure:"price_range"`

	Addr           string `mapstructure:"addr"`
	DatabaseDriver string `mapstructure:"database_driver"`
	DatabaseDSN    string `mapstructure:"database_dsn"`

	AdminPassword string `mapstructure:"admin_password"`
	SessionSecret string `mapstructure:"session_secret"`
	CookieSecure  bool   `mapstructure:"cookie_secure"`

	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	UploadDir string   `mapstructure:"upload_dir"`
	UploadURL string   `mapstructure:"upload_url"`
	S3        s3Config `mapstructure:"s3"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	LoginMaxAttempts int           `mapstructure:"login_max_attempts"`
	LoginWindow      time.Duration `mapstructure:"login_window"`

	Tracing   bool   `mapstructure:"tracing"`
	StaticDir string `mapstructure:"static_dir"`
	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`
}

type s3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
	PublicURL       string `mapstructure:"public_url"`
}

func (c config) site() saunasite.SiteConfig {
	return saunasite.SiteConfig{
		Name:             c.Name,
		URL:              c.URL,
		Description:      c.Description,
		Phone:            c.Phone,
		Email:            c.Email,
		Street:           c.Street,
		Locality:         c.Locality,
		Region:           c.Region,
		PostalCode:       c.PostalCode,
		Country:          c.Country,
		PriceRange:       c.PriceRange,
		Addr:             c.Addr,
		DatabaseDriver:   c.DatabaseDriver,
		DatabaseDSN:      c.DatabaseDSN,
		AdminPassword:    c.AdminPassword,
		SessionSecret:    c.SessionSecret,
		CookieSecure:     c.CookieSecure,
		CacheTTL:         c.CacheTTL,
		ReadTimeout:      c.ReadTimeout,
		UploadDir:        c.UploadDir,
		UploadURL:        c.UploadURL,
		S3:               storage.S3Config(c.S3),
		RedisAddr:        c.RedisAddr,
		RedisPassword:    c.RedisPassword,
		RedisDB:          c.RedisDB,
		LoginMaxAttempts: c.LoginMaxAttempts,
		LoginWindow:      c.LoginWindow,
		Tracing:          c.Tracing,
	}
}

// keys are registered as defaults so AutomaticEnv can resolve them.
var defaults = map[string]any{
	"name":                 "Sauna Co",
	"url":                  "http://localhost:3000",
	"description":          "",
	"phone":                "",
	"email":                "",
	"street":               "",
	"locality":             "",
	"region":               "",
	"postal_code":          "",
	"country":              "",
	"price_range":          "",
	"addr":                 ":3000",
	"database_driver":      saunasite.DriverSQLite,
	"database_dsn":         "data/saunasite.db",
	"admin_password":       "",
	"session_secret":       "",
	"cookie_secure":        false,
	"cache_ttl":            "5m",
	"read_timeout":         "10s",
	"upload_dir":           "public",
	"upload_url":           "/public",
	"s3.endpoint":          "",
	"s3.region":            "",
	"s3.bucket":            "",
	"s3.access_key_id":     "",
	"s3.secret_access_key": "",
	"s3.use_path_style":    false,
	"s3.public_url":        "",
	"redis_addr":           "",
	"redis_password":       "",
	"redis_db":             0,
	"login_max_attempts":   5,
	"login_window":         "1m",
	"tracing":              false,
	"static_dir":           "public",
	"log_level":            "info",
	"log_pretty":           false,
}

var (
	cfgFile   string
	appConfig config
)

var rootCmd = &cobra.Command{
	Use:   "saunasite",
	Short: "Sauna business site backend and SEO tooling",
	Long: `saunasite serves the sauna business site's crawler endpoints and admin API,
and runs the SEO tools (link suggestions, link audits, content health and
sitemap publishing) from the command line.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./saunasite.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "human-readable console logs")
}

func initializeConfig(cmd *cobra.Command) error {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("saunasite")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("SAUNA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		v.Set("log_level", f.Value.String())
	}
	if f := cmd.Flags().Lookup("log-pretty"); f != nil && f.Changed {
		v.Set("log_pretty", f.Value.String() == "true")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(&appConfig); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}
	return nil
}

func newLogger() (logger.Logger, error) {
	return logger.New(appConfig.LogLevel, appConfig.LogPretty)
}

// openApp builds an App and opens its data layer without registering HTTP
// routes. Callers must Close it.
func openApp(ctx context.Context, log logger.Logger) (*saunasite.App, error) {
	app := saunasite.New(appConfig.site(), saunasite.WithLogger(log), saunasite.WithStaticDir(appConfig.StaticDir))
	if err := app.Open(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}
