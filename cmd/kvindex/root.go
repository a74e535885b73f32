package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arthur-debert/kvindex/index"
	"github.com/arthur-debert/kvindex/kv"
	"github.com/arthur-debert/kvindex/schema"
)

var (
	storePath    string
	backend      string
	maxKeyLength int
	guidMode     bool
	cacheSize    int
	readOnly     bool
	verbose      bool

	cfg = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "kvindex",
	Short: "kvindex CLI",
	Long:  "kvindex drives the LDB-style indexing core against a file- or SQLite-backed key/value store.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&storePath, "store", "s", "", "path to the backing store file (required)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "file", "backing store: file, sqlite, or mem")
	rootCmd.PersistentFlags().IntVar(&maxKeyLength, "max-key-length", 0, "truncate formatted index keys beyond this length (0 = unlimited)")
	rootCmd.PersistentFlags().BoolVar(&guidMode, "guid-mode", false, "force GUID-keyed indexing, overriding @INDEXLIST")
	rootCmd.PersistentFlags().IntVar(&cacheSize, "cache-size", 256, "LRU cache size in front of KV reads (0 disables)")
	rootCmd.PersistentFlags().BoolVar(&readOnly, "read-only", false, "open the engine read-only (refuses reindex)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	_ = rootCmd.MarkPersistentFlagRequired("store")

	_ = cfg.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	_ = cfg.BindPFlag("max-key-length", rootCmd.PersistentFlags().Lookup("max-key-length"))
	_ = cfg.BindPFlag("guid-mode", rootCmd.PersistentFlags().Lookup("guid-mode"))
	_ = cfg.BindPFlag("cache-size", rootCmd.PersistentFlags().Lookup("cache-size"))
	setupViperConfig()

	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(addIndexAttrCmd)
}

// setupViperConfig wires an optional config file on top of the flag
// defaults: KVINDEX_CONFIG names an explicit file, otherwise kvindex.yaml
// is discovered in the working directory or $HOME/.kvindex.
func setupViperConfig() {
	if configFile := os.Getenv("KVINDEX_CONFIG"); configFile != "" {
		cfg.SetConfigFile(configFile)
	} else {
		cfg.SetConfigName("kvindex")
		cfg.SetConfigType("yaml")
		cfg.AddConfigPath(".")
		cfg.AddConfigPath("$HOME/.kvindex")
	}
	cfg.SetEnvPrefix("KVINDEX")
	cfg.AutomaticEnv()
	if err := cfg.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			fmt.Fprintf(os.Stderr, "kvindex: warning: reading config: %v\n", err)
		}
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func openStore() (kv.Store, error) {
	switch cfg.GetString("backend") {
	case "file":
		return kv.NewFileStore(storePath), nil
	case "sqlite":
		return kv.NewSQLiteStore(storePath)
	case "mem":
		return kv.NewMemStore(), nil
	default:
		return nil, fmt.Errorf("kvindex: unknown backend %q (want file, sqlite, or mem)", cfg.GetString("backend"))
	}
}

func openEngine() (*index.Engine, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	opts := index.Options{
		MaxKeyLength: cfg.GetInt("max-key-length"),
		GUIDMode:     cfg.GetBool("guid-mode"),
		CacheSize:    cfg.GetInt("cache-size"),
		ReadOnly:     readOnly,
		Logger:       newLogger(),
	}
	return index.Open(store, schema.NewDefault(nil), opts)
}
