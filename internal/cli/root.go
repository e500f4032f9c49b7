// Package cli implements the mdblog CLI commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/eringen/mdblog"
	"github.com/eringen/mdblog/content"
)

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

var (
	envFile    string
	contentDir string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "mdblog",
	Short: "Markdown-file blog engine",
	Long:  "Serve a blog from a directory of markdown files and publish new posts over HTTP.",
}

func init() {
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load if present")
	RootCmd.PersistentFlags().StringVarP(&contentDir, "content", "c", "", "Content directory (default: $CONTENT_DIR or ./posts)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: json or text")
}

func loadConfig() (mdblog.SiteConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return mdblog.SiteConfig{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfg, err := mdblog.LoadConfig()
	if err != nil {
		return mdblog.SiteConfig{}, err
	}
	if contentDir != "" {
		cfg.ContentDir = contentDir
		cfg.ContentS3Bucket = ""
	}
	return cfg, nil
}

func newLogger(cfg mdblog.SiteConfig) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
}

func openRepo(ctx context.Context) (*content.Repository, mdblog.SiteConfig, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cfg, err
	}
	store, err := mdblog.OpenStore(ctx, cfg)
	if err != nil {
		return nil, cfg, err
	}
	repo := content.NewRepository(store,
		content.WithAuthor(cfg.Author),
		content.WithLogger(newLogger(cfg)),
	)
	return repo, cfg, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
