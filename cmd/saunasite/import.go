package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/eringen/saunasite"
	"github.com/eringen/saunasite/logger"
)

const watchDebounce = 500 * time.Millisecond

var importWatch bool

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Import the content index (YAML) and blog posts (markdown) from a file or directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()
		ctx := cmd.Context()
		app, err := openApp(ctx, log)
		if err != nil {
			return err
		}
		defer app.Close()

		res, err := app.ImportPath(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries, %d images, %d posts\n", res.Entries, res.Images, res.Posts)
		if !importWatch {
			return nil
		}
		return watchImports(ctx, app, log, args[0])
	},
}

// watchImports re-imports root whenever files under it change.
func watchImports(ctx context.Context, app *saunasite.App, log logger.Logger, root string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, root); err != nil {
		return err
	}
	log.Info("watching for content changes", logger.String("path", root))

	var timer *time.Timer
	reimport := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						log.Warn("watch new directory", logger.String("path", event.Name), logger.Error(err))
					}
				}
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case reimport <- struct{}{}:
				default:
				}
			})
		case <-reimport:
			res, err := app.ImportPath(ctx, root)
			if err != nil {
				log.Error("re-import failed", logger.Error(err))
				continue
			}
			log.Info("re-imported", logger.Int("entries", res.Entries), logger.Int("images", res.Images), logger.Int("posts", res.Posts))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", logger.Error(err))
		}
	}
}

func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return watcher.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

func init() {
	importCmd.Flags().BoolVar(&importWatch, "watch", false, "keep running and re-import on changes")
	rootCmd.AddCommand(importCmd)
}
