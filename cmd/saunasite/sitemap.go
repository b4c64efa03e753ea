package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eringen/saunasite/sitemap"
	"github.com/eringen/saunasite/storage"
)

var (
	sitemapOut     string
	sitemapPublish bool
	sitemapImages  bool
)

var sitemapCmd = &cobra.Command{
	Use:   "sitemap",
	Short: "Print or publish the sitemaps and robots.txt",
	Long: `Without flags the URL sitemap (or, with --images, the image sitemap) is
written to stdout. --out writes sitemap.xml, sitemap-images.xml,
sitemap-index.xml and robots.txt into a directory; --publish uploads them
to the configured object storage instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sitemapOut != "" && sitemapPublish {
			return fmt.Errorf("--out and --publish are mutually exclusive")
		}
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

		if sitemapOut != "" || sitemapPublish {
			dst := app.Storage
			if sitemapOut != "" {
				fs, err := storage.New(storage.Config{BasePath: sitemapOut, PublicURL: app.Config.URL})
				if err != nil {
					return err
				}
				dst = fs
			}
			files, err := app.PublishSitemaps(ctx, dst)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f.URL)
			}
			return nil
		}

		if sitemapImages {
			set, err := app.Sitemaps.ImageSet(ctx)
			if err != nil {
				return err
			}
			return sitemap.Encode(os.Stdout, set)
		}
		set, err := app.Sitemaps.URLSet(ctx)
		if err != nil {
			return err
		}
		return sitemap.Encode(os.Stdout, set)
	},
}

func init() {
	sitemapCmd.Flags().StringVar(&sitemapOut, "out", "", "directory to write the crawler documents to")
	sitemapCmd.Flags().BoolVar(&sitemapPublish, "publish", false, "upload the crawler documents to object storage")
	sitemapCmd.Flags().BoolVar(&sitemapImages, "images", false, "print the image sitemap instead of the URL sitemap")
	rootCmd.AddCommand(sitemapCmd)
}
