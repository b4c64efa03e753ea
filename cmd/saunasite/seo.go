package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/saunasite/content"
	"github.com/eringen/saunasite/seo"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Print the content health report",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()
		app, err := openApp(cmd.Context(), log)
		if err != nil {
			return err
		}
		defer app.Close()

		report, err := seo.HealthFrom(cmd.Context(), app.Store, time.Now())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}

var suggestCategory string

var suggestCmd = &cobra.Command{
	Use:   "suggest <title>",
	Short: "Suggest internal links for an article title",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()
		app, err := openApp(cmd.Context(), log)
		if err != nil {
			return err
		}
		defer app.Close()

		category := content.PageType(suggestCategory)
		if suggestCategory != "" && !category.Valid() {
			return fmt.Errorf("unknown category %q", suggestCategory)
		}
		return printJSON(cmd.OutOrStdout(), seo.SuggestFrom(cmd.Context(), app.Store, log, args[0], category))
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit [file]",
	Short: "Audit the internal links of an article (stdin when no file is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}
		body, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		auditor := seo.NewAuditor(appConfig.site().Hostname())
		return printJSON(cmd.OutOrStdout(), auditor.Audit(string(body)))
	},
}

func init() {
	suggestCmd.Flags().StringVar(&suggestCategory, "category", "", "page type of the article: service, health-benefit, blog or page")
	rootCmd.AddCommand(healthCmd, suggestCmd, auditCmd)
}
