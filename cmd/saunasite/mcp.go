package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eringen/saunasite"
	"github.com/eringen/saunasite/mcptools"
	"github.com/eringen/saunasite/search"
)

type searcher struct{ app *saunasite.App }

func (s searcher) Search(ctx context.Context, q string, limit int) ([]search.Hit, error) {
	return s.app.SearchContent(ctx, q, limit)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the SEO tools as an MCP server over stdio",
	Long: `mcp serves suggest_internal_links, audit_internal_links,
content_health_report and search_content to an MCP client over stdin and
stdout. Logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := openApp(ctx, log)
		if err != nil {
			return err
		}
		defer app.Close()

		tools := &mcptools.Tools{
			Index:   app.Cache,
			Auditor: app.Auditor,
			Search:  searcher{app},
			Log:     log,
		}
		return mcptools.Serve(ctx, tools, version)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
