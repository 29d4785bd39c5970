package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"canoncheck/internal/pipeline"
	"canoncheck/internal/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interactive checker over HTTP",
	Long: `Serve loads the index once and exposes the checker as a JSON API:

  POST /api/v1/check   {"book_name": ..., "backstory": ...}
  GET  /api/v1/books
  GET  /health

Example:
  canoncheck serve
  canoncheck serve --addr :9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	if err := p.Load(); err != nil {
		return err
	}

	s := server.NewServer(p)
	fmt.Fprintf(os.Stderr, "Listening on %s\n", cfg.Server.Addr)
	return s.Run(cfg.Server.Addr)
}
