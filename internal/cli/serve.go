package cli

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"medrag/internal/adapter/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question form and JSON API",
	Long: `Start the HTTP server. Missing indices are built before listening.

Routes:
  GET  /         question form
  POST /         submit the form, renders the answer or "Error: ..."
  POST /v1/ask   {"question": "..."} -> {"answer": "...", "run_id": "..."}
  GET  /healthz  liveness

Examples:
  medrag serve
  medrag serve --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	agent, err := newAgent(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	gin.SetMode(gin.ReleaseMode)
	server := httpapi.NewServer(agent,
		httpapi.WithRequestTimeout(cfg.Server.RequestTimeout),
		httpapi.WithLogger(logger))

	fmt.Printf("Serving on http://%s\n", displayAddr(addr))
	return server.ListenAndServe(cmd.Context(), addr, cfg.Server.ShutdownTimeout)
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
