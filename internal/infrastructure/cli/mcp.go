package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	inframcp "github.com/felixgeelhaar/blotter/internal/infrastructure/mcp"
	"github.com/felixgeelhaar/blotter/internal/infrastructure/wiring"
)

var (
	mcpTransport string
	mcpAddr      string
	mcpOpenAPI   bool
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Blotter MCP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withServices(cmd, func(_ context.Context, s *wiring.AppServices) error {
			server := inframcp.NewServer(s)
			if mcpOpenAPI {
				data, err := server.OpenAPI()
				if err != nil {
					return fmt.Errorf("failed to generate OpenAPI spec: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			if os.Getenv("BLOTTER_SKIP_MCP_START") == "true" {
				return nil
			}

			switch strings.ToLower(mcpTransport) {
			case "stdio", "":
				return server.ServeStdio(ctx)
			case "http":
				return server.ServeHTTP(ctx, mcpAddr)
			case "ws", "websocket":
				return server.ServeWebSocket(ctx, mcpAddr)
			default:
				return fmt.Errorf("unsupported transport: %s", mcpTransport)
			}
		})
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpTransport, "transport", "stdio", "Transport to use (stdio, http, ws)")
	mcpCmd.Flags().StringVar(&mcpAddr, "addr", ":8080", "Address for http/ws transports")
	mcpCmd.Flags().BoolVar(&mcpOpenAPI, "openapi", false, "Print an OpenAPI 3.0 document for the MCP tools and exit")
	RootCmd.AddCommand(mcpCmd)
}
