package cmd

import (
	"github.com/spf13/cobra"

	mcpserver "github.com/wesm/photogrid/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run MCP server for photo browsing tools",
	Long: `Start an MCP (Model Context Protocol) server over stdio.

This lets any MCP client browse Unsplash through the tools list_photos,
search_photos, get_photo and grid_rows.

Add to an MCP client config:
  {
    "mcpServers": {
      "photogrid": {
        "command": "photogrid",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newUnsplashClient(logger)
		if err != nil {
			return err
		}
		return mcpserver.Serve(cmd.Context(), client, mcpserver.Options{PerPage: cfg.Unsplash.PerPage})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
