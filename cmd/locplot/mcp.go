package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/locplot/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes a collected history
to LLM clients. Tools read repo_history.json from the output directory
unless a call names another file.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "locplot": {
        "command": "locplot",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - history_summary     Date range and size at the latest revision
  - history_languages   Languages with coverage and first/last seen dates
  - history_series      Date-aligned series with trend statistics`,
		Action: runMCPCmd,
		Subcommands: []*cli.Command{
			{
				Name:   "manifest",
				Usage:  "Print the MCP registry manifest (server.json)",
				Action: runMCPManifestCmd,
			},
		},
	}
}

func runMCPCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	server := mcpserver.NewServer(version,
		mcpserver.WithHistoryPath(historyPath(c, cfg)),
		mcpserver.WithSquash(cfg.History.Squash),
	)
	return server.Run(c.Context)
}

func runMCPManifestCmd(c *cli.Context) error {
	data, err := mcpserver.GenerateManifest(version)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(data))
	return err
}
