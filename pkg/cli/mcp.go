package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	mcpservice "github.com/m-mizutani/magpie/pkg/service/mcp"
	"github.com/m-mizutani/magpie/pkg/usecase/digest"
	"github.com/m-mizutani/magpie/pkg/usecase/insight"
	"github.com/urfave/cli/v3"
)

func mcpCommand() *cli.Command {
	var cfg config

	flags := append(globalFlags(&cfg), llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve insight tools over MCP (stdio)",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			// Initialize dependencies
			e, err := cfg.openEngine(ctx)
			if err != nil {
				return err
			}

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			insightUC := insight.New(e.repo, e.index, gemini)
			digestUC := digest.New(e.repo, gemini)

			server, err := mcpservice.NewServer(insightUC, digestUC)
			if err != nil {
				return goerr.Wrap(err, "failed to create MCP server")
			}

			return server.Run(ctx)
		},
	}
}
