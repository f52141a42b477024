package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/magpie/pkg/usecase/insight"
	"github.com/urfave/cli/v3"
)

func searchCommand() *cli.Command {
	var (
		cfg         config
		query       string
		limit       int64
		interactive bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "query",
			Aliases:     []string{"q"},
			Usage:       "Natural language query to search for similar documents",
			Sources:     cli.EnvVars("MAGPIE_SEARCH_QUERY"),
			Destination: &query,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"l"},
			Usage:       "Maximum number of similar documents to return",
			Value:       10,
			Sources:     cli.EnvVars("MAGPIE_SEARCH_LIMIT"),
			Destination: &limit,
		},
		&cli.BoolFlag{
			Name:        "interactive",
			Aliases:     []string{"i"},
			Usage:       "Read queries interactively from the terminal",
			Destination: &interactive,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "search",
		Usage: "Search for similar documents using vector similarity",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if !interactive && query == "" {
				return goerr.New("query is required unless --interactive is set")
			}

			// Initialize dependencies
			e, err := cfg.openEngine(ctx)
			if err != nil {
				return err
			}

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			uc := insight.New(e.repo, e.index, gemini)

			if !interactive {
				return runSearch(ctx, c.Root().Writer, uc, query, int(limit))
			}

			rl, err := readline.New("search> ")
			if err != nil {
				return goerr.Wrap(err, "failed to open terminal")
			}
			defer rl.Close()

			for {
				line, err := rl.Readline()
				if err != nil {
					if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
						return nil
					}
					return goerr.Wrap(err, "failed to read query")
				}

				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				if line == "exit" {
					return nil
				}

				if err := runSearch(ctx, c.Root().Writer, uc, line, int(limit)); err != nil {
					fmt.Fprintf(c.Root().Writer, "error: %s\n", err.Error())
				}
			}
		},
	}
}

func runSearch(ctx context.Context, w io.Writer, uc *insight.UseCase, query string, limit int) error {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = " Searching..."
	sp.Start()
	results, err := uc.Search(ctx, insight.SearchOptions{Query: query, Limit: limit})
	sp.Stop()
	if err != nil {
		return goerr.Wrap(err, "failed to search")
	}

	if len(results) == 0 {
		fmt.Fprintf(w, "No matches\n")
		return nil
	}

	for i, r := range results {
		fmt.Fprintf(w, "%2d. %.4f  %s\n    %s\n", i+1, r.Score, r.Record.ID, r.Record.Summary)
	}
	return nil
}
