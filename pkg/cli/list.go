package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/magpie/pkg/usecase/insight"
	"github.com/urfave/cli/v3"
)

func listCommand() *cli.Command {
	var (
		cfg   config
		limit int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Maximum number of insights to list",
			Value:       100,
			Sources:     cli.EnvVars("MAGPIE_LIST_LIMIT"),
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List stored insight records",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			// Initialize dependencies
			e, err := cfg.openEngine(ctx)
			if err != nil {
				return err
			}

			uc := insight.New(e.repo, e.index, nil)

			records, err := uc.List(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to list insights")
			}

			if len(records) > int(limit) {
				records = records[:limit]
			}

			for _, r := range records {
				topics := strings.Join(r.Topics, ", ")
				fmt.Fprintf(c.Root().Writer, "%s  %s  [%s]\n    %s\n",
					r.ID, r.CreatedAt.Format("2006-01-02 15:04"), topics, r.Summary)
			}
			fmt.Fprintf(c.Root().Writer, "\nTotal: %d insights\n", len(records))
			return nil
		},
	}
}
