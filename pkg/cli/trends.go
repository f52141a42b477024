package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/magpie/pkg/usecase/insight"
	"github.com/urfave/cli/v3"
)

func trendsCommand() *cli.Command {
	var (
		cfg      config
		asJSON   bool
		topCount int64
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Output the full snapshot as JSON",
			Destination: &asJSON,
		},
		&cli.IntFlag{
			Name:        "top",
			Usage:       "Number of top topics to display",
			Value:       10,
			Sources:     cli.EnvVars("MAGPIE_TRENDS_TOP"),
			Destination: &topCount,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "trends",
		Usage: "Aggregate trends across all stored insights",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			// Initialize dependencies
			e, err := cfg.openEngine(ctx)
			if err != nil {
				return err
			}

			uc := insight.New(e.repo, e.index, nil)

			snapshot, err := uc.Trends(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to aggregate trends")
			}

			if asJSON {
				data, err := json.MarshalIndent(snapshot, "", "  ")
				if err != nil {
					return goerr.Wrap(err, "failed to marshal snapshot")
				}
				fmt.Fprintf(c.Root().Writer, "%s\n", data)
				return nil
			}

			w := c.Root().Writer
			fmt.Fprintf(w, "Records: %d\n", snapshot.Records)

			fmt.Fprintf(w, "\nTop topics:\n")
			topics := snapshot.Topics
			if len(topics) > int(topCount) {
				topics = topics[:topCount]
			}
			for _, t := range topics {
				fmt.Fprintf(w, "  %4d  %s\n", t.Count, t.Label)
			}

			fmt.Fprintf(w, "\nRepeated risks:\n")
			for _, r := range snapshot.RepeatedRisks {
				fmt.Fprintf(w, "  %4d  %s (last seen %s)\n", r.Count, r.Label, r.LastSeen.Format("2006-01-02"))
			}

			fmt.Fprintf(w, "\nEmerging themes:\n")
			for _, t := range snapshot.EmergingThemes {
				fmt.Fprintf(w, "  %4d  %s\n", t.Count, t.Label)
			}

			fmt.Fprintf(w, "\nAction items: %d open, %d closed (%.0f%% complete)\n",
				snapshot.ActionItems.Open, snapshot.ActionItems.Closed,
				snapshot.ActionItems.CompletionRate*100)
			return nil
		},
	}
}
