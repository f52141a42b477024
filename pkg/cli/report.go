package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/magpie/pkg/usecase/digest"
	"github.com/urfave/cli/v3"
)

func reportCommand() *cli.Command {
	var (
		cfg   config
		count int64
		since string
		prose bool
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "count",
			Aliases:     []string{"n"},
			Usage:       "Number of most recent insights to include",
			Value:       20,
			Sources:     cli.EnvVars("MAGPIE_REPORT_COUNT"),
			Destination: &count,
		},
		&cli.StringFlag{
			Name:        "since",
			Usage:       "Only include insights created after this time (RFC3339)",
			Sources:     cli.EnvVars("MAGPIE_REPORT_SINCE"),
			Destination: &since,
		},
		&cli.BoolFlag{
			Name:        "prose",
			Usage:       "Render the report as an executive briefing",
			Destination: &prose,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "report",
		Usage: "Build a strategic report over recent insights",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			window := digest.Window{Count: int(count)}
			if since != "" {
				t, err := time.Parse(time.RFC3339, since)
				if err != nil {
					return goerr.Wrap(err, "failed to parse since", goerr.V("since", since))
				}
				window.Since = t
			}

			// Initialize dependencies
			e, err := cfg.openEngine(ctx)
			if err != nil {
				return err
			}

			var uc *digest.UseCase
			if prose {
				gemini, err := cfg.newGemini(ctx)
				if err != nil {
					return err
				}
				uc = digest.New(e.repo, gemini)
			} else {
				uc = digest.New(e.repo, nil)
			}

			report, err := uc.BuildReport(ctx, window)
			if err != nil {
				return goerr.Wrap(err, "failed to build report")
			}

			if !prose {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return goerr.Wrap(err, "failed to marshal report")
				}
				fmt.Fprintf(c.Root().Writer, "%s\n", data)
				return nil
			}

			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			sp.Suffix = " Writing briefing..."
			sp.Start()
			text, err := uc.Render(ctx, report)
			sp.Stop()
			if err != nil {
				return goerr.Wrap(err, "failed to render report")
			}

			fmt.Fprintf(c.Root().Writer, "%s\n", text)
			return nil
		},
	}
}
