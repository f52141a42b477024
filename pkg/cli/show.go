package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/magpie/pkg/model"
	"github.com/m-mizutani/magpie/pkg/usecase/insight"
	"github.com/urfave/cli/v3"
)

func showCommand() *cli.Command {
	var (
		cfg   config
		docID model.DocumentID
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "id",
			Usage:       "Document ID to show",
			Sources:     cli.EnvVars("MAGPIE_DOCUMENT_ID"),
			Destination: (*string)(&docID),
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "show",
		Usage: "Show a stored insight record",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			// Initialize dependencies
			e, err := cfg.openEngine(ctx)
			if err != nil {
				return err
			}

			uc := insight.New(e.repo, e.index, nil)

			record, err := uc.Show(ctx, docID)
			if err != nil {
				return goerr.Wrap(err, "failed to show insight", goerr.V("id", docID))
			}

			data, err := json.MarshalIndent(record, "", "  ")
			if err != nil {
				return goerr.Wrap(err, "failed to marshal insight")
			}

			fmt.Fprintf(c.Root().Writer, "%s\n", data)
			return nil
		},
	}
}
