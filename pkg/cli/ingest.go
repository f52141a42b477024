package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/magpie/pkg/usecase/insight"
	"github.com/urfave/cli/v3"
)

func ingestCommand() *cli.Command {
	var (
		cfg       config
		inputPath string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       "Path to text file to ingest (default: stdin)",
			Sources:     cli.EnvVars("MAGPIE_INPUT"),
			Destination: &inputPath,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "ingest",
		Usage: "Extract insights from a document and store them",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			text, err := readInput(inputPath)
			if err != nil {
				return err
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

			gate, err := cfg.newGate(ctx)
			if err != nil {
				return err
			}

			uc := insight.New(e.repo, e.index, gemini,
				insight.WithStorage(e.storage),
				insight.WithGate(gate),
			)

			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			sp.Suffix = " Extracting insights..."
			sp.Start()
			record, created, err := uc.Ingest(ctx, text)
			sp.Stop()

			if err != nil {
				if errors.Is(err, insight.ErrPolicyRejected) {
					fmt.Fprintf(c.Root().Writer, "Skipped by ingest policy: %s\n", err.Error())
					return nil
				}
				return goerr.Wrap(err, "failed to ingest document")
			}

			if !created {
				fmt.Fprintf(c.Root().Writer, "Already ingested: %s\n", record.ID)
				return nil
			}

			if err := e.save(ctx); err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Insight created: %s\n", record.ID)
			return nil
		},
	}
}

func readInput(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", goerr.Wrap(err, "failed to read stdin")
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read input file", goerr.V("path", path))
	}
	return string(data), nil
}
