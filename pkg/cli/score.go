package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/claimsportal/claimgate/pkg/domain/model"
	"github.com/claimsportal/claimgate/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdScore() *cli.Command {
	var input string
	var now string
	var format string

	return &cli.Command{
		Name:      "score",
		Usage:     "Evaluate SLA and priority of a claim given as JSON",
		ArgsUsage: "[file]",
		Description: `Reads a claim, or {"claim": ..., "events": [...]}, from the file or stdin and
prints its SLA status and priority score.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "Input file, - for stdin",
				Value:       "-",
				Destination: &input,
			},
			&cli.StringFlag{
				Name:        "now",
				Usage:       "Evaluation time in RFC3339 (default: current time)",
				Destination: &now,
			},
			&cli.StringFlag{
				Name:        "format",
				Aliases:     []string{"f"},
				Usage:       "Output format [text|json]",
				Value:       "text",
				Destination: &format,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Present() {
				input = c.Args().First()
			}

			at := time.Now()
			if now != "" {
				parsed, err := time.Parse(time.RFC3339, now)
				if err != nil {
					return goerr.Wrap(err, "invalid --now", goerr.V("now", now))
				}
				at = parsed
			}

			raw, err := readInput(input)
			if err != nil {
				return err
			}

			req, err := parseScoreRequest(raw)
			if err != nil {
				return err
			}

			result, err := usecase.Score(req, at)
			if err != nil {
				return goerr.Wrap(err, "failed to score claim")
			}

			return writeScore(c.Root().Writer, req.Claim, result, format)
		},
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" || path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read stdin")
		}
		return data, nil
	}

	// #nosec G304 - path is given by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read input", goerr.V("path", path))
	}
	return data, nil
}

// parseScoreRequest accepts a score request or a bare claim
func parseScoreRequest(raw []byte) (*usecase.ScoreRequest, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, goerr.Wrap(err, "input is not a JSON object")
	}

	if _, ok := probe["claim"]; ok {
		var req usecase.ScoreRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, goerr.Wrap(err, "failed to parse score request")
		}
		return &req, nil
	}

	var claim model.Claim
	if err := json.Unmarshal(raw, &claim); err != nil {
		return nil, goerr.Wrap(err, "failed to parse claim")
	}
	return &usecase.ScoreRequest{Claim: &claim}, nil
}

func writeScore(w io.Writer, claim *model.Claim, result *usecase.ScoreResult, format string) error {
	if w == nil {
		w = os.Stdout
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return goerr.Wrap(err, "failed to write result")
		}
		return nil

	case "text":
		lines := []string{
			fmt.Sprintf("claim:     %s (%s)", claim.ClaimNumber, claim.Status),
			fmt.Sprintf("sla:       %s %s", result.SLA.Status, result.SLA.Label),
			fmt.Sprintf("priority:  %s (%d)", result.Priority.Level, result.Priority.Score),
			fmt.Sprintf("breakdown: amount=%d type=%d age=%d status=%d",
				result.Priority.Breakdown.Amount,
				result.Priority.Breakdown.Type,
				result.Priority.Breakdown.Age,
				result.Priority.Breakdown.Status),
			fmt.Sprintf("evaluated: %s", result.Evaluated.Format(time.RFC3339)),
		}
		for _, line := range lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return goerr.Wrap(err, "failed to write result")
			}
		}
		return nil

	default:
		return goerr.New("invalid output format", goerr.V("format", format))
	}
}
