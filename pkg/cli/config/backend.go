package config

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/claimsportal/claimgate/pkg/service/claims"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Backend holds the claims API settings
type Backend struct {
	url     string
	timeout time.Duration
}

func (x *Backend) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "backend-url",
			Usage:       "Base URL of the claims API (e.g. http://claims-api:8081)",
			Category:    "Claims API",
			Sources:     cli.EnvVars("CLAIMGATE_BACKEND_URL"),
			Destination: &x.url,
		},
		&cli.DurationFlag{
			Name:        "backend-timeout",
			Usage:       "Timeout of claims API requests",
			Value:       claims.DefaultTimeout,
			Category:    "Claims API",
			Sources:     cli.EnvVars("CLAIMGATE_BACKEND_TIMEOUT"),
			Destination: &x.timeout,
		},
	}
}

func (x Backend) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("url", x.url),
		slog.Duration("timeout", x.timeout),
	)
}

func (x *Backend) Configure() (*claims.Client, error) {
	if x.url == "" {
		return nil, goerr.Wrap(ErrMissingBackend, "set --backend-url")
	}

	client, err := claims.New(x.url, claims.WithHTTPClient(&http.Client{Timeout: x.timeout}))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create claims API client", goerr.V("url", x.url))
	}
	return client, nil
}
