package config

import (
	"context"
	"log/slog"

	"github.com/claimsportal/claimgate/pkg/service/archive"
	"github.com/claimsportal/claimgate/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Archive holds the export archival settings. Archival is off without a bucket.
type Archive struct {
	bucket string
	prefix string
}

func (x *Archive) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "export-archive-bucket",
			Usage:       "Cloud Storage bucket keeping a copy of every claims export",
			Category:    "Export",
			Sources:     cli.EnvVars("CLAIMGATE_EXPORT_ARCHIVE_BUCKET"),
			Destination: &x.bucket,
		},
		&cli.StringFlag{
			Name:        "export-archive-prefix",
			Usage:       "Object name prefix of archived exports",
			Value:       "exports",
			Category:    "Export",
			Sources:     cli.EnvVars("CLAIMGATE_EXPORT_ARCHIVE_PREFIX"),
			Destination: &x.prefix,
		},
	}
}

func (x Archive) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("bucket", x.bucket),
		slog.String("prefix", x.prefix),
	)
}

// Configure returns nil when archival is not configured. The caller closes the returned
// archive.
func (x *Archive) Configure(ctx context.Context) (*archive.GCS, error) {
	if x.bucket == "" {
		logging.Default().Info("Export archive bucket not configured, exports are not archived")
		return nil, nil
	}

	gcs, err := archive.NewGCS(ctx, x.bucket, archive.WithPrefix(x.prefix))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create export archive", goerr.V("bucket", x.bucket))
	}
	logging.Default().Info("Export archive enabled", "bucket", x.bucket, "prefix", x.prefix)
	return gcs, nil
}
