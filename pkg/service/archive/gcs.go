package archive

import (
	"context"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/claimsportal/claimgate/pkg/domain/interfaces"
	"github.com/m-mizutani/goerr/v2"
)

// GCS keeps claims exports in a Cloud Storage bucket
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
	now    func() time.Time
}

var _ interfaces.ExportArchive = &GCS{}

// Option configures GCS
type Option func(*GCS)

// WithPrefix sets the object name prefix, e.g. "exports"
func WithPrefix(prefix string) Option {
	return func(g *GCS) {
		g.prefix = strings.Trim(prefix, "/")
	}
}

// WithClock replaces time.Now when naming objects
func WithClock(now func() time.Time) Option {
	return func(g *GCS) {
		g.now = now
	}
}

// NewGCS creates an archive writing to bucket with application default credentials
func NewGCS(ctx context.Context, bucket string, opts ...Option) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("bucket is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	g := &GCS{
		client: client,
		bucket: bucket,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// Save uploads data as a CSV object and returns its gs:// URL
func (g *GCS) Save(ctx context.Context, organizationID string, data []byte) (string, error) {
	name := objectName(g.prefix, organizationID, g.now())

	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "text/csv"
	w.Metadata = map[string]string{
		"organization_id": organizationID,
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", goerr.Wrap(err, "failed to write export object",
			goerr.V("bucket", g.bucket),
			goerr.V("object", name),
		)
	}
	if err := w.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to finalize export object",
			goerr.V("bucket", g.bucket),
			goerr.V("object", name),
		)
	}

	return "gs://" + g.bucket + "/" + name, nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}

// objectName lays exports out per organization and day so lifecycle rules can expire them
func objectName(prefix, organizationID string, now time.Time) string {
	now = now.UTC()
	org := strings.ReplaceAll(organizationID, "/", "_")
	if org == "" {
		org = "_"
	}
	file := "claims-export-" + now.Format("20060102T150405.000Z") + ".csv"
	return path.Join(prefix, org, now.Format("2006/01/02"), file)
}
