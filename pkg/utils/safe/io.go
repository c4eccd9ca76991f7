package safe

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/claimsportal/claimgate/pkg/utils/logging"
)

// Close closes closer and logs the error instead of returning it. Nil closers are ignored.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Warn("Failed to close",
			slog.String("type", fmt.Sprintf("%T", closer)),
			slog.Any("error", err))
	}
}

// Write writes data to w and logs the error. Used for response bodies where the client may
// already be gone.
func Write(ctx context.Context, w io.Writer, data []byte) {
	if w == nil {
		return
	}
	if n, err := w.Write(data); err != nil {
		logging.From(ctx).Warn("Failed to write",
			slog.Int("written", n),
			slog.Int("size", len(data)),
			slog.Any("error", err))
	}
}

// Copy streams src into dst and logs the error
func Copy(ctx context.Context, dst io.Writer, src io.Reader) {
	if n, err := io.Copy(dst, src); err != nil {
		logging.From(ctx).Warn("Failed to copy",
			slog.Int64("written", n),
			slog.Any("error", err))
	}
}
