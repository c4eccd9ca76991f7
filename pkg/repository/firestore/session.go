package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/claimsportal/claimgate/pkg/domain/interfaces"
	"github.com/claimsportal/claimgate/pkg/domain/model/auth"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// SessionsCollection is exported for index migration
	SessionsCollection = "sessions"

	sweepBatchSize = 500
)

type sessionRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.SessionRepository = &sessionRepository{}

func newSessionRepository(client *firestore.Client) *sessionRepository {
	return &sessionRepository{
		client: client,
	}
}

func (r *sessionRepository) collection() *firestore.CollectionRef {
	if r.collectionPrefix != "" {
		return r.client.Collection(r.collectionPrefix + "_" + SessionsCollection)
	}
	return r.client.Collection(SessionsCollection)
}

func (r *sessionRepository) Put(ctx context.Context, session *auth.Session) error {
	if err := session.Validate(); err != nil {
		return goerr.Wrap(err, "invalid session")
	}

	if _, err := r.collection().Doc(session.ID.String()).Set(ctx, session); err != nil {
		return goerr.Wrap(err, "failed to put session to firestore", goerr.V("id", session.ID))
	}

	return nil
}

func (r *sessionRepository) Get(ctx context.Context, id auth.SessionID) (*auth.Session, error) {
	if err := id.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid session ID")
	}

	doc, err := r.collection().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "session not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get session from firestore", goerr.V("id", id))
	}

	var session auth.Session
	if err := doc.DataTo(&session); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal session", goerr.V("id", id))
	}

	return &session, nil
}

func (r *sessionRepository) Delete(ctx context.Context, id auth.SessionID) error {
	if err := id.Validate(); err != nil {
		return goerr.Wrap(err, "invalid session ID")
	}

	docRef := r.collection().Doc(id.String())

	// Check if document exists first
	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "session not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to get session from firestore", goerr.V("id", id))
	}

	if _, err := docRef.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete session from firestore", goerr.V("id", id))
	}

	return nil
}

// DeleteExpired removes sessions past their absolute lifetime, then errored sessions whose
// access token already expired. The second query relies on the composite index created by
// the migrate command.
func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := r.deleteMatching(ctx, r.collection().
		Where("session_expires_at", "<=", now))
	if err != nil {
		return expired, goerr.Wrap(err, "failed to delete expired sessions")
	}

	errored, err := r.deleteMatching(ctx, r.collection().
		Where("error", "==", auth.RefreshAccessTokenError).
		Where("expires_at", "<", now))
	if err != nil {
		return expired + errored, goerr.Wrap(err, "failed to delete errored sessions")
	}

	return expired + errored, nil
}

func (r *sessionRepository) deleteMatching(ctx context.Context, query firestore.Query) (int, error) {
	totalDeleted := 0

	for {
		iter := query.Limit(sweepBatchSize).Documents(ctx)
		bulkWriter := r.client.BulkWriter(ctx)
		count := 0

		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				bulkWriter.End()
				return totalDeleted, goerr.Wrap(err, "failed to iterate sessions for deletion")
			}

			if _, err := bulkWriter.Delete(doc.Ref); err != nil {
				iter.Stop()
				bulkWriter.End()
				return totalDeleted, goerr.Wrap(err, "failed to delete session", goerr.V("docID", doc.Ref.ID))
			}
			count++
		}
		iter.Stop()
		bulkWriter.End()

		totalDeleted += count
		if count < sweepBatchSize {
			break
		}
	}

	return totalDeleted, nil
}
