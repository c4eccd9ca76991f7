package auth

import (
	"crypto/md5" // #nosec G501 - name based UUID, not used for security
	"strings"

	"github.com/google/uuid"
)

// StableUserID derives the user identifier shared with the claims API. The claims API
// computes a version 3 name based UUID from the raw email bytes (no namespace), so the same
// is done here. sub is used when the email is unknown.
func StableUserID(email, sub string) string {
	if strings.TrimSpace(email) == "" {
		return sub
	}

	sum := md5.Sum([]byte(email)) // #nosec G401
	sum[6] = (sum[6] & 0x0f) | 0x30
	sum[8] = (sum[8] & 0x3f) | 0x80

	id, err := uuid.FromBytes(sum[:])
	if err != nil {
		return sub
	}
	return id.String()
}
