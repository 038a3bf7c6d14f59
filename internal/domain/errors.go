package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrCiphertextCorrupt: the stored secret cannot be decrypted at all
	// (wrong key epoch, truncated blob). Unrecoverable; clear the secret.
	ErrCiphertextCorrupt = errors.New("credential ciphertext corrupt")

	// ErrCredentialRevoked: the identity provider rejected the refresh
	// secret as invalid or revoked. Retrying next run is futile; clear it.
	ErrCredentialRevoked = errors.New("credential revoked")
)

// SourceError is a failure from the external review-hosting API, carrying
// the upstream HTTP status. A 401 means the access credential is expired or
// revoked and must trigger clearing of the stored secret; everything else is
// transient or a caller bug and stays local to the location being polled.
type SourceError struct {
	Status  int
	Message string
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source api %d: %s", e.Status, e.Message)
}

// IsAuthRevoked reports whether err is a SourceError with status 401.
func IsAuthRevoked(err error) bool {
	var se *SourceError
	return errors.As(err, &se) && se.Status == http.StatusUnauthorized
}
