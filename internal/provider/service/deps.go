package service

import "context"

// CredentialVerifier checks end-user credentials for the password grant and
// returns the opaque user identity. An empty identity means the credentials
// were rejected.
type CredentialVerifier interface {
	CheckAuth(ctx context.Context, username, password string) (userID string, err error)
}

// CredentialVerifierFunc adapts a function to CredentialVerifier.
type CredentialVerifierFunc func(ctx context.Context, username, password string) (string, error)

func (f CredentialVerifierFunc) CheckAuth(ctx context.Context, username, password string) (string, error) {
	return f(ctx, username, password)
}

// Locker serializes work on a key across goroutines, and across replicas
// for distributed implementations.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Recorder receives grant outcomes for metrics.
type Recorder interface {
	CodeIssued(ctx context.Context)
	TokenIssued(ctx context.Context, grant string)
	TokenRevoked(ctx context.Context)
}

type nopRecorder struct{}

func (nopRecorder) CodeIssued(context.Context)          {}
func (nopRecorder) TokenIssued(context.Context, string) {}
func (nopRecorder) TokenRevoked(context.Context)        {}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}
