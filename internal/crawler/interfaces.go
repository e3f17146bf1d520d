package crawler

import (
	"context"
	"io"
	"time"
)

// Resolver looks up a single case on the portal. A non-nil error means the
// case is treated as absent; KindOf tells why.
type Resolver interface {
	Resolve(ctx context.Context, query CaseQuery) (CaseRecord, error)
}

// TokenSource supplies the session token sent with every case lookup.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// DocumentFetcher downloads one order document to a local file and returns its path.
type DocumentFetcher interface {
	Fetch(ctx context.Context, filePath string) (string, error)
}

// Archiver pushes a local file to durable storage and returns its retrieval URL.
type Archiver interface {
	Archive(ctx context.Context, localPath string) (string, error)
}

// ObjectStore is the minimal object storage surface the archive needs.
type ObjectStore interface {
	Exists(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, name string) error
	Upload(ctx context.Context, name string, contentType string, r io.Reader) (string, error)
}

// CaseStore persists resolved cases. It is append-only.
type CaseStore interface {
	Insert(ctx context.Context, record CaseRecord) error
}

// Publisher pushes notifications about persisted cases (Pub/Sub or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for content-addressed archive names.
type Hasher interface {
	HashReader(r io.Reader) (string, error)
}

// IDGenerator produces unique names for temp files.
type IDGenerator interface {
	NewID() (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
