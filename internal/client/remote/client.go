// Package remote defines the contract the sync engine requires of the remote
// document store, plus its HTTP implementation against the farmledger server.
package remote

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/farmledger/internal/client/models"
)

var (
	ErrServerUnavailable = errors.New("server unavailable")
	ErrUnauthorized      = errors.New("unauthorized")
)

// BatchEntry is one outbound record inside an atomic batch write.
type BatchEntry struct {
	Collection models.Collection `json:"collection"`
	RecordID   int64             `json:"recordId"`
	Record     models.Record     `json:"record"`
}

// Client is the remote store collaborator. All writes within BatchWrite are
// atomic on the server: either every entry lands or none does.
type Client interface {
	Close() error

	// Auth and liveness.
	Register(ctx context.Context, username string, salt, verifier []byte) error
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, verifier []byte) error
	Ping(ctx context.Context) error

	// Document store contract.
	BatchWrite(ctx context.Context, entries []BatchEntry) error
	QueryRecent(ctx context.Context, c models.Collection, limit int, after *time.Time) ([]models.RemoteDocument, error)
	DeleteCollection(ctx context.Context, c models.Collection) error
	DeleteUserData(ctx context.Context) error

	// Settings document under the user record.
	PutSettings(ctx context.Context, settings map[string]string) error
	GetSettings(ctx context.Context) (map[string]string, error)

	// PresignBackup requests a presigned PUT URL for a snapshot upload.
	PresignBackup(ctx context.Context) (key string, url string, err error)
}
