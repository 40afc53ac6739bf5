package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/farmledger/internal/dbx"
	"github.com/dmitrijs2005/farmledger/internal/server/models"
	"github.com/dmitrijs2005/farmledger/internal/server/repositories/documents"
)

// DocumentService stores synced documents. Batch writes are atomic: either
// every document in the batch lands or none does.
type DocumentService struct {
	db          *sql.DB
	repoFactory func(db dbx.DBTX) documents.Repository
}

func NewDocumentService(db *sql.DB, repoFactory func(db dbx.DBTX) documents.Repository) *DocumentService {
	return &DocumentService{db: db, repoFactory: repoFactory}
}

// BatchWrite upserts every document in one transaction.
func (s *DocumentService) BatchWrite(ctx context.Context, userID string, docs []models.Document) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repoFactory(tx)
		for i := range docs {
			docs[i].UserID = userID
			if err := repo.Upsert(ctx, &docs[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// QueryRecent returns the user's most recently synced documents in a
// collection, newest first.
func (s *DocumentService) QueryRecent(ctx context.Context, userID, collection string, limit int, after *time.Time) ([]models.Document, error) {
	return s.repoFactory(s.db).SelectRecent(ctx, userID, collection, limit, after)
}

// DeleteCollection removes every document of the user in the collection.
func (s *DocumentService) DeleteCollection(ctx context.Context, userID, collection string) error {
	return s.repoFactory(s.db).DeleteCollection(ctx, userID, collection)
}

// DeleteAll removes every document of the user.
func (s *DocumentService) DeleteAll(ctx context.Context, userID string) error {
	return s.repoFactory(s.db).DeleteAll(ctx, userID)
}
