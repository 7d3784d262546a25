package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quiz-engine/internal/domain"
)

// Document names shared by every DocumentStore backend.
const (
	ProgressDocument     = "playerProgress.json"
	LeaderboardDocument  = "leaderboard.json"
	AchievementsDocument = "achievements.json"
)

// DocumentStore abstracts where persisted JSON documents live (files, Redis, memory).
// Load returns domain.ErrDocumentNotFound for a document that was never saved.
// Save must replace the document atomically.
type DocumentStore interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
}

// loadDocument decodes and validates a document. Every failure other than a
// missing document is reported as domain.ErrPersistenceUnavailable.
func loadDocument(ctx context.Context, docs DocumentStore, name string, v any) error {
	raw, err := docs.Load(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return err
		}
		return fmt.Errorf("%w: load %s: %v", domain.ErrPersistenceUnavailable, name, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrPersistenceUnavailable, name, err)
	}
	if err := domain.ValidateStruct(v); err != nil {
		return fmt.Errorf("%w: validate %s: %v", domain.ErrPersistenceUnavailable, name, err)
	}
	return nil
}

func saveDocument(ctx context.Context, docs DocumentStore, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", domain.ErrPersistenceUnavailable, name, err)
	}
	if err := docs.Save(ctx, name, data); err != nil {
		return fmt.Errorf("%w: save %s: %v", domain.ErrPersistenceUnavailable, name, err)
	}
	return nil
}
