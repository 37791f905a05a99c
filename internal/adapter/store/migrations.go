package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"docintel/internal/domain"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion = []byte("schema_version")
	keyDimension     = []byte("dimension")
)

// SchemaInfo describes what a store file was created with.
type SchemaInfo struct {
	Backend   string `json:"backend"`
	Version   int    `json:"version"`
	Dimension int    `json:"dimension"`
}

// MigrationResult describes the result of a migration check.
type MigrationResult struct {
	NeedsMigration bool
	OldVersion     int
	NewVersion     int
	Reason         string
}

// SchemaInfo retrieves the stored schema info.
func (s *BoltStore) SchemaInfo(ctx context.Context) (SchemaInfo, error) {
	info := SchemaInfo{Backend: "bolt"}
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if data := b.Get(keySchemaVersion); data != nil {
			if err := json.Unmarshal(data, &info.Version); err != nil {
				return fmt.Errorf("corrupt schema version: %w", err)
			}
		}
		if data := b.Get(keyDimension); data != nil {
			if err := json.Unmarshal(data, &info.Dimension); err != nil {
				return fmt.Errorf("corrupt dimension: %w", err)
			}
		}
		return nil
	})
	return info, err
}

func (s *BoltStore) setSchemaInfo(info SchemaInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)

		versionData, err := json.Marshal(info.Version)
		if err != nil {
			return err
		}
		if err := b.Put(keySchemaVersion, versionData); err != nil {
			return err
		}

		dimData, err := json.Marshal(info.Dimension)
		if err != nil {
			return err
		}
		return b.Put(keyDimension, dimData)
	})
}

// CheckMigration reports whether the file needs upgrading. A file written
// with a different vector dimension that still holds embeddings cannot be
// opened at all.
func (s *BoltStore) CheckMigration() (*MigrationResult, error) {
	info, err := s.SchemaInfo(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get schema info: %w", err)
	}

	result := &MigrationResult{
		OldVersion: info.Version,
		NewVersion: CurrentSchemaVersion,
	}

	switch {
	case info.Version == 0:
		result.NeedsMigration = true
		result.Reason = "initializing schema version"
	case info.Version < CurrentSchemaVersion:
		result.NeedsMigration = true
		result.Reason = fmt.Sprintf("schema upgrade from v%d to v%d", info.Version, CurrentSchemaVersion)
	case info.Version > CurrentSchemaVersion:
		return nil, fmt.Errorf("%w: store created by newer version (v%d > v%d)",
			domain.ErrPersistence, info.Version, CurrentSchemaVersion)
	}

	if info.Dimension != 0 && info.Dimension != s.dimension {
		var count int
		err := s.db.View(func(tx *bbolt.Tx) error {
			count = countKeys(tx.Bucket(bucketEmbeddings))
			return nil
		})
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, fmt.Errorf("%w: store holds %d-dimensional embeddings, configured dimension is %d",
				domain.ErrDimensionMismatch, info.Dimension, s.dimension)
		}
		result.NeedsMigration = true
		result.Reason = "vector dimension changed on empty store"
	}

	return result, nil
}

// Migrate performs any necessary schema migrations.
func (s *BoltStore) Migrate() error {
	result, err := s.CheckMigration()
	if err != nil {
		return err
	}
	if !result.NeedsMigration {
		return nil
	}

	for v := result.OldVersion; v < CurrentSchemaVersion; v++ {
		if err := s.runMigration(v, v+1); err != nil {
			return fmt.Errorf("%w: migration from v%d to v%d failed: %w", domain.ErrPersistence, v, v+1, err)
		}
	}

	return s.setSchemaInfo(SchemaInfo{Version: CurrentSchemaVersion, Dimension: s.dimension})
}

// runMigration runs a specific version migration.
func (s *BoltStore) runMigration(from, to int) error {
	switch {
	case from == 0 && to == 1:
		// buckets are created on open
		return nil
	default:
		return nil
	}
}
