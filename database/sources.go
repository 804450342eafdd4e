package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
	kgsql "github.com/siherrmann/kgraph/sql"
)

// SourcesDBHandlerFunctions defines the interface for sources database operations.
type SourcesDBHandlerFunctions interface {
	InsertSource(source *model.Source) error
	SelectSource(id uuid.UUID) (*model.Source, error)
	SelectSourcesByStatus(status model.ExtractionStatus, limit int, offset int) ([]*model.Source, error)
	UpdateSourceStatus(id uuid.UUID, status model.ExtractionStatus, progress model.Metadata, extractionError *string) (*model.Source, error)
	DeleteSource(id uuid.UUID) (bool, error)
}

// SourcesDBHandler handles source-related database operations
type SourcesDBHandler struct {
	db *helper.Database
}

// NewSourcesDBHandler creates a new sources database handler.
// It initializes the database connection and loads source-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewSourcesDBHandler(db *helper.Database, force bool) (*SourcesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	sourcesDbHandler := &SourcesDBHandler{
		db: db,
	}

	err := kgsql.LoadSourcesSql(sourcesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load sources sql", err)
	}

	err = sourcesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized SourcesDBHandler")

	return sourcesDbHandler, nil
}

// CreateTable creates the 'sources' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *SourcesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_sources();`)
	if err != nil {
		log.Panicf("error initializing sources table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table sources")

	return nil
}

// InsertSource inserts a new source with status PENDING
func (h *SourcesDBHandler) InsertSource(source *model.Source) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_source($1, $2)`,
		source.Name,
		source.Content,
	)

	err := scanSource(row.Scan, source)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectSource retrieves a source by ID
func (h *SourcesDBHandler) SelectSource(id uuid.UUID) (*model.Source, error) {
	source := &model.Source{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_source($1)`,
		id,
	)

	err := scanSource(row.Scan, source)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return source, nil
}

// SelectSourcesByStatus retrieves sources by extraction status,
// newest first
func (h *SourcesDBHandler) SelectSourcesByStatus(status model.ExtractionStatus, limit int, offset int) ([]*model.Source, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_sources_by_status($1, $2, $3)`,
		string(status),
		limit,
		offset,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var sources []*model.Source
	for rows.Next() {
		source := &model.Source{}
		err := scanSource(rows.Scan, source)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		sources = append(sources, source)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return sources, nil
}

// UpdateSourceStatus updates the extraction status of a source.
// Progress and error are only overwritten when non-nil; processed_at
// is set by the database when the status becomes COMPLETED.
func (h *SourcesDBHandler) UpdateSourceStatus(id uuid.UUID, status model.ExtractionStatus, progress model.Metadata, extractionError *string) (*model.Source, error) {
	var progressArg any
	if progress != nil {
		progressArg = progress
	}
	var errorArg any
	if extractionError != nil {
		errorArg = *extractionError
	}

	source := &model.Source{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM update_source_status($1, $2, $3, $4)`,
		id,
		string(status),
		progressArg,
		errorArg,
	)

	err := scanSource(row.Scan, source)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return source, nil
}

// DeleteSource deletes a source by ID
func (h *SourcesDBHandler) DeleteSource(id uuid.UUID) (bool, error) {
	var deleted bool
	err := h.db.Instance.QueryRow(
		`SELECT delete_source($1)`,
		id,
	).Scan(&deleted)
	if err != nil {
		return false, helper.NewError("scan", err)
	}
	return deleted, nil
}

// scanSource scans a sources row into source, converting nullable
// columns.
func scanSource(scan func(dest ...any) error, source *model.Source) error {
	var extractionError sql.NullString
	var processedAt sql.NullTime

	err := scan(
		&source.ID,
		&source.Name,
		&source.Content,
		&source.ExtractionStatus,
		&source.ExtractionProgress,
		&extractionError,
		&source.UploadedAt,
		&processedAt,
	)
	if err != nil {
		return err
	}

	if extractionError.Valid {
		source.ExtractionError = &extractionError.String
	}
	if processedAt.Valid {
		source.ProcessedAt = &processedAt.Time
	}
	return nil
}
