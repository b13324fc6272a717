package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fitsearch/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PostgresRepository is the catalogue backed by the installations table
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	// Disable prepared statement caching to avoid "unnamed prepared statement does not exist" errors
	if !strings.Contains(dsn, "?") {
		dsn += "?prefer_simple_protocol=true"
	} else {
		dsn += "&prefer_simple_protocol=true"
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Search runs a filtered, ordered page of the catalogue and the total match count
func (r *PostgresRepository) Search(ctx context.Context, q Query) ([]model.Installation, int, error) {
	countQuery, countArgs, selectQuery, selectArgs := buildSearchQuery(q)

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count results: %w", err)
	}

	var installations []model.Installation
	if err := r.db.SelectContext(ctx, &installations, selectQuery, selectArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to fetch installations: %w", err)
	}

	return installations, total, nil
}

// Aggregate computes count and capacity totals over every matching row
func (r *PostgresRepository) Aggregate(ctx context.Context, filter *model.FilterSpec) (*model.AggregateResult, error) {
	query, args := buildAggregateQuery(filter)
	result := &model.AggregateResult{}

	if filter != nil && len(filter.CompareTechnologies) > 0 {
		var rows []struct {
			Technology model.Technology `db:"technology"`
			model.GroupStat
		}
		if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, fmt.Errorf("failed to aggregate installations: %w", err)
		}
		result.ByTechnology = make(map[model.Technology]model.GroupStat, len(filter.CompareTechnologies))
		for _, t := range filter.CompareTechnologies {
			result.ByTechnology[t] = model.GroupStat{}
		}
		for _, row := range rows {
			result.ByTechnology[row.Technology] = row.GroupStat
			result.Count += row.Count
			result.TotalCapacityKW += row.TotalCapacityKW
		}
	} else {
		var stat model.GroupStat
		if err := r.db.GetContext(ctx, &stat, query, args...); err != nil {
			return nil, fmt.Errorf("failed to aggregate installations: %w", err)
		}
		result.Count = stat.Count
		result.TotalCapacityKW = stat.TotalCapacityKW
	}

	if result.Count > 0 {
		result.AverageCapacityKW = result.TotalCapacityKW / float64(result.Count)
	}
	return result, nil
}

// GetInstallation retrieves a single installation by its identifier
func (r *PostgresRepository) GetInstallation(ctx context.Context, installationID string) (*model.Installation, error) {
	var installation model.Installation
	query := fmt.Sprintf(`
		SELECT %s
		FROM installations
		WHERE installation_id = $1
	`, installationColumns)
	err := r.db.GetContext(ctx, &installation, query, installationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get installation: %w", err)
	}
	return &installation, nil
}

// BatchUpdateEmbeddings updates embeddings for multiple installations in one transaction
func (r *PostgresRepository) BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	success := 0
	var errors []string

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		errors = append(errors, fmt.Sprintf("failed to start transaction: %v", err))
		return success, errors
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `UPDATE installations SET embedding = $1, updated_at = NOW() WHERE installation_id = $2`)
	if err != nil {
		errors = append(errors, fmt.Sprintf("failed to prepare statement: %v", err))
		return success, errors
	}
	defer stmt.Close()

	for _, item := range items {
		vec := pgvector.NewVector(item.Embedding)
		res, err := stmt.ExecContext(ctx, vec, item.InstallationID)
		if err != nil {
			errors = append(errors, fmt.Sprintf("installation_id %s: %v", item.InstallationID, err))
			continue
		}
		if n, _ := res.RowsAffected(); n == 0 {
			errors = append(errors, fmt.Sprintf("installation_id %s: not found", item.InstallationID))
			continue
		}
		success++
	}

	if err := tx.Commit(); err != nil {
		errors = append(errors, fmt.Sprintf("failed to commit transaction: %v", err))
		return 0, errors
	}

	return success, errors
}

// LogSearch records a resolved search in search_logs
func (r *PostgresRepository) LogSearch(ctx context.Context, entry SearchLog) error {
	filterJSON, err := json.Marshal(entry.Filter)
	if err != nil {
		return fmt.Errorf("failed to encode filter: %w", err)
	}
	logQuery := `
		INSERT INTO search_logs (search_id, session_id, query, intent, filter, result_count, returned_installation_ids, response_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(ctx, logQuery,
		entry.SearchID,
		entry.SessionID,
		entry.Query,
		string(entry.Intent.Kind),
		filterJSON,
		entry.ResultCount,
		pq.Array(entry.InstallationIDs),
		entry.ResponseTimeMs,
	)
	if err != nil {
		return fmt.Errorf("failed to log search: %w", err)
	}
	return nil
}

// LogFeedback logs user feedback/action
func (r *PostgresRepository) LogFeedback(ctx context.Context, searchID, installationID, action string) error {
	query := `
		UPDATE search_logs
		SET clicked_installation_id = $2, action = $3
		WHERE search_id = $1
	`
	_, err := r.db.ExecContext(ctx, query, searchID, installationID, action)
	if err != nil {
		return fmt.Errorf("failed to log feedback: %w", err)
	}
	return nil
}
