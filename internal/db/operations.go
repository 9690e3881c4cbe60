package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var (
	Jobs     = &JobOperations{}
	Settings = &SettingOperations{}
)

type JobOperations struct{}

func (o *JobOperations) Insert(ctx context.Context, r *PrintRecord) error {
	_, err := GetDB().ExecContext(ctx, InsertPrintRecord,
		r.ID, r.Cookie, r.DeviceName, r.SourceName,
		r.ExpectedPages, r.RenderedPages, r.Success, r.ErrorMessage,
		r.StartedAt, r.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to insert print record: %w", err)
	}
	return nil
}

func (o *JobOperations) GetByID(ctx context.Context, id string) (*PrintRecord, error) {
	r := &PrintRecord{}
	err := GetDB().QueryRowContext(ctx, GetPrintRecordByID, id).Scan(
		&r.ID, &r.Cookie, &r.DeviceName, &r.SourceName,
		&r.ExpectedPages, &r.RenderedPages, &r.Success, &r.ErrorMessage,
		&r.StartedAt, &r.FinishedAt, &r.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get print record: %w", err)
	}
	return r, nil
}

func (o *JobOperations) List(ctx context.Context, limit, offset int) ([]*PrintRecord, error) {
	rows, err := GetDB().QueryContext(ctx, ListPrintRecords, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list print records: %w", err)
	}
	defer rows.Close()

	var records []*PrintRecord
	for rows.Next() {
		r := &PrintRecord{}
		if err := rows.Scan(
			&r.ID, &r.Cookie, &r.DeviceName, &r.SourceName,
			&r.ExpectedPages, &r.RenderedPages, &r.Success, &r.ErrorMessage,
			&r.StartedAt, &r.FinishedAt, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan print record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (o *JobOperations) Stats(ctx context.Context) (*HistoryStats, error) {
	stats := &HistoryStats{}
	if err := GetDB().QueryRowContext(ctx, CountPrintRecords).Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("failed to count print records: %w", err)
	}
	if err := GetDB().QueryRowContext(ctx, CountPrintRecordsBySuccess, true).Scan(&stats.Succeeded); err != nil {
		return nil, fmt.Errorf("failed to count succeeded records: %w", err)
	}
	stats.Failed = stats.Total - stats.Succeeded
	return stats, nil
}

func (o *JobOperations) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := GetDB().ExecContext(ctx, DeletePrintRecordsBefore, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune print records: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected, nil
}

type SettingOperations struct{}

func (o *SettingOperations) Get(ctx context.Context, key string) (*Setting, error) {
	s := &Setting{}
	err := GetDB().QueryRowContext(ctx, GetSettingByKey, key).Scan(&s.Key, &s.Value, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return s, nil
}

func (o *SettingOperations) Set(ctx context.Context, key, value string) error {
	_, err := GetDB().ExecContext(ctx, UpsertSetting, key, value)
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}
