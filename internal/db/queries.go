package db

const (
	InsertPrintRecord = `
		INSERT INTO print_history (id, cookie, device_name, source_name, expected_pages, rendered_pages, success, error_message, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	GetPrintRecordByID = `
		SELECT id, cookie, device_name, source_name, expected_pages, rendered_pages, success, error_message, started_at, finished_at, created_at
		FROM print_history WHERE id = ?`

	ListPrintRecords = `
		SELECT id, cookie, device_name, source_name, expected_pages, rendered_pages, success, error_message, started_at, finished_at, created_at
		FROM print_history
		ORDER BY finished_at DESC
		LIMIT ? OFFSET ?`

	CountPrintRecords = `SELECT COUNT(*) FROM print_history`

	CountPrintRecordsBySuccess = `SELECT COUNT(*) FROM print_history WHERE success = ?`

	DeletePrintRecordsBefore = `DELETE FROM print_history WHERE finished_at < ?`

	GetSettingByKey = `SELECT key, value, updated_at FROM settings WHERE key = ?`

	UpsertSetting = `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`
)
