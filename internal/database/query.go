package database

import (
	"database/sql"
	"time"
)

// GetRecentRemovals returns the N most recent removal events
func (d *RemovalDB) GetRecentRemovals(limit int) ([]RemovalRecord, error) {
	query := `
	SELECT id, timestamp, action, path, dir_name, depth, root, error_message
	FROM removals
	ORDER BY timestamp DESC
	LIMIT ?
	`

	return d.queryRemovals(query, limit)
}

// GetRemovalsByDateRange returns removals within a time range
func (d *RemovalDB) GetRemovalsByDateRange(start, end time.Time) ([]RemovalRecord, error) {
	query := `
	SELECT id, timestamp, action, path, dir_name, depth, root, error_message
	FROM removals
	WHERE timestamp BETWEEN ? AND ?
	ORDER BY timestamp DESC
	`

	return d.queryRemovals(query, start, end)
}

// GetRemovalsByAction returns records filtered by action type
func (d *RemovalDB) GetRemovalsByAction(action string) ([]RemovalRecord, error) {
	query := `
	SELECT id, timestamp, action, path, dir_name, depth, root, error_message
	FROM removals
	WHERE action = ?
	ORDER BY timestamp DESC
	`

	return d.queryRemovals(query, action)
}

// GetRemovalsByPath returns removals matching a path pattern
func (d *RemovalDB) GetRemovalsByPath(pathPattern string) ([]RemovalRecord, error) {
	query := `
	SELECT id, timestamp, action, path, dir_name, depth, root, error_message
	FROM removals
	WHERE path LIKE ?
	ORDER BY timestamp DESC
	`

	return d.queryRemovals(query, pathPattern)
}

// GetDeepestRemovals returns the N deepest removed directories
func (d *RemovalDB) GetDeepestRemovals(limit int) ([]RemovalRecord, error) {
	query := `
	SELECT id, timestamp, action, path, dir_name, depth, root, error_message
	FROM removals
	WHERE action = 'REMOVE'
	ORDER BY depth DESC
	LIMIT ?
	`

	return d.queryRemovals(query, limit)
}

// GetRemovalCountByAction returns count of operations grouped by action
func (d *RemovalDB) GetRemovalCountByAction() (map[string]int, error) {
	query := `
	SELECT action, COUNT(*)
	FROM removals
	GROUP BY action
	`

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, err
		}
		counts[action] = count
	}

	return counts, rows.Err()
}

// GetRemovalCountByRoot returns count of real removals grouped by scan root
func (d *RemovalDB) GetRemovalCountByRoot() (map[string]int, error) {
	query := `
	SELECT root, COUNT(*)
	FROM removals
	WHERE action = 'REMOVE'
	GROUP BY root
	`

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var root string
		var count int
		if err := rows.Scan(&root, &count); err != nil {
			return nil, err
		}
		counts[root] = count
	}

	return counts, rows.Err()
}

// RemovalStats holds aggregated statistics
type RemovalStats struct {
	TotalRemoved int
	TotalDryRun  int
	TotalSkipped int
	TotalErrors  int
	ByAction     map[string]int
	ByRoot       map[string]int
	StartDate    time.Time
	EndDate      time.Time
}

// GetRemovalStats returns comprehensive statistics for a time period
func (d *RemovalDB) GetRemovalStats(days int) (*RemovalStats, error) {
	since := time.Now().AddDate(0, 0, -days)
	now := time.Now()

	stats := &RemovalStats{
		StartDate: since,
		EndDate:   now,
	}

	err := d.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN action = 'REMOVE' THEN 1 END),
			COUNT(CASE WHEN action = 'DRY_RUN' THEN 1 END),
			COUNT(CASE WHEN action = 'SKIP' THEN 1 END),
			COUNT(CASE WHEN action = 'ERROR' THEN 1 END)
		FROM removals
		WHERE timestamp >= ?
	`, since).Scan(&stats.TotalRemoved, &stats.TotalDryRun, &stats.TotalSkipped, &stats.TotalErrors)
	if err != nil {
		return nil, err
	}

	stats.ByAction, err = d.GetRemovalCountByAction()
	if err != nil {
		return nil, err
	}

	stats.ByRoot, err = d.GetRemovalCountByRoot()
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// DeleteOldRecords removes records older than specified days (for history pruning)
func (d *RemovalDB) DeleteOldRecords(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	result, err := d.db.Exec(`
		DELETE FROM removals WHERE timestamp < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// queryRemovals is a helper function to execute queries and scan results
func (d *RemovalDB) queryRemovals(query string, args ...interface{}) ([]RemovalRecord, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RemovalRecord
	for rows.Next() {
		var r RemovalRecord
		var errMsg sql.NullString

		err := rows.Scan(
			&r.ID, &r.Timestamp, &r.Action, &r.Path, &r.DirName,
			&r.Depth, &r.Root, &errMsg,
		)
		if err != nil {
			return nil, err
		}

		if errMsg.Valid {
			r.ErrorMessage = errMsg.String
		}

		records = append(records, r)
	}

	return records, rows.Err()
}
