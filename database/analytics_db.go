package database

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// ProgressCurvePoint is one day of the aggregated progress curve.
type ProgressCurvePoint struct {
	Date    string  `json:"date"`
	Average float64 `json:"average"`
	Samples int     `json:"samples"`
}

// StageDistributionRow is one parent stage with its latest recorded
// percentage, zero when nothing was recorded yet.
type StageDistributionRow struct {
	StageID    uint    `json:"stage_id"`
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

// InitAnalyticsDB opens a plain sql.DB handle onto the same SQLite file the
// GORM layer manages. The analytics queries are read-only aggregations and
// go through this handle instead of the ORM.
func InitAnalyticsDB(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open analytics database: %w", err)
	}

	// enable write-ahead logging for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	return db, nil
}

// GetProgressCurve returns the daily average of recorded parent-stage
// progress for one scope, ordered by date ascending.
func GetProgressCurve(db *sql.DB, siteID, projectID *uint) ([]ProgressCurvePoint, error) {
	queryBuilder := psql.Select(
		"date(sp.recorded_date) AS day",
		"AVG(sp.actual_percentage)",
		"COUNT(*)",
	).
		From("stage_progress sp").
		Join("work_stages ws ON ws.id = sp.stage_id").
		Where("ws.parent_id IS NULL").
		GroupBy("day").
		OrderBy("day ASC")
	queryBuilder = applyStageScope(queryBuilder, siteID, projectID)

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for GetProgressCurve: %w", err)
	}

	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress curve: %w", err)
	}
	defer rows.Close()

	var points []ProgressCurvePoint
	for rows.Next() {
		var point ProgressCurvePoint
		if err := rows.Scan(&point.Date, &point.Average, &point.Samples); err != nil {
			return nil, fmt.Errorf("failed to scan progress curve row: %w", err)
		}
		points = append(points, point)
	}
	return points, rows.Err()
}

// GetStageDistribution returns every parent stage in the scope with its most
// recently recorded percentage.
func GetStageDistribution(db *sql.DB, siteID, projectID *uint) ([]StageDistributionRow, error) {
	latest := `COALESCE((
		SELECT sp.actual_percentage FROM stage_progress sp
		WHERE sp.stage_id = ws.id
		ORDER BY sp.recorded_date DESC LIMIT 1
	), 0)`

	queryBuilder := psql.Select("ws.id", "ws.name", latest).
		From("work_stages ws").
		Where("ws.parent_id IS NULL").
		OrderBy("ws.display_order ASC", "ws.id ASC")
	queryBuilder = applyStageScope(queryBuilder, siteID, projectID)

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for GetStageDistribution: %w", err)
	}

	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stage distribution: %w", err)
	}
	defer rows.Close()

	var result []StageDistributionRow
	for rows.Next() {
		var row StageDistributionRow
		if err := rows.Scan(&row.StageID, &row.Name, &row.Percentage); err != nil {
			return nil, fmt.Errorf("failed to scan stage distribution row: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func applyStageScope(builder sq.SelectBuilder, siteID, projectID *uint) sq.SelectBuilder {
	switch {
	case siteID != nil:
		return builder.Where(sq.Eq{"ws.site_id": *siteID})
	case projectID != nil:
		return builder.Where(sq.Eq{"ws.project_id": *projectID})
	}
	return builder
}
