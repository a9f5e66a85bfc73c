// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Observation is one (child, year, subscale) cell of the harmonized panel.
type Observation struct {
	ChildID  int64
	Year     int64
	Subscale string
	Age      sql.NullInt64
	NLSY     sql.NullFloat64
	CHS      sql.NullFloat64
}

// ReplaceObservations swaps the stored panel for the given observations in
// one transaction. A failed replace leaves the previous panel intact.
func (s *Store) ReplaceObservations(ctx context.Context, obs []Observation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM observations`); err != nil {
		return fmt.Errorf("store: clear observations: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations (childid, year, subscale, age, nlsy_score, chs_score)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range obs {
		if _, err := stmt.ExecContext(ctx, o.ChildID, o.Year, o.Subscale, o.Age, o.NLSY, o.CHS); err != nil {
			return fmt.Errorf("store: insert observation (childid=%d, year=%d, subscale=%s): %w",
				o.ChildID, o.Year, o.Subscale, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit replace: %w", err)
	}
	return nil
}

// ObservationCount returns the number of stored panel cells.
func (s *Store) ObservationCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM observations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count observations: %w", err)
	}
	return n, nil
}

// SubscaleSummary aggregates one subscale across the stored panel. Counts
// and means cover non-missing scores on each side.
type SubscaleSummary struct {
	Subscale string  `json:"subscale"`
	NLSYN    int     `json:"nlsy_n"`
	CHSN     int     `json:"chs_n"`
	NLSYMean float64 `json:"nlsy_mean"`
	CHSMean  float64 `json:"chs_mean"`
}

// Summary returns per-subscale counts and means over non-missing scores.
func (s *Store) Summary(ctx context.Context) ([]SubscaleSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subscale,
		       COUNT(nlsy_score),
		       COUNT(chs_score),
		       COALESCE(AVG(nlsy_score), 0),
		       COALESCE(AVG(chs_score), 0)
		FROM observations
		GROUP BY subscale
		ORDER BY subscale`)
	if err != nil {
		return nil, fmt.Errorf("store: summary: %w", err)
	}
	defer rows.Close()

	var out []SubscaleSummary
	for rows.Next() {
		var s SubscaleSummary
		if err := rows.Scan(&s.Subscale, &s.NLSYN, &s.CHSN, &s.NLSYMean, &s.CHSMean); err != nil {
			return nil, fmt.Errorf("store: summary: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: summary: %w", err)
	}
	return out, nil
}
