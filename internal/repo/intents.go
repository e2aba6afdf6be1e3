package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"promptboard/internal/domain"
)

func (r Repo) InsertIntentTx(ctx context.Context, tx *sql.Tx, rec domain.IntentRecord) error {
	plan, err := json.Marshal(rec.Plan)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO intent_history(id, owner, prompt, plan_json, processing_method, applied, created_at)
VALUES (?,?,?,?,?,?,?)`,
		rec.ID, rec.Owner, rec.Prompt, string(plan), rec.ProcessingMethod, rec.Applied, rec.CreatedAt)
	return err
}

func scanIntent(row rowScanner) (domain.IntentRecord, error) {
	var rec domain.IntentRecord
	var planJSON string
	err := row.Scan(&rec.ID, &rec.Owner, &rec.Prompt, &planJSON, &rec.ProcessingMethod, &rec.Applied, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal([]byte(planJSON), &rec.Plan); err != nil {
		return rec, fmt.Errorf("intent %s: decode plan: %w", rec.ID, err)
	}
	return rec, nil
}

// ListIntents returns the owner's interpretations newest first.
func (r Repo) ListIntents(ctx context.Context, owner string, limit int) ([]domain.IntentRecord, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, owner, prompt, plan_json, processing_method, applied, created_at
FROM intent_history WHERE owner=? ORDER BY created_at DESC, rowid DESC LIMIT ?`, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.IntentRecord{}
	for rows.Next() {
		rec, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

func (r Repo) GetIntentTx(ctx context.Context, tx *sql.Tx, owner, id string) (domain.IntentRecord, error) {
	return scanIntent(tx.QueryRowContext(ctx, `SELECT id, owner, prompt, plan_json, processing_method, applied, created_at
FROM intent_history WHERE id=? AND owner=?`, id, owner))
}

func (r Repo) DeleteIntentTx(ctx context.Context, tx *sql.Tx, owner, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM intent_history WHERE id=? AND owner=?`, id, owner)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetIntentAppliedTx(ctx context.Context, tx *sql.Tx, owner, id string, applied bool) error {
	res, err := tx.ExecContext(ctx, `UPDATE intent_history SET applied=? WHERE id=? AND owner=?`, applied, id, owner)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
