package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/isuryanarayanan/observable-services/internal/account/domain"
	"github.com/isuryanarayanan/observable-services/internal/account/store"
)

type otpsRepo struct {
	db dbtx
}

const otpColumns = `id, user_id, purpose, status, code, ghost_code, created_at, expires_at, expiry_window_seconds`

func scanOTP(scan func(dest ...any) error) (domain.OneTimePassword, error) {
	var o domain.OneTimePassword
	var windowSeconds int64
	err := scan(&o.ID, &o.UserID, &o.Purpose, &o.Status, &o.Code, &o.GhostCode,
		&o.CreatedAt, &o.ExpiresAt, &windowSeconds)
	if err != nil {
		return domain.OneTimePassword{}, err
	}
	o.ExpiryWindow = time.Duration(windowSeconds) * time.Second
	return o, nil
}

func (r *otpsRepo) CreateOTP(ctx context.Context, o domain.OneTimePassword) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO one_time_passwords
		   (id, user_id, purpose, status, code, ghost_code, created_at, expires_at, expiry_window_seconds)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, string(o.Purpose), string(o.Status), o.Code, o.GhostCode,
		o.CreatedAt, o.ExpiresAt, int64(o.ExpiryWindow/time.Second))
	return mapConstraint(err)
}

func (r *otpsRepo) GetOTPByID(ctx context.Context, id string) (domain.OneTimePassword, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+otpColumns+` FROM one_time_passwords WHERE id = ?`, id)
	o, err := scanOTP(row.Scan)
	if err != nil {
		return domain.OneTimePassword{}, mapNotFound(err)
	}
	return o, nil
}

func (r *otpsRepo) ListOTPsByStatus(ctx context.Context, userID string, purpose domain.Purpose, status domain.Status) ([]domain.OneTimePassword, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+otpColumns+` FROM one_time_passwords
		 WHERE user_id = ? AND purpose = ? AND status = ?
		 ORDER BY created_at ASC, id ASC`,
		userID, string(purpose), string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.OneTimePassword
	for rows.Next() {
		o, err := scanOTP(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *otpsRepo) UpdateOTPStatus(ctx context.Context, id string, status domain.Status) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE one_time_passwords SET status = ? WHERE id = ?`,
		string(status), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *otpsRepo) MarkOTPDelivered(ctx context.Context, id string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE one_time_passwords SET status = ?, expires_at = ? WHERE id = ?`,
		string(domain.StatusDelivered), expiresAt, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *otpsRepo) CountOTPs(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM one_time_passwords`).Scan(&n)
	return n, err
}

// requireRow maps zero-row updates to store.ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
