package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/idman/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db      *sql.DB
	tx      *sql.Tx
	timeout time.Duration
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
// timeoutが正の場合、各ストア操作にデッドラインを適用する。
func NewPostgresProfileRepo(db *sql.DB, timeout time.Duration) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db, timeout: timeout}
}

func (r *PostgresProfileRepo) q() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// opCtx は設定されたストアタイムアウトを適用したコンテキストを返す。
func (r *PostgresProfileRepo) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return storeCtx(ctx, r.timeout)
}

// InTx はfnを単一トランザクション内で実行する。
// プロフィール書き込みは行単位の分離で十分なため、デフォルト分離レベルを使用する。
// (account_id, name)の一意性はDB制約が最終防衛線となる。
func (r *PostgresProfileRepo) InTx(ctx context.Context, fn func(ProfileRepository) error) error {
	if r.tx != nil {
		return fn(r)
	}

	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return translateStoreError(fmt.Errorf("failed to begin transaction: %w", err), nil)
	}
	defer tx.Rollback()

	if err := fn(&PostgresProfileRepo{db: r.db, tx: tx, timeout: r.timeout}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return translateStoreError(fmt.Errorf("failed to commit transaction: %w", err), nil)
	}

	return nil
}

// FindByID は指定アカウント配下の指定IDのプロフィールを取得する。
// 所有アカウントが一致しない場合もnilを返す（所有権は常に検証する）。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, profileID, accountID string) (*model.Profile, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	profile := &model.Profile{}

	err := r.q().QueryRowContext(ctx,
		`SELECT id, account_id, name, is_kids, avatar, language, maturity_level, preferences, created_at, updated_at
		 FROM profiles WHERE id = $1 AND account_id = $2`,
		profileID, accountID,
	).Scan(&profile.ID, &profile.AccountID, &profile.Name, &profile.IsKids,
		&profile.Avatar, &profile.Language, &profile.MaturityLevel,
		&profile.Preferences, &profile.CreatedAt, &profile.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, translateStoreError(fmt.Errorf("failed to find profile by ID: %w", err), nil)
	}

	return profile, nil
}

// FindIDByName は指定アカウント配下で指定名を持つプロフィールのIDを返す。
// 該当プロフィールがない場合は空文字列を返す。
func (r *PostgresProfileRepo) FindIDByName(ctx context.Context, accountID, name string) (string, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	var id string
	err := r.q().QueryRowContext(ctx,
		`SELECT id FROM profiles WHERE account_id = $1 AND name = $2`,
		accountID, name,
	).Scan(&id)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", translateStoreError(fmt.Errorf("failed to find profile by name: %w", err), nil)
	}

	return id, nil
}

// CountByAccount は指定アカウント配下のプロフィール数を返す。
func (r *PostgresProfileRepo) CountByAccount(ctx context.Context, accountID string) (int, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	var count int
	err := r.q().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM profiles WHERE account_id = $1`,
		accountID,
	).Scan(&count)
	if err != nil {
		return 0, translateStoreError(fmt.Errorf("failed to count profiles: %w", err), nil)
	}

	return count, nil
}

// Insert はプロフィールを新規作成する。
// (account_id, name)の一意性制約に違反した場合はPROFILE_NAME_EXISTSを返す。
func (r *PostgresProfileRepo) Insert(ctx context.Context, profile *model.Profile) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	_, err := r.q().ExecContext(ctx,
		`INSERT INTO profiles (id, account_id, name, is_kids, avatar, language, maturity_level, preferences, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		profile.ID, profile.AccountID, profile.Name, profile.IsKids,
		profile.Avatar, profile.Language, profile.MaturityLevel,
		[]byte(profile.Preferences), profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return translateStoreError(
			fmt.Errorf("failed to insert profile: %w", err),
			model.NewProfileNameExistsError(profile.Name),
		)
	}

	return nil
}

// Update はプロフィールを上書き更新する。
// (account_id, name)の一意性制約に違反した場合はPROFILE_NAME_EXISTSを返す。
func (r *PostgresProfileRepo) Update(ctx context.Context, profile *model.Profile) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	result, err := r.q().ExecContext(ctx,
		`UPDATE profiles
		 SET name = $1, is_kids = $2, avatar = $3, language = $4, maturity_level = $5, preferences = $6, updated_at = now()
		 WHERE id = $7 AND account_id = $8`,
		profile.Name, profile.IsKids, profile.Avatar, profile.Language,
		profile.MaturityLevel, []byte(profile.Preferences),
		profile.ID, profile.AccountID,
	)
	if err != nil {
		return translateStoreError(
			fmt.Errorf("failed to update profile: %w", err),
			model.NewProfileNameExistsError(profile.Name),
		)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewProfileNotFoundError(profile.ID)
	}

	return nil
}

// Delete は指定アカウント配下の指定IDのプロフィールを削除する。
// 削除対象が存在しない場合はfalseを返す。
func (r *PostgresProfileRepo) Delete(ctx context.Context, profileID, accountID string) (bool, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	result, err := r.q().ExecContext(ctx,
		`DELETE FROM profiles WHERE id = $1 AND account_id = $2`,
		profileID, accountID,
	)
	if err != nil {
		return false, translateStoreError(fmt.Errorf("failed to delete profile: %w", err), nil)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// ListByAccount は指定アカウント配下の全プロフィールを作成順で返す。
func (r *PostgresProfileRepo) ListByAccount(ctx context.Context, accountID string) ([]*model.Profile, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	rows, err := r.q().QueryContext(ctx,
		`SELECT id, account_id, name, is_kids, avatar, language, maturity_level, preferences, created_at, updated_at
		 FROM profiles WHERE account_id = $1 ORDER BY created_at ASC`,
		accountID,
	)
	if err != nil {
		return nil, translateStoreError(fmt.Errorf("failed to list profiles: %w", err), nil)
	}
	defer rows.Close()

	var profiles []*model.Profile
	for rows.Next() {
		profile := &model.Profile{}
		if err := rows.Scan(&profile.ID, &profile.AccountID, &profile.Name, &profile.IsKids,
			&profile.Avatar, &profile.Language, &profile.MaturityLevel,
			&profile.Preferences, &profile.CreatedAt, &profile.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, translateStoreError(fmt.Errorf("failed to iterate profiles: %w", err), nil)
	}

	return profiles, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
