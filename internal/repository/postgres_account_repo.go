package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/idman/internal/model"
)

// identifierColumns は識別子種別とaccountsテーブルの列名の対応。
// 種別はmodel.IdentifierKinds()で閉じているため、列名をSQLに埋め込んでも
// 外部入力が混入することはない。
var identifierColumns = map[model.IdentifierKind]string{
	model.KindEmail:    "email",
	model.KindPhone:    "phone_number",
	model.KindUsername: "username",
	model.KindGoogleID: "google_id",
	model.KindAppleID:  "apple_id",
}

// queryer は*sql.DBと*sql.Txの共通部分。
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
// txが設定されている場合、全操作はそのトランザクション上で実行される。
type PostgresAccountRepo struct {
	db      *sql.DB
	tx      *sql.Tx
	timeout time.Duration
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
// timeoutが正の場合、各ストア操作にデッドラインを適用する。
// デッドライン超過はSTORAGE_UNAVAILABLEとして呼び出し側に伝わる。
func NewPostgresAccountRepo(db *sql.DB, timeout time.Duration) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db, timeout: timeout}
}

// q は現在の実行コンテキスト（トランザクションまたはプール）を返す。
func (r *PostgresAccountRepo) q() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// opCtx は設定されたストアタイムアウトを適用したコンテキストを返す。
func (r *PostgresAccountRepo) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return storeCtx(ctx, r.timeout)
}

// InTx はfnをシリアライザブル分離レベルの単一トランザクション内で実行する。
// 解決→判定→書き込みを1つの原子的な単位にするための中心的な仕組み。
// タイムアウトはトランザクション全体に対して1回だけ適用する。
func (r *PostgresAccountRepo) InTx(ctx context.Context, fn func(AccountRepository) error) error {
	if r.tx != nil {
		return fn(r)
	}

	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return translateStoreError(fmt.Errorf("failed to begin transaction: %w", err), nil)
	}
	defer tx.Rollback()

	if err := fn(&PostgresAccountRepo{db: r.db, tx: tx, timeout: r.timeout}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return translateStoreError(fmt.Errorf("failed to commit transaction: %w", err), nil)
	}

	return nil
}

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	account := &model.Account{Identifiers: model.Bundle{}}
	var email, phone, username, googleID, appleID sql.NullString

	err := r.q().QueryRowContext(ctx,
		`SELECT id, email, phone_number, username, google_id, apple_id, display_name, created_at, updated_at
		 FROM accounts WHERE id = $1`,
		id,
	).Scan(&account.ID, &email, &phone, &username, &googleID, &appleID,
		&account.DisplayName, &account.CreatedAt, &account.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, translateStoreError(fmt.Errorf("failed to find account by ID: %w", err), nil)
	}

	account.Identifiers.Set(model.KindEmail, email.String)
	account.Identifiers.Set(model.KindPhone, phone.String)
	account.Identifiers.Set(model.KindUsername, username.String)
	account.Identifiers.Set(model.KindGoogleID, googleID.String)
	account.Identifiers.Set(model.KindAppleID, appleID.String)

	return account, nil
}

// FindIDByIdentifier は指定種別・値の識別子を持つアカウントのIDを返す。
// 該当アカウントがない場合は空文字列を返す。完全一致のみで曖昧検索は行わない。
func (r *PostgresAccountRepo) FindIDByIdentifier(ctx context.Context, kind model.IdentifierKind, value string) (string, error) {
	column, ok := identifierColumns[kind]
	if !ok {
		return "", fmt.Errorf("unknown identifier kind: %s", kind)
	}

	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	var id string
	err := r.q().QueryRowContext(ctx,
		`SELECT id FROM accounts WHERE `+column+` = $1`,
		value,
	).Scan(&id)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", translateStoreError(fmt.Errorf("failed to find account by %s: %w", kind, err), nil)
	}

	return id, nil
}

// Insert はアカウントを新規作成する。
// 識別子の一意性制約に違反した場合はIDENTIFIER_ALREADY_CLAIMEDを返す。
func (r *PostgresAccountRepo) Insert(ctx context.Context, account *model.Account) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	_, err := r.q().ExecContext(ctx,
		`INSERT INTO accounts (id, email, phone_number, username, google_id, apple_id, display_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		account.ID,
		nullString(account.Identifiers.Get(model.KindEmail)),
		nullString(account.Identifiers.Get(model.KindPhone)),
		nullString(account.Identifiers.Get(model.KindUsername)),
		nullString(account.Identifiers.Get(model.KindGoogleID)),
		nullString(account.Identifiers.Get(model.KindAppleID)),
		account.DisplayName,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return translateStoreError(
			fmt.Errorf("failed to insert account: %w", err),
			claimedErrorForPQ(err),
		)
	}

	return nil
}

// AttachIdentifier は既存アカウントに識別子を追加する。
// 識別子の一意性制約に違反した場合はIDENTIFIER_ALREADY_CLAIMEDを返す。
func (r *PostgresAccountRepo) AttachIdentifier(ctx context.Context, accountID string, kind model.IdentifierKind, value string) error {
	column, ok := identifierColumns[kind]
	if !ok {
		return fmt.Errorf("unknown identifier kind: %s", kind)
	}

	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	result, err := r.q().ExecContext(ctx,
		`UPDATE accounts SET `+column+` = $1, updated_at = now() WHERE id = $2`,
		value, accountID,
	)
	if err != nil {
		return translateStoreError(
			fmt.Errorf("failed to attach %s: %w", kind, err),
			model.NewIdentifierClaimedError(kind),
		)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewAccountNotFoundError(accountID)
	}

	return nil
}

// UpdateDisplayName はアカウントの表示名を更新する。
func (r *PostgresAccountRepo) UpdateDisplayName(ctx context.Context, accountID, displayName string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	result, err := r.q().ExecContext(ctx,
		`UPDATE accounts SET display_name = $1, updated_at = now() WHERE id = $2`,
		displayName, accountID,
	)
	if err != nil {
		return translateStoreError(fmt.Errorf("failed to update display name: %w", err), nil)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewAccountNotFoundError(accountID)
	}

	return nil
}

// nullString は空文字列をNULLとして扱うsql.NullStringを返す。
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// claimedErrorForPQ はpqエラーの制約名から違反種別付きのエラーを生成する。
func claimedErrorForPQ(err error) *model.APIError {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Constraint != "" {
		return claimedErrorForConstraint(pqErr.Constraint)
	}
	return claimedErrorForConstraint("")
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
