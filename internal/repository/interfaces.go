// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/idman/internal/model"
)

// AccountRepository はアカウントデータの永続化インターフェース。
//
// 解決→判定→書き込みの一連の操作はInTxで開始した単一トランザクション内で
// 実行すること。InTxのコールバックに渡されるリポジトリに対する全操作は
// 同一トランザクションに属する。
type AccountRepository interface {
	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Account, error)

	// FindIDByIdentifier は指定種別・値の識別子を持つアカウントのIDを返す。
	// 該当アカウントがない場合は空文字列を返す。
	FindIDByIdentifier(ctx context.Context, kind model.IdentifierKind, value string) (string, error)

	// Insert はアカウントを新規作成する。
	// 識別子の一意性制約に違反した場合はIDENTIFIER_ALREADY_CLAIMEDを返す。
	Insert(ctx context.Context, account *model.Account) error

	// AttachIdentifier は既存アカウントに識別子を追加する。
	// 識別子の一意性制約に違反した場合はIDENTIFIER_ALREADY_CLAIMEDを返す。
	AttachIdentifier(ctx context.Context, accountID string, kind model.IdentifierKind, value string) error

	// UpdateDisplayName はアカウントの表示名を更新する。
	UpdateDisplayName(ctx context.Context, accountID, displayName string) error

	// InTx はfnをシリアライザブル分離レベルの単一トランザクション内で実行する。
	// fnがエラーを返した場合は全ての書き込みをロールバックする。
	// 既にトランザクション内のリポジトリに対して呼んだ場合は同一トランザクションを継続する。
	InTx(ctx context.Context, fn func(AccountRepository) error) error
}

// ProfileRepository はプロフィールデータの永続化インターフェース。
type ProfileRepository interface {
	// FindByID は指定アカウント配下の指定IDのプロフィールを取得する。
	// 見つからない場合（別アカウント所有の場合を含む）はnilを返す。
	FindByID(ctx context.Context, profileID, accountID string) (*model.Profile, error)

	// FindIDByName は指定アカウント配下で指定名を持つプロフィールのIDを返す。
	// 該当プロフィールがない場合は空文字列を返す。
	FindIDByName(ctx context.Context, accountID, name string) (string, error)

	// CountByAccount は指定アカウント配下のプロフィール数を返す。
	CountByAccount(ctx context.Context, accountID string) (int, error)

	// Insert はプロフィールを新規作成する。
	// (account_id, name)の一意性制約に違反した場合はPROFILE_NAME_EXISTSを返す。
	Insert(ctx context.Context, profile *model.Profile) error

	// Update はプロフィールを上書き更新する。
	// (account_id, name)の一意性制約に違反した場合はPROFILE_NAME_EXISTSを返す。
	Update(ctx context.Context, profile *model.Profile) error

	// Delete は指定アカウント配下の指定IDのプロフィールを削除する。
	// 削除対象が存在しない場合はfalseを返す。
	Delete(ctx context.Context, profileID, accountID string) (bool, error)

	// ListByAccount は指定アカウント配下の全プロフィールを作成順で返す。
	ListByAccount(ctx context.Context, accountID string) ([]*model.Profile, error)

	// InTx はfnを単一トランザクション内で実行する。
	// プロフィール書き込みは行単位の分離で十分なため、デフォルト分離レベルを使用する。
	InTx(ctx context.Context, fn func(ProfileRepository) error) error
}
