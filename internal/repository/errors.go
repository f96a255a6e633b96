package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/idman/internal/model"
)

// storeCtx はストア操作にタイムアウトを適用したコンテキストを返す。
// timeoutが0以下の場合は呼び出し元のコンテキストをそのまま使う。
func storeCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// translateStoreError はドライバレベルのエラーを型付きエラーに変換する。
// onUniqueには一意性制約違反時に返すエラーを渡す（nilの場合は変換しない）。
//
// シリアライゼーション失敗・デッドロック・接続断は一時的な障害として
// STORAGE_UNAVAILABLEに変換する。コア内部でのリトライは行わず、
// リトライ判断は呼び出し側に委ねる。
func translateStoreError(err error, onUnique *model.APIError) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			if onUnique != nil {
				return onUnique
			}
		case "serialization_failure", "deadlock_detected":
			return model.NewStorageUnavailableError()
		}
		if pqErr.Code.Class().Name() == "connection_exception" {
			return model.NewStorageUnavailableError()
		}
		return err
	}

	if errors.Is(err, driver.ErrBadConn) {
		return model.NewStorageUnavailableError()
	}
	// デッドライン超過は一時的な障害としてリトライ可能なエラーに変換する。
	// クライアント切断によるキャンセルはレスポンスが読まれないためそのまま伝播させる。
	if errors.Is(err, context.DeadlineExceeded) {
		return model.NewStorageUnavailableError()
	}

	return err
}

// claimedErrorForConstraint は一意性制約名から違反した識別子種別を特定し、
// IDENTIFIER_ALREADY_CLAIMEDエラーを生成する。
// 制約名が特定できない場合はemailを既定とせず、種別不明のまま汎用の種別で返す。
func claimedErrorForConstraint(constraint string) *model.APIError {
	for kind, column := range identifierColumns {
		if constraint == "accounts_"+column+"_key" {
			return model.NewIdentifierClaimedError(kind)
		}
	}
	// 制約名が取得できないドライバ構成でも種別なしで返せるようにする
	return &model.APIError{
		Code:     model.ErrCodeIdentifierAlreadyClaimed,
		Message:  "指定された識別子は既に別のアカウントに紐付いています。",
		Category: "identity",
		Action:   "既存アカウントでログインするか、別の識別子を使用してください。",
	}
}
