package model

import (
	"fmt"
	"sort"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// 呼び出し側が分岐できる安定したコードと、原因カテゴリ・対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: identity, profile, validation, system
	Action   string // 呼び出し側向け対処方法

	// ConflictAccountIDs はIDENTITY_CONFLICTの場合のみ設定され、
	// 衝突した全アカウントIDを昇順で保持する。
	ConflictAccountIDs []string
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidIdentifierFormat  = "INVALID_IDENTIFIER_FORMAT"
	ErrCodeNoIdentifierProvided     = "NO_IDENTIFIER_PROVIDED"
	ErrCodeIdentifierAlreadyClaimed = "IDENTIFIER_ALREADY_CLAIMED"
	ErrCodeIdentityConflict         = "IDENTITY_CONFLICT"
	ErrCodeAccountNotFound          = "ACCOUNT_NOT_FOUND"
	ErrCodeProfileNotFound          = "PROFILE_NOT_FOUND"
	ErrCodeProfileNameExists        = "PROFILE_NAME_EXISTS"
	ErrCodeProfileLimitReached      = "PROFILE_LIMIT_REACHED"
	ErrCodeInvalidProfileName       = "INVALID_PROFILE_NAME"
	ErrCodeStorageUnavailable       = "STORAGE_UNAVAILABLE"
)

// NewInvalidIdentifierError は識別子の形式不正エラーを生成する。
func NewInvalidIdentifierError(kind IdentifierKind, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidIdentifierFormat,
		Message:  fmt.Sprintf("識別子 %s の形式が不正です: %s", kind, reason),
		Category: "validation",
		Action:   "識別子の形式を確認して再度リクエストしてください。",
	}
}

// NewNoIdentifierError は識別子未指定エラーを生成する。
func NewNoIdentifierError() *APIError {
	return &APIError{
		Code:     ErrCodeNoIdentifierProvided,
		Message:  "識別子（email、phone_number、username、google_id、apple_id）が1つも指定されていません。",
		Category: "validation",
		Action:   "最低1つの識別子を指定してください。",
	}
}

// NewIdentifierClaimedError は識別子が別アカウントに既に紐付いている場合のエラーを生成する。
func NewIdentifierClaimedError(kind IdentifierKind) *APIError {
	return &APIError{
		Code:     ErrCodeIdentifierAlreadyClaimed,
		Message:  fmt.Sprintf("識別子 %s は既に別のアカウントに紐付いています。", kind),
		Category: "identity",
		Action:   "既存アカウントでログインするか、別の識別子を使用してください。",
	}
}

// NewIdentityConflictError は識別子集合が複数の既存アカウントに一致した場合のエラーを生成する。
// idsには衝突した全アカウントIDを渡す（昇順に整列して保持する）。
func NewIdentityConflictError(ids []string) *APIError {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	return &APIError{
		Code:     ErrCodeIdentityConflict,
		Message:  fmt.Sprintf("指定された識別子が複数の既存アカウントに一致しました: %s", strings.Join(sorted, ", ")),
		Category: "identity",
		Action:   "識別子の組み合わせを確認してください。このリクエストを自動的にマージすることはできません。",

		ConflictAccountIDs: sorted,
	}
}

// NewAccountNotFoundError はアカウント未検出エラーを生成する。
func NewAccountNotFoundError(accountID string) *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotFound,
		Message:  fmt.Sprintf("指定されたアカウントが見つかりません: %s", accountID),
		Category: "identity",
		Action:   "アカウントIDを確認してください。",
	}
}

// NewProfileNotFoundError はプロフィール未検出エラーを生成する。
func NewProfileNotFoundError(profileID string) *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  fmt.Sprintf("指定されたプロフィールが見つかりません: %s", profileID),
		Category: "profile",
		Action:   "プロフィールIDと所属アカウントを確認してください。",
	}
}

// NewProfileNameExistsError はプロフィール名の重複エラーを生成する。
func NewProfileNameExistsError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeProfileNameExists,
		Message:  fmt.Sprintf("プロフィール名 %q はこのアカウントで既に使用されています。", name),
		Category: "profile",
		Action:   "別のプロフィール名を指定してください。",
	}
}

// NewProfileLimitError はプロフィール数上限エラーを生成する。
func NewProfileLimitError(limit int) *APIError {
	return &APIError{
		Code:     ErrCodeProfileLimitReached,
		Message:  fmt.Sprintf("プロフィール数が上限（%d件）に達しています。", limit),
		Category: "profile",
		Action:   "不要なプロフィールを削除してから作成してください。",
	}
}

// NewInvalidProfileNameError はプロフィール名の形式不正エラーを生成する。
func NewInvalidProfileNameError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidProfileName,
		Message:  "プロフィール名は1〜50文字で指定してください。",
		Category: "validation",
		Action:   "プロフィール名の長さを確認してください。",
	}
}

// NewStorageUnavailableError はストレージの一時的な障害エラーを生成する。
// このエラーのみ呼び出し側のリトライ対象であり、コア内部ではリトライしない。
func NewStorageUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeStorageUnavailable,
		Message:  "ストレージが一時的に利用できません。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
