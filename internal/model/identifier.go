// Package model はドメインモデルを定義する。
package model

// IdentifierKind はアカウントを特定できる識別子の種別を表す。
type IdentifierKind string

const (
	// KindEmail はメールアドレス識別子。
	KindEmail IdentifierKind = "email"
	// KindPhone は電話番号識別子（E.164形式で保存する）。
	KindPhone IdentifierKind = "phone_number"
	// KindUsername はユーザー名識別子。
	KindUsername IdentifierKind = "username"
	// KindGoogleID はGoogleのsubject id識別子。
	KindGoogleID IdentifierKind = "google_id"
	// KindAppleID はAppleのsubject id識別子。
	KindAppleID IdentifierKind = "apple_id"
)

// IdentifierKinds は全識別子種別を安定した順序で返す。
// 新しい外部IdPを追加する場合はここに種別を追加するだけでよく、
// 解決ロジック側の変更は不要。
func IdentifierKinds() []IdentifierKind {
	return []IdentifierKind{KindEmail, KindPhone, KindUsername, KindGoogleID, KindAppleID}
}

// Bundle は1リクエストで与えられた識別子の集合を表す。
// 各種別は任意で、空文字列の値は未指定として扱う。
type Bundle map[IdentifierKind]string

// Get は指定種別の識別子値を返す。未指定の場合は空文字列。
func (b Bundle) Get(kind IdentifierKind) string {
	return b[kind]
}

// Set は指定種別の識別子値を設定する。空文字列の場合は削除する。
func (b Bundle) Set(kind IdentifierKind, value string) {
	if value == "" {
		delete(b, kind)
		return
	}
	b[kind] = value
}

// IsEmpty は識別子が1つも指定されていない場合にtrueを返す。
func (b Bundle) IsEmpty() bool {
	for _, kind := range IdentifierKinds() {
		if b[kind] != "" {
			return false
		}
	}
	return true
}

// Clone はバンドルの独立したコピーを返す。
func (b Bundle) Clone() Bundle {
	c := make(Bundle, len(b))
	for _, kind := range IdentifierKinds() {
		if v := b[kind]; v != "" {
			c[kind] = v
		}
	}
	return c
}
