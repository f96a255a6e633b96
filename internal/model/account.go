package model

import (
	"encoding/json"
	"time"
)

// Account はアカウントの正準レコードを表す。
// 最低1つの識別子を持ち、各識別子値は全アカウント間で一意。
type Account struct {
	ID          string
	Identifiers Bundle
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Profile はアカウント配下のプロフィール（世帯メンバー等）を表す。
// 名前はアカウント内で一意（グローバルには一意でない）。
type Profile struct {
	ID            string
	AccountID     string
	Name          string
	IsKids        bool
	Avatar        string
	Language      string
	MaturityLevel string
	// Preferences は呼び出し側が管理する自己記述型のJSONドキュメント。
	// コアはスキーマを仮定せず不透明な値として保存する。
	Preferences json.RawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
