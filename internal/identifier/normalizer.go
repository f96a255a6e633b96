// Package identifier は識別子バンドルの正規化と形式検証を提供する。
package identifier

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/hitoshi/idman/internal/model"
)

// usernamePattern はユーザー名の許容形式。小文字化後に適用する。
var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{2,29}$`)

// subjectIDPattern は外部IdPのsubject idの許容形式。
// IdP発行の不透明な値のため、空白を含まない可視文字列のみを許容する。
var subjectIDPattern = regexp.MustCompile(`^[\x21-\x7e]{1,255}$`)

// Normalize は識別子バンドルを正規化して新しいバンドルを返す。
// 比較・保存の前に必ず適用する。入力は変更しない（副作用なし）。
//
// 正規化規則:
//   - email: 前後空白を除去し小文字化。net/mailで形式検証する。
//   - phone_number: E.164形式に正規化する。国番号（先頭の+）が必須。
//   - username: 前後空白を除去し小文字化。英数字で始まる3〜30文字。
//   - google_id / apple_id: 前後空白のみ除去。IdP発行の不透明な値として扱う。
//
// 指定された値が期待する形式に一致しない場合はINVALID_IDENTIFIER_FORMATを返す。
func Normalize(b model.Bundle) (model.Bundle, error) {
	out := make(model.Bundle, len(b))

	for _, kind := range model.IdentifierKinds() {
		raw := b.Get(kind)
		if raw == "" {
			continue
		}

		value, err := normalizeOne(kind, raw)
		if err != nil {
			return nil, err
		}
		out.Set(kind, value)
	}

	return out, nil
}

// normalizeOne は1つの識別子を種別に応じて正規化する。
func normalizeOne(kind model.IdentifierKind, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", model.NewInvalidIdentifierError(kind, "空白のみの値は指定できません")
	}

	switch kind {
	case model.KindEmail:
		return normalizeEmail(trimmed)
	case model.KindPhone:
		return normalizePhone(trimmed)
	case model.KindUsername:
		return normalizeUsername(trimmed)
	case model.KindGoogleID, model.KindAppleID:
		if !subjectIDPattern.MatchString(trimmed) {
			return "", model.NewInvalidIdentifierError(kind, "subject idに使用できない文字が含まれています")
		}
		return trimmed, nil
	default:
		return "", model.NewInvalidIdentifierError(kind, "未知の識別子種別です")
	}
}

// normalizeEmail はメールアドレスを小文字化し、アドレス単体であることを検証する。
func normalizeEmail(s string) (string, error) {
	lowered := strings.ToLower(s)

	addr, err := mail.ParseAddress(lowered)
	if err != nil {
		return "", model.NewInvalidIdentifierError(model.KindEmail, "メールアドレスとして解析できません")
	}
	// "Name <a@b>" のような表示名付き形式は識別子として受け付けない
	if addr.Address != lowered {
		return "", model.NewInvalidIdentifierError(model.KindEmail, "アドレス単体で指定してください")
	}

	return lowered, nil
}

// normalizePhone は電話番号をE.164形式に正規化する。
// 国番号の推定は行わないため、先頭に+を付けた国際形式が必須。
func normalizePhone(s string) (string, error) {
	num, err := phonenumbers.Parse(s, "")
	if err != nil {
		return "", model.NewInvalidIdentifierError(model.KindPhone, "国番号付きの国際形式（+始まり）で指定してください")
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", model.NewInvalidIdentifierError(model.KindPhone, "有効な電話番号ではありません")
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// normalizeUsername はユーザー名を小文字化し、許容形式を検証する。
func normalizeUsername(s string) (string, error) {
	lowered := strings.ToLower(s)

	if !usernamePattern.MatchString(lowered) {
		return "", model.NewInvalidIdentifierError(model.KindUsername, "英数字で始まる3〜30文字（a-z 0-9 _ . -）で指定してください")
	}

	return lowered, nil
}
