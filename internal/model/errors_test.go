package model

import (
	"errors"
	"strings"
	"testing"
)

// APIErrorがerrorインターフェースを満たし、コードを含むことを検証
func TestAPIError_ErrorIncludesCode(t *testing.T) {
	err := NewAccountNotFoundError("acc-1")

	if !strings.Contains(err.Error(), ErrCodeAccountNotFound) {
		t.Errorf("Error() = %q, want to contain %q", err.Error(), ErrCodeAccountNotFound)
	}
}

// errors.Asでラップ越しにAPIErrorを取り出せることを検証
func TestAPIError_ErrorsAs(t *testing.T) {
	wrapped := errors.Join(errors.New("outer"), NewNoIdentifierError())

	var apiErr *APIError
	if !errors.As(wrapped, &apiErr) {
		t.Fatal("expected errors.As to unwrap APIError")
	}
	if apiErr.Code != ErrCodeNoIdentifierProvided {
		t.Errorf("Code = %q, want %q", apiErr.Code, ErrCodeNoIdentifierProvided)
	}
}

// IdentityConflictエラーが衝突した全IDを昇順で保持することを検証
func TestNewIdentityConflictError_SortsAllIDs(t *testing.T) {
	err := NewIdentityConflictError([]string{"acc-b", "acc-a", "acc-c"})

	want := []string{"acc-a", "acc-b", "acc-c"}
	if len(err.ConflictAccountIDs) != len(want) {
		t.Fatalf("len(ConflictAccountIDs) = %d, want %d", len(err.ConflictAccountIDs), len(want))
	}
	for i := range want {
		if err.ConflictAccountIDs[i] != want[i] {
			t.Errorf("ConflictAccountIDs[%d] = %q, want %q", i, err.ConflictAccountIDs[i], want[i])
		}
	}
}

// IdentityConflictエラーが元のスライスを変更しないことを検証
func TestNewIdentityConflictError_DoesNotMutateInput(t *testing.T) {
	ids := []string{"acc-b", "acc-a"}
	NewIdentityConflictError(ids)

	if ids[0] != "acc-b" || ids[1] != "acc-a" {
		t.Errorf("input slice mutated: %v", ids)
	}
}

// 各コンストラクタのコードとカテゴリを検証
func TestErrorConstructors_Codes(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		code     string
		category string
	}{
		{"識別子形式不正", NewInvalidIdentifierError(KindPhone, "not E.164"), ErrCodeInvalidIdentifierFormat, "validation"},
		{"識別子未指定", NewNoIdentifierError(), ErrCodeNoIdentifierProvided, "validation"},
		{"識別子紐付け済み", NewIdentifierClaimedError(KindEmail), ErrCodeIdentifierAlreadyClaimed, "identity"},
		{"識別子衝突", NewIdentityConflictError([]string{"a", "b"}), ErrCodeIdentityConflict, "identity"},
		{"アカウント未検出", NewAccountNotFoundError("acc-1"), ErrCodeAccountNotFound, "identity"},
		{"プロフィール未検出", NewProfileNotFoundError("prof-1"), ErrCodeProfileNotFound, "profile"},
		{"プロフィール名重複", NewProfileNameExistsError("kid1"), ErrCodeProfileNameExists, "profile"},
		{"プロフィール数上限", NewProfileLimitError(5), ErrCodeProfileLimitReached, "profile"},
		{"プロフィール名形式不正", NewInvalidProfileNameError(), ErrCodeInvalidProfileName, "validation"},
		{"ストレージ障害", NewStorageUnavailableError(), ErrCodeStorageUnavailable, "system"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Category != tt.category {
				t.Errorf("Category = %q, want %q", tt.err.Category, tt.category)
			}
		})
	}
}
