package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/idman/internal/middleware"
	"github.com/hitoshi/idman/internal/model"
)

// AccountServiceInterface はアカウントハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	// LinkOrCreate は識別子バンドルを既存アカウントに解決し、リンクまたは新規作成する。
	// 第2戻り値は新規作成された場合にtrue。
	LinkOrCreate(ctx context.Context, bundle model.Bundle, displayName string) (*model.Account, bool, error)
	// Get はアカウントを内部IDで取得する。
	Get(ctx context.Context, accountID string) (*model.Account, error)
}

// AccountHandler はアカウント管理のHTTPハンドラー。
type AccountHandler struct {
	service AccountServiceInterface
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(service AccountServiceInterface) *AccountHandler {
	return &AccountHandler{service: service}
}

// identifiersPayload は識別子バンドルのJSON表現。
// 各フィールドは任意で、空文字列は未指定として扱う。
type identifiersPayload struct {
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Username    string `json:"username,omitempty"`
	GoogleID    string `json:"google_id,omitempty"`
	AppleID     string `json:"apple_id,omitempty"`
}

// toBundle はJSON表現からドメインのBundleに変換する。
func (p identifiersPayload) toBundle() model.Bundle {
	b := make(model.Bundle)
	b.Set(model.KindEmail, p.Email)
	b.Set(model.KindPhone, p.PhoneNumber)
	b.Set(model.KindUsername, p.Username)
	b.Set(model.KindGoogleID, p.GoogleID)
	b.Set(model.KindAppleID, p.AppleID)
	return b
}

// registerAccountRequest はアカウント登録リクエストのボディ。
type registerAccountRequest struct {
	Identifiers identifiersPayload `json:"identifiers"`
	DisplayName string             `json:"display_name"`
}

// accountResponse はアカウント情報のAPIレスポンス。
type accountResponse struct {
	ID          string             `json:"id"`
	Identifiers identifiersPayload `json:"identifiers"`
	DisplayName string             `json:"display_name"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// registerAccountResponse はアカウント登録レスポンス。
// Createdは今回のリクエストで新規作成されたかどうかを示す。
type registerAccountResponse struct {
	accountResponse
	Created bool `json:"created"`
}

// RegisterAccount は識別子バンドルの解決とアカウント登録を処理する。
// 既存アカウントにリンクした場合は200、新規作成した場合は201を返す。
// POST /api/accounts
func (h *AccountHandler) RegisterAccount(w http.ResponseWriter, r *http.Request) {
	var req registerAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	account, created, err := h.service.LinkOrCreate(r.Context(), req.Identifiers.toBundle(), req.DisplayName)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	statusCode := http.StatusOK
	if created {
		statusCode = http.StatusCreated
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(registerAccountResponse{
		accountResponse: toAccountResponse(account),
		Created:         created,
	})
}

// GetAccount はアカウント詳細を取得する。
// GET /api/accounts/:accountID
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	account, err := h.service.Get(r.Context(), accountID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if account == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewAccountNotFoundError(accountID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toAccountResponse(account))
}

// --- ヘルパー関数 ---

// toAccountResponse はmodel.AccountからAPIレスポンスに変換する。
func toAccountResponse(account *model.Account) accountResponse {
	return accountResponse{
		ID: account.ID,
		Identifiers: identifiersPayload{
			Email:       account.Identifiers.Get(model.KindEmail),
			PhoneNumber: account.Identifiers.Get(model.KindPhone),
			Username:    account.Identifiers.Get(model.KindUsername),
			GoogleID:    account.Identifiers.Get(model.KindGoogleID),
			AppleID:     account.Identifiers.Get(model.KindAppleID),
		},
		DisplayName: account.DisplayName,
		CreatedAt:   account.CreatedAt,
		UpdatedAt:   account.UpdatedAt,
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
// レート制限やrecoveryミドルウェアのエラーレスポンスと同じ形式を共有する。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidIdentifierFormat,
		model.ErrCodeNoIdentifierProvided,
		model.ErrCodeInvalidProfileName,
		"INVALID_REQUEST":
		return http.StatusBadRequest
	case model.ErrCodeAccountNotFound, model.ErrCodeProfileNotFound:
		return http.StatusNotFound
	case model.ErrCodeIdentityConflict,
		model.ErrCodeIdentifierAlreadyClaimed,
		model.ErrCodeProfileNameExists,
		model.ErrCodeProfileLimitReached:
		return http.StatusConflict
	case model.ErrCodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
