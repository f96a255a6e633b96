package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/idman/internal/model"
	"github.com/hitoshi/idman/internal/profile"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	// Create は指定アカウント配下にプロフィールを作成する。
	Create(ctx context.Context, accountID string, input profile.CreateInput) (*model.Profile, error)
	// Get はアカウント所有権を確認した上でプロフィールを取得する。
	Get(ctx context.Context, accountID, profileID string) (*model.Profile, error)
	// Update はプロフィールを部分更新する。
	Update(ctx context.Context, accountID, profileID string, input profile.UpdateInput) (*model.Profile, error)
	// Delete はプロフィールを削除する。
	Delete(ctx context.Context, accountID, profileID string) error
	// List はアカウント配下の全プロフィールを作成順で返す。
	List(ctx context.Context, accountID string) ([]*model.Profile, error)
}

// ProfileHandler はプロフィール管理のHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// createProfileRequest はプロフィール作成リクエストのボディ。
type createProfileRequest struct {
	Name          string          `json:"name"`
	IsKids        bool            `json:"is_kids"`
	Avatar        string          `json:"avatar"`
	Language      string          `json:"language"`
	MaturityLevel string          `json:"maturity_level"`
	Preferences   json.RawMessage `json:"preferences"`
}

// updateProfileRequest はプロフィール部分更新リクエストのボディ。
// 省略されたフィールドは変更しない。
type updateProfileRequest struct {
	Name          *string         `json:"name"`
	IsKids        *bool           `json:"is_kids"`
	Avatar        *string         `json:"avatar"`
	Language      *string         `json:"language"`
	MaturityLevel *string         `json:"maturity_level"`
	Preferences   json.RawMessage `json:"preferences"`
}

// profileResponse はプロフィール情報のAPIレスポンス。
type profileResponse struct {
	ID            string          `json:"id"`
	AccountID     string          `json:"account_id"`
	Name          string          `json:"name"`
	IsKids        bool            `json:"is_kids"`
	Avatar        string          `json:"avatar"`
	Language      string          `json:"language"`
	MaturityLevel string          `json:"maturity_level"`
	Preferences   json.RawMessage `json:"preferences"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CreateProfile はプロフィール作成を処理する。
// POST /api/accounts/:accountID/profiles
func (h *ProfileHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	var req createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	created, err := h.service.Create(r.Context(), accountID, profile.CreateInput{
		Name:          req.Name,
		IsKids:        req.IsKids,
		Avatar:        req.Avatar,
		Language:      req.Language,
		MaturityLevel: req.MaturityLevel,
		Preferences:   req.Preferences,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toProfileResponse(created))
}

// GetProfile はプロフィール詳細を取得する。
// GET /api/accounts/:accountID/profiles/:profileID
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	profileID := chi.URLParam(r, "profileID")

	p, err := h.service.Get(r.Context(), accountID, profileID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProfileResponse(p))
}

// UpdateProfile はプロフィールの部分更新を処理する。
// PATCH /api/accounts/:accountID/profiles/:profileID
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	profileID := chi.URLParam(r, "profileID")

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	updated, err := h.service.Update(r.Context(), accountID, profileID, profile.UpdateInput{
		Name:          req.Name,
		IsKids:        req.IsKids,
		Avatar:        req.Avatar,
		Language:      req.Language,
		MaturityLevel: req.MaturityLevel,
		Preferences:   req.Preferences,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProfileResponse(updated))
}

// DeleteProfile はプロフィール削除を処理する。
// DELETE /api/accounts/:accountID/profiles/:profileID
func (h *ProfileHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	profileID := chi.URLParam(r, "profileID")

	if err := h.service.Delete(r.Context(), accountID, profileID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListProfiles はアカウント配下のプロフィール一覧を取得する。
// GET /api/accounts/:accountID/profiles
func (h *ProfileHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	profiles, err := h.service.List(r.Context(), accountID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]profileResponse, len(profiles))
	for i, p := range profiles {
		results[i] = toProfileResponse(p)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// toProfileResponse はmodel.ProfileからAPIレスポンスに変換する。
func toProfileResponse(p *model.Profile) profileResponse {
	return profileResponse{
		ID:            p.ID,
		AccountID:     p.AccountID,
		Name:          p.Name,
		IsKids:        p.IsKids,
		Avatar:        p.Avatar,
		Language:      p.Language,
		MaturityLevel: p.MaturityLevel,
		Preferences:   p.Preferences,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
