// Package profile はアカウント配下のプロフィール管理のドメインロジックを提供する。
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/idman/internal/model"
	"github.com/hitoshi/idman/internal/repository"
)

// 名前の文字数制限（トリム後のrune数）。
const (
	nameMinLength = 1
	nameMaxLength = 50
)

// AccountChecker はアカウント存在確認のインターフェース。
type AccountChecker interface {
	FindByID(ctx context.Context, id string) (*model.Account, error)
}

// MetricsRecorder はプロフィール操作イベントの記録インターフェース。
type MetricsRecorder interface {
	RecordProfileOperation(op string)
}

// CreateInput はプロフィール作成の入力。
// Name以外は任意で、未指定の場合はサービスのデフォルト値が適用される。
type CreateInput struct {
	Name          string
	IsKids        bool
	Avatar        string
	Language      string
	MaturityLevel string
	Preferences   json.RawMessage
}

// UpdateInput はプロフィール更新の入力。
// nilのフィールドは変更しない（部分更新）。
type UpdateInput struct {
	Name          *string
	IsKids        *bool
	Avatar        *string
	Language      *string
	MaturityLevel *string
	Preferences   json.RawMessage
}

// Service はプロフィール管理のサービス層。
type Service struct {
	profiles        repository.ProfileRepository
	accounts        AccountChecker
	metrics         MetricsRecorder
	maxPerAccount   int
	defaultLanguage string
	defaultMaturity string
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnil可。
func NewService(
	profiles repository.ProfileRepository,
	accounts AccountChecker,
	metrics MetricsRecorder,
	maxPerAccount int,
	defaultLanguage string,
	defaultMaturity string,
) *Service {
	return &Service{
		profiles:        profiles,
		accounts:        accounts,
		metrics:         metrics,
		maxPerAccount:   maxPerAccount,
		defaultLanguage: defaultLanguage,
		defaultMaturity: defaultMaturity,
	}
}

// Create は指定アカウント配下にプロフィールを作成する。
// 上限チェックと名前の重複チェックは単一トランザクション内で行う。
func (s *Service) Create(ctx context.Context, accountID string, input CreateInput) (*model.Profile, error) {
	name, err := normalizeName(input.Name)
	if err != nil {
		return nil, err
	}

	if err := s.checkAccountExists(ctx, accountID); err != nil {
		return nil, err
	}

	profile := s.newProfile(accountID, name, input)

	err = s.profiles.InTx(ctx, func(repo repository.ProfileRepository) error {
		count, err := repo.CountByAccount(ctx, accountID)
		if err != nil {
			return fmt.Errorf("プロフィール数の取得に失敗しました: %w", err)
		}
		if count >= s.maxPerAccount {
			return model.NewProfileLimitError(s.maxPerAccount)
		}

		existingID, err := repo.FindIDByName(ctx, accountID, name)
		if err != nil {
			return fmt.Errorf("プロフィール名の確認に失敗しました: %w", err)
		}
		if existingID != "" {
			return model.NewProfileNameExistsError(name)
		}

		return repo.Insert(ctx, profile)
	})
	if err != nil {
		return nil, err
	}

	s.recordOp("create")
	slog.Info("プロフィールを作成しました",
		slog.String("account_id", accountID),
		slog.String("profile_id", profile.ID),
	)
	return profile, nil
}

// Get は指定アカウント配下の指定プロフィールを取得する。
// 別アカウント所有のプロフィールはPROFILE_NOT_FOUNDとして扱う。
func (s *Service) Get(ctx context.Context, accountID, profileID string) (*model.Profile, error) {
	if err := s.checkAccountExists(ctx, accountID); err != nil {
		return nil, err
	}

	profile, err := s.profiles.FindByID(ctx, profileID, accountID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError(profileID)
	}
	return profile, nil
}

// Update はプロフィールを部分更新する。
// 所有確認・リネーム時の重複確認・書き込みを単一トランザクション内で行う。
func (s *Service) Update(ctx context.Context, accountID, profileID string, input UpdateInput) (*model.Profile, error) {
	if err := s.checkAccountExists(ctx, accountID); err != nil {
		return nil, err
	}

	var newName string
	if input.Name != nil {
		name, err := normalizeName(*input.Name)
		if err != nil {
			return nil, err
		}
		newName = name
	}

	var updated *model.Profile
	err := s.profiles.InTx(ctx, func(repo repository.ProfileRepository) error {
		profile, err := repo.FindByID(ctx, profileID, accountID)
		if err != nil {
			return fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
		}
		if profile == nil {
			return model.NewProfileNotFoundError(profileID)
		}

		if input.Name != nil && newName != profile.Name {
			existingID, err := repo.FindIDByName(ctx, accountID, newName)
			if err != nil {
				return fmt.Errorf("プロフィール名の確認に失敗しました: %w", err)
			}
			if existingID != "" && existingID != profileID {
				return model.NewProfileNameExistsError(newName)
			}
			profile.Name = newName
		}
		if input.IsKids != nil {
			profile.IsKids = *input.IsKids
		}
		if input.Avatar != nil {
			profile.Avatar = *input.Avatar
		}
		if input.Language != nil {
			profile.Language = *input.Language
		}
		if input.MaturityLevel != nil {
			profile.MaturityLevel = *input.MaturityLevel
		}
		if input.Preferences != nil {
			profile.Preferences = input.Preferences
		}
		profile.UpdatedAt = time.Now().UTC()

		if err := repo.Update(ctx, profile); err != nil {
			return err
		}
		updated = profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordOp("update")
	return updated, nil
}

// Delete は指定アカウント配下の指定プロフィールを削除する。
func (s *Service) Delete(ctx context.Context, accountID, profileID string) error {
	if err := s.checkAccountExists(ctx, accountID); err != nil {
		return err
	}

	deleted, err := s.profiles.Delete(ctx, profileID, accountID)
	if err != nil {
		return fmt.Errorf("プロフィールの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewProfileNotFoundError(profileID)
	}

	s.recordOp("delete")
	slog.Info("プロフィールを削除しました",
		slog.String("account_id", accountID),
		slog.String("profile_id", profileID),
	)
	return nil
}

// List は指定アカウント配下の全プロフィールを作成順で返す。
func (s *Service) List(ctx context.Context, accountID string) ([]*model.Profile, error) {
	if err := s.checkAccountExists(ctx, accountID); err != nil {
		return nil, err
	}

	profiles, err := s.profiles.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("プロフィール一覧の取得に失敗しました: %w", err)
	}
	return profiles, nil
}

func (s *Service) checkAccountExists(ctx context.Context, accountID string) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}
	if account == nil {
		return model.NewAccountNotFoundError(accountID)
	}
	return nil
}

// newProfile は入力とデフォルト値から新規プロフィールを組み立てる。
func (s *Service) newProfile(accountID, name string, input CreateInput) *model.Profile {
	language := input.Language
	if language == "" {
		language = s.defaultLanguage
	}
	maturity := input.MaturityLevel
	if maturity == "" {
		maturity = s.defaultMaturity
	}
	preferences := input.Preferences
	if preferences == nil {
		preferences = json.RawMessage("[]")
	}

	now := time.Now().UTC()
	return &model.Profile{
		ID:            uuid.New().String(),
		AccountID:     accountID,
		Name:          name,
		IsKids:        input.IsKids,
		Avatar:        input.Avatar,
		Language:      language,
		MaturityLevel: maturity,
		Preferences:   preferences,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// normalizeName はプロフィール名をトリムし、文字数を検証する。
func normalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	length := utf8.RuneCountInString(trimmed)
	if length < nameMinLength || length > nameMaxLength {
		return "", model.NewInvalidProfileNameError()
	}
	return trimmed, nil
}

func (s *Service) recordOp(op string) {
	if s.metrics != nil {
		s.metrics.RecordProfileOperation(op)
	}
}
