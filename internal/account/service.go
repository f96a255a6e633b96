// Package account はアカウント解決とリンクのドメインロジックを提供する。
package account

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/idman/internal/identifier"
	"github.com/hitoshi/idman/internal/model"
	"github.com/hitoshi/idman/internal/repository"
)

// ResolveStatus は識別子バンドルの解決結果の種別を表す。
type ResolveStatus string

const (
	// StatusFound は全識別子が単一のアカウントを指した状態。
	StatusFound ResolveStatus = "found"
	// StatusNotFound はどの識別子もアカウントを指さなかった状態。
	StatusNotFound ResolveStatus = "not_found"
	// StatusConflict は識別子が複数の異なるアカウントを指した状態。
	StatusConflict ResolveStatus = "conflict"
)

// ResolveOutcome は識別子バンドルの解決結果を表す。
type ResolveOutcome struct {
	Status ResolveStatus
	// AccountID はStatusFoundの場合のみ設定される。
	AccountID string
	// ConflictIDs はStatusConflictの場合のみ設定される（昇順ソート済み）。
	ConflictIDs []string
}

// MetricsRecorder は解決・作成イベントの記録インターフェース。
type MetricsRecorder interface {
	RecordResolveOutcome(status string)
	RecordAccountCreated()
	RecordIdentifierAttached(kind string)
}

// Service はアカウント解決とリンクのサービス層。
// 解決→判定→書き込みを単一のシリアライザブルトランザクションで実行する。
type Service struct {
	accounts repository.AccountRepository
	metrics  MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnil可（テストや計測不要の構成向け）。
func NewService(accounts repository.AccountRepository, metrics MetricsRecorder) *Service {
	return &Service{
		accounts: accounts,
		metrics:  metrics,
	}
}

// Resolve は識別子バンドルを正規化し、一致するアカウントを解決する。
// バンドル内の各識別子を独立に照合し、一致したアカウントIDの異なり集合の
// 濃度で結果を判定する: 0件=NotFound、1件=Found、2件以上=Conflict。
// 書き込みは行わない。
func (s *Service) Resolve(ctx context.Context, bundle model.Bundle) (*ResolveOutcome, error) {
	normalized, err := identifier.Normalize(bundle)
	if err != nil {
		return nil, err
	}
	if normalized.IsEmpty() {
		return nil, model.NewNoIdentifierError()
	}

	var outcome *ResolveOutcome
	err = s.accounts.InTx(ctx, func(repo repository.AccountRepository) error {
		outcome, err = resolveInTx(ctx, repo, normalized)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordResolve(outcome.Status)
	return outcome, nil
}

// LinkOrCreate は識別子バンドルを解決し、結果に応じて既存アカウントへの
// 識別子リンクまたは新規アカウント作成を行う。
// 戻り値のcreatedは新規作成された場合にtrue。
//
// Foundの場合、アカウント側で未設定の種別の識別子のみを追加する。
// 既に別の値が設定されている種別は上書きせずスキップする。
// Conflictの場合は書き込みを行わずIDENTITY_CONFLICTを返す。
func (s *Service) LinkOrCreate(ctx context.Context, bundle model.Bundle, displayName string) (*model.Account, bool, error) {
	normalized, err := identifier.Normalize(bundle)
	if err != nil {
		return nil, false, err
	}
	if normalized.IsEmpty() {
		return nil, false, model.NewNoIdentifierError()
	}

	var (
		account *model.Account
		created bool
		status  ResolveStatus
	)
	err = s.accounts.InTx(ctx, func(repo repository.AccountRepository) error {
		outcome, err := resolveInTx(ctx, repo, normalized)
		if err != nil {
			return err
		}
		status = outcome.Status

		switch outcome.Status {
		case StatusConflict:
			return model.NewIdentityConflictError(outcome.ConflictIDs)

		case StatusNotFound:
			account = newAccount(normalized, displayName)
			created = true
			return repo.Insert(ctx, account)

		default: // StatusFound
			account, err = s.link(ctx, repo, outcome.AccountID, normalized, displayName)
			return err
		}
	})
	if err != nil {
		s.recordResolve(status)
		return nil, false, err
	}

	s.recordResolve(status)
	if created {
		if s.metrics != nil {
			s.metrics.RecordAccountCreated()
		}
		slog.Info("アカウントを作成しました",
			slog.String("account_id", account.ID),
		)
	}
	return account, created, nil
}

// Get は指定IDのアカウントを取得する。
func (s *Service) Get(ctx context.Context, accountID string) (*model.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError(accountID)
	}
	return account, nil
}

// resolveInTx は正規化済みバンドルをトランザクション内で解決する。
func resolveInTx(ctx context.Context, repo repository.AccountRepository, normalized model.Bundle) (*ResolveOutcome, error) {
	seen := make(map[string]struct{})
	for _, kind := range model.IdentifierKinds() {
		value := normalized.Get(kind)
		if value == "" {
			continue
		}
		id, err := repo.FindIDByIdentifier(ctx, kind, value)
		if err != nil {
			return nil, fmt.Errorf("識別子の照合に失敗しました: %w", err)
		}
		if id != "" {
			seen[id] = struct{}{}
		}
	}

	switch len(seen) {
	case 0:
		return &ResolveOutcome{Status: StatusNotFound}, nil
	case 1:
		var id string
		for id = range seen {
		}
		return &ResolveOutcome{Status: StatusFound, AccountID: id}, nil
	default:
		ids := make([]string, 0, len(seen))
		for id := range seen {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return &ResolveOutcome{Status: StatusConflict, ConflictIDs: ids}, nil
	}
}

// link は既存アカウントにバンドルの識別子を追加し、更新後のアカウントを返す。
// 未設定の種別のみ追加し、空の表示名があれば補完する。
func (s *Service) link(ctx context.Context, repo repository.AccountRepository, accountID string, normalized model.Bundle, displayName string) (*model.Account, error) {
	account, err := repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}
	if account == nil {
		// 解決直後の同一トランザクション内で消えることは通常ないが、防御的に扱う
		return nil, model.NewAccountNotFoundError(accountID)
	}

	for _, kind := range model.IdentifierKinds() {
		value := normalized.Get(kind)
		if value == "" || account.Identifiers.Get(kind) != "" {
			continue
		}
		if err := repo.AttachIdentifier(ctx, accountID, kind, value); err != nil {
			return nil, err
		}
		account.Identifiers.Set(kind, value)
		if s.metrics != nil {
			s.metrics.RecordIdentifierAttached(string(kind))
		}
		slog.Info("識別子をリンクしました",
			slog.String("account_id", accountID),
			slog.String("kind", string(kind)),
		)
	}

	if account.DisplayName == "" && displayName != "" {
		if err := repo.UpdateDisplayName(ctx, accountID, displayName); err != nil {
			return nil, err
		}
		account.DisplayName = displayName
	}

	return account, nil
}

// newAccount は正規化済みバンドルから新規アカウントを組み立てる。
func newAccount(normalized model.Bundle, displayName string) *model.Account {
	now := time.Now().UTC()
	return &model.Account{
		ID:          uuid.New().String(),
		Identifiers: normalized.Clone(),
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *Service) recordResolve(status ResolveStatus) {
	if s.metrics != nil && status != "" {
		s.metrics.RecordResolveOutcome(string(status))
	}
}
