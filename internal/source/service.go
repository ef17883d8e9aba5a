package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mtanaka/invoicer/internal/model"
	"github.com/mtanaka/invoicer/internal/repository"
)

// MetricsRecorder はソース接続に関するメトリクス記録のインターフェース。
// metrics.Collectorの部分集合として定義する。
type MetricsRecorder interface {
	RecordOAuthExchangeSuccess()
	RecordOAuthExchangeFailure(reason string)
	RecordSourceCreated(sourceType string)
}

// Service はソース接続・管理に関するビジネスロジックを提供する。
type Service struct {
	oauth      OAuthProvider
	verifier   IDTokenVerifier
	userRepo   repository.UserRepository
	sourceRepo repository.SourceRepository
	folderRepo repository.SourceFolderRepository
	metrics    MetricsRecorder // nilの場合は記録しない
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	verifier IDTokenVerifier,
	userRepo repository.UserRepository,
	sourceRepo repository.SourceRepository,
	folderRepo repository.SourceFolderRepository,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		oauth:      oauth,
		verifier:   verifier,
		userRepo:   userRepo,
		sourceRepo: sourceRepo,
		folderRepo: folderRepo,
		metrics:    metrics,
	}
}

// GetConnectURL はGmailアカウント接続の認可URLを生成する。
func (s *Service) GetConnectURL(state string) string {
	return s.oauth.GetConnectURL(state)
}

// ConnectGmail はOAuthコールバックの認可コードからGmailソースを作成する。
// トークン交換に失敗した場合は何も永続化せず、リトライもしない。
// IDトークンの検証（署名・発行者・対象者）を通ったemailのみを採用する。
// 同一ユーザーが同じメールアドレスを重複接続しようとした場合は拒否する。
func (s *Service) ConnectGmail(ctx context.Context, userID, code string) (*model.Source, error) {
	grant, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		slog.Error("oauth token exchange failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		if s.metrics != nil {
			s.metrics.RecordOAuthExchangeFailure("token_endpoint")
		}
		return nil, model.NewOAuthExchangeError()
	}

	claims, err := s.verifier.Verify(ctx, grant.IDToken)
	if err != nil {
		slog.Error("id token verification failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		if s.metrics != nil {
			s.metrics.RecordOAuthExchangeFailure("id_token")
		}
		return nil, model.NewIDTokenInvalidError()
	}
	if s.metrics != nil {
		s.metrics.RecordOAuthExchangeSuccess()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	// 重複接続の事前チェック。競合時はINSERTのユニーク制約が最終防衛線となる。
	existing, err := s.sourceRepo.FindByUserEmailType(ctx, userID, claims.Email, model.SourceTypeGmail)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing source: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateSourceError(claims.Email)
	}

	now := time.Now()
	src := &model.Source{
		ID:                         uuid.New().String(),
		UserID:                     userID,
		Name:                       fmt.Sprintf("%s/gmail/%s", user.Name, claims.Email),
		EmailAddress:               claims.Email,
		SourceType:                 model.SourceTypeGmail,
		OAuth2AccessToken:          grant.AccessToken,
		OAuth2RefreshToken:         grant.RefreshToken,
		OAuth2AccessTokenExpiresAt: now.Add(time.Duration(grant.ExpiresIn) * time.Second),
		CreatedAt:                  now,
	}
	if grant.RefreshTokenExpiresIn != nil {
		expiresAt := now.Add(time.Duration(*grant.RefreshTokenExpiresIn) * time.Second)
		src.OAuth2RefreshTokenExpiresAt = &expiresAt
	}

	if err := s.sourceRepo.Create(ctx, src); err != nil {
		return nil, fmt.Errorf("failed to create source: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordSourceCreated(string(model.SourceTypeGmail))
	}

	slog.Info("gmail source connected",
		slog.String("user_id", userID),
		slog.String("source_id", src.ID),
		slog.String("email", claims.Email),
	)

	return src, nil
}

// ListSources はユーザーのソース一覧を返す。
func (s *Service) ListSources(ctx context.Context, userID string) ([]*model.Source, error) {
	sources, err := s.sourceRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return sources, nil
}

// DeleteSource はユーザー自身のソースを削除する。
// 他人のソースや存在しないIDは同じSOURCE_NOT_FOUNDエラーを返す。
func (s *Service) DeleteSource(ctx context.Context, userID, sourceID string) error {
	src, err := s.findOwnedSource(ctx, userID, sourceID)
	if err != nil {
		return err
	}

	if err := s.sourceRepo.Delete(ctx, src.ID); err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}

	slog.Info("source deleted",
		slog.String("user_id", userID),
		slog.String("source_id", sourceID),
	)
	return nil
}

// ListFolders はソースの同期対象フォルダ一覧を返す。
func (s *Service) ListFolders(ctx context.Context, userID, sourceID string) ([]*model.SourceFolder, error) {
	if _, err := s.findOwnedSource(ctx, userID, sourceID); err != nil {
		return nil, err
	}

	folders, err := s.folderRepo.ListBySourceID(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return folders, nil
}

// AddFolder はソースに同期対象フォルダを追加する。
func (s *Service) AddFolder(ctx context.Context, userID, sourceID, name string) (*model.SourceFolder, error) {
	if name == "" {
		return nil, model.NewInvalidRequestError("フォルダ名を指定してください")
	}

	if _, err := s.findOwnedSource(ctx, userID, sourceID); err != nil {
		return nil, err
	}

	folder := &model.SourceFolder{
		ID:        uuid.New().String(),
		SourceID:  sourceID,
		Name:      name,
		CreatedAt: time.Now(),
	}

	if err := s.folderRepo.Create(ctx, folder); err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	return folder, nil
}

// DeleteFolder はソースの同期対象フォルダを削除する。
func (s *Service) DeleteFolder(ctx context.Context, userID, sourceID, folderID string) error {
	if _, err := s.findOwnedSource(ctx, userID, sourceID); err != nil {
		return err
	}

	folders, err := s.folderRepo.ListBySourceID(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("failed to list folders: %w", err)
	}

	for _, f := range folders {
		if f.ID == folderID {
			if err := s.folderRepo.Delete(ctx, folderID); err != nil {
				return fmt.Errorf("failed to delete folder: %w", err)
			}
			return nil
		}
	}

	return model.NewInvalidRequestError("指定されたフォルダが見つかりません")
}

// findOwnedSource はユーザー自身が所有するソースを取得する。
// 存在しない場合と所有者が異なる場合は同じエラーを返し、他人のソースの存在を漏らさない。
func (s *Service) findOwnedSource(ctx context.Context, userID, sourceID string) (*model.Source, error) {
	src, err := s.sourceRepo.FindByID(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to find source: %w", err)
	}
	if src == nil || src.UserID != userID {
		return nil, model.NewSourceNotFoundError(sourceID)
	}
	return src, nil
}
