// Package session は認証セッションの単一の情報源を提供する。
// トークンのデコード・期限確認・ロール抽出と、キーバリューストアへの
// 永続化・復元を担う。セッションは完全な認証済みか完全な匿名かの
// いずれかであり、中間状態を外部に公開しない。
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/listigo/internal/kvstore"
	"github.com/hitoshi/listigo/internal/model"
)

// tokenClaims はアクセストークンに含まれるクレーム。
// このクライアントは署名鍵を持たないため検証は行わず、
// クレームの読み取りと期限確認のみを行う。
type tokenClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Store は認証セッションの状態を保持し、kvstoreへ永続化する。
// 全メソッドは並行呼び出しに対して安全。
type Store struct {
	kv     kvstore.Store
	logger *slog.Logger
	now    func() time.Time

	mu            sync.RWMutex
	authenticated bool
	token         string
	roles         []string
	identity      *model.UserMetadata
}

// NewStore はStoreの新しいインスタンスを生成する。初期状態は匿名。
func NewStore(kv kvstore.Store, logger *slog.Logger) *Store {
	return &Store{
		kv:     kv,
		logger: logger,
		now:    time.Now,
	}
}

// Restore は永続化されたトークンからセッション状態を復元する。
// トークンが存在しない・期限切れ・デコード不能・キャッシュ済み
// プロフィールと不整合のいずれの場合も匿名に降格し、エラーにはしない。
// 戻り値のエラーはストレージ障害のみを表す。
func (s *Store) Restore(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, kvstore.KeyAuthToken)
	if err != nil {
		return fmt.Errorf("read persisted token: %w", err)
	}
	if !ok {
		return nil
	}

	token := string(raw)
	claims, err := decodeToken(token)
	if err != nil {
		s.logger.Warn("永続化されたトークンをデコードできませんでした。匿名で起動します",
			slog.String("error", err.Error()),
		)
		return s.Logout(ctx)
	}

	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(s.now()) {
		s.logger.Info("永続化されたトークンは期限切れです。匿名で起動します")
		return s.Logout(ctx)
	}

	roles := claims.Roles
	if len(roles) == 0 {
		roles = []string{model.RoleUser}
	}

	identity, err := s.loadCachedIdentity(ctx, claims.Subject)
	if err != nil {
		return err
	}
	if identity == nil {
		// トークンは有効だがプロフィールが欠落または不整合。
		// 部分的な認証状態は公開しないため匿名に降格する。
		s.logger.Warn("キャッシュ済みプロフィールが見つからないか不整合のため匿名で起動します",
			slog.String("subject", claims.Subject),
		)
		return s.Logout(ctx)
	}

	s.mu.Lock()
	s.authenticated = true
	s.token = token
	s.roles = roles
	s.identity = identity
	s.mu.Unlock()

	if err := s.persistRoles(ctx, roles); err != nil {
		return err
	}

	s.logger.Info("セッションを復元しました",
		slog.String("user_id", identity.UserID),
		slog.Int("role_count", len(roles)),
	)
	return nil
}

// loadCachedIdentity はキャッシュ済みプロフィールを読み込み、
// userIdがトークンのsubjectと一致する場合のみ返す。
// 不整合の場合はキャッシュを破棄してnilを返す。
func (s *Store) loadCachedIdentity(ctx context.Context, subject string) (*model.UserMetadata, error) {
	raw, ok, err := s.kv.Get(ctx, kvstore.KeyUserInfo)
	if err != nil {
		return nil, fmt.Errorf("read cached identity: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var identity model.UserMetadata
	if err := json.Unmarshal(raw, &identity); err != nil {
		s.logger.Warn("キャッシュ済みプロフィールをパースできませんでした",
			slog.String("error", err.Error()),
		)
		if err := s.kv.Delete(ctx, kvstore.KeyUserInfo); err != nil {
			return nil, fmt.Errorf("discard cached identity: %w", err)
		}
		return nil, nil
	}

	if identity.UserID != subject {
		s.logger.Warn("キャッシュ済みプロフィールのuserIdがトークンのsubjectと一致しません",
			slog.String("cached_user_id", identity.UserID),
			slog.String("subject", subject),
		)
		if err := s.kv.Delete(ctx, kvstore.KeyUserInfo); err != nil {
			return nil, fmt.Errorf("discard cached identity: %w", err)
		}
		return nil, nil
	}

	return &identity, nil
}

// Login は外部のログイン呼び出しで得た資格情報の組からセッションを確立する。
// トークンが構造的にデコード不能な場合のみ失敗し、その場合は
// ログアウト状態に戻したうえで資格情報エラーを返す。
func (s *Store) Login(ctx context.Context, auth *model.AuthResponse) error {
	claims, err := decodeToken(auth.AccessToken)
	if err != nil {
		s.logger.Error("ログイン応答のトークンをデコードできませんでした",
			slog.String("error", err.Error()),
		)
		if logoutErr := s.Logout(ctx); logoutErr != nil {
			return logoutErr
		}
		return model.NewCredentialError("受け取ったトークンを解釈できませんでした")
	}

	roles := claims.Roles
	if len(roles) == 0 {
		roles = []string{model.RoleUser}
	}
	identity := auth.User

	s.mu.Lock()
	s.authenticated = true
	s.token = auth.AccessToken
	s.roles = roles
	s.identity = &identity
	s.mu.Unlock()

	if err := s.kv.Set(ctx, kvstore.KeyAuthToken, []byte(auth.AccessToken)); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if err := s.persistRoles(ctx, roles); err != nil {
		return err
	}
	if err := s.persistIdentity(ctx, &identity); err != nil {
		return err
	}

	s.logger.Info("ログインしました",
		slog.String("user_id", identity.UserID),
	)
	return nil
}

// Logout はメモリ上のセッション状態をクリアし、永続化された
// セッションキーをすべて削除する。冪等。
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.authenticated = false
	s.token = ""
	s.roles = nil
	s.identity = nil
	s.mu.Unlock()

	for _, key := range []string{kvstore.KeyAuthToken, kvstore.KeyUserInfo, kvstore.KeyUserRoles} {
		if err := s.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("purge session key %q: %w", key, err)
		}
	}
	return nil
}

// UpdateIdentity はキャッシュ済みプロフィールを置き換えて永続化する。
// トークンには触れない。匿名状態では資格情報エラーを返す。
func (s *Store) UpdateIdentity(ctx context.Context, identity model.UserMetadata) error {
	s.mu.Lock()
	if !s.authenticated {
		s.mu.Unlock()
		return model.NewCredentialError("ログインしていません")
	}
	s.identity = &identity
	s.mu.Unlock()

	return s.persistIdentity(ctx, &identity)
}

// IsInRole は認証済みでロールセットがroleを含む場合にtrueを返す。
func (s *Store) IsInRole(role string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.authenticated {
		return false
	}
	for _, r := range s.roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAuthenticated は認証済みかどうかを返す。
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// Identity は現在のプロフィールのコピーを返す。匿名の場合はnil。
func (s *Store) Identity() *model.UserMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	identity := *s.identity
	return &identity
}

// Roles は現在のロールセットのコピーを返す。匿名の場合はnil。
func (s *Store) Roles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.roles == nil {
		return nil
	}
	roles := make([]string, len(s.roles))
	copy(roles, s.roles)
	return roles
}

// AccessToken は現在のトークンを返す。匿名の場合は空文字列。
// api.TokenSourceを実装する。
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) persistRoles(ctx context.Context, roles []string) error {
	data, err := json.Marshal(roles)
	if err != nil {
		return fmt.Errorf("encode roles: %w", err)
	}
	if err := s.kv.Set(ctx, kvstore.KeyUserRoles, data); err != nil {
		return fmt.Errorf("persist roles: %w", err)
	}
	return nil
}

func (s *Store) persistIdentity(ctx context.Context, identity *model.UserMetadata) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := s.kv.Set(ctx, kvstore.KeyUserInfo, data); err != nil {
		return fmt.Errorf("persist identity: %w", err)
	}
	return nil
}

// decodeToken はトークンを署名検証なしでデコードする。
func decodeToken(token string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}
