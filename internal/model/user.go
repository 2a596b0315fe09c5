// Package model はlistigoバックエンドと共有するドメインモデルを定義する。
// JSONタグはバックエンドのDTOとワイヤ互換である。
package model

// UserMetadata は認証済みユーザーの完全なプロフィールレコードを表す。
// セッションの有効期間中はセッションストアが所有する。
type UserMetadata struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	CreatedAt string `json:"createdAt"`
}

// UserResponse は登録・更新系エンドポイントが返すユーザーの要約。
type UserResponse struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
}

// UserDto はユーザー登録・プロフィール更新のリクエストボディ。
// Passwordは更新時には省略可能。
type UserDto struct {
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

// LoginRequest はログインエンドポイントのリクエストボディ。
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse はログイン成功時にバックエンドが返す資格情報の組。
// AccessTokenは署名付きJWTで、アプリはデコードと期限確認のみ行う。
type AuthResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         UserMetadata `json:"user"`
}

// RefreshTokenRequest はトークン再発行のリクエストボディ。
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ChangePasswordRequest はパスワード変更のリクエストボディ。
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// BlockUserDTO はユーザーブロックのリクエストボディ。
type BlockUserDTO struct {
	BlockedID string `json:"blockedId"`
}

// デフォルトロール。トークンのrolesクレームが欠落している場合に使用する。
const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)
