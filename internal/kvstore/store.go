// Package kvstore は永続キーバリューストアを提供する。
// ブラウザ版クライアントのlocalStorageに相当し、セッションキーと
// ユーザーごとのお気に入りキーを保持する。
package kvstore

import "context"

// 論理キー。セッションストアとお気に入りインデックスのみがこれらを書き込む。
const (
	// KeyAuthToken は永続化された署名付きトークン。
	KeyAuthToken = "listigo_auth_token"
	// KeyUserInfo はキャッシュされたユーザープロフィール（JSON）。
	KeyUserInfo = "listigo_user_info"
	// KeyUserRoles はキャッシュされたロール配列（JSON）。
	KeyUserRoles = "listigo_user_roles"
	// KeyFavoritesPrefix はユーザーごとのお気に入りキーの接頭辞。
	// 完全なキーは KeyFavoritesPrefix + userID。
	KeyFavoritesPrefix = "listigo_favorites:"
)

// Store は永続キーバリューストアのインターフェース。
// 複数プロセスからの同一キーへの書き込みは調停されない（last-write-wins）。
type Store interface {
	// Get は指定キーの値を取得する。キーが存在しない場合はok=falseを返す。
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set は指定キーに値を書き込む。既存の値は上書きされる。
	Set(ctx context.Context, key string, value []byte) error
	// Delete は指定キーを削除する。キーが存在しなくてもエラーにならない。
	Delete(ctx context.Context, key string) error
	// Close はストアを閉じる。
	Close() error
}

// FavoritesKey は指定ユーザーのお気に入りキーを返す。
func FavoritesKey(userID string) string {
	return KeyFavoritesPrefix + userID
}
