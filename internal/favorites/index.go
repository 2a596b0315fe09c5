// Package favorites はユーザーごとのお気に入り出品インデックスを提供する。
// エントリはlistingIDをキーとしてユーザー単位で永続化され、
// 匿名状態では見えず、変更もできない。
package favorites

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hitoshi/listigo/internal/kvstore"
	"github.com/hitoshi/listigo/internal/model"
)

// SessionState はお気に入りのスコープを決める現在のセッション状態。
// session.Storeが実装する。
type SessionState interface {
	IsAuthenticated() bool
	Identity() *model.UserMetadata
}

// Index はアクティブなセッションにスコープされたお気に入りの集合。
type Index struct {
	kv      kvstore.Store
	session SessionState
	logger  *slog.Logger
}

// NewIndex はIndexの新しいインスタンスを生成する。
func NewIndex(kv kvstore.Store, session SessionState, logger *slog.Logger) *Index {
	return &Index{kv: kv, session: session, logger: logger}
}

// List は現在のユーザーのお気に入り一覧を返す。匿名の場合は空を返す。
func (i *Index) List(ctx context.Context) ([]model.FavoriteListing, error) {
	userID, ok := i.currentUserID()
	if !ok {
		return nil, nil
	}
	return i.load(ctx, userID)
}

// Add は出品をお気に入りに追加する。既に追加済みの場合は何もしない。
func (i *Index) Add(ctx context.Context, listing model.ListingDTO) error {
	userID, ok := i.currentUserID()
	if !ok {
		return model.NewCredentialError("お気に入りを使うにはログインが必要です")
	}
	if listing.ListingID == 0 {
		return model.NewValidationError("出品IDがありません")
	}

	favs, err := i.load(ctx, userID)
	if err != nil {
		return err
	}
	for _, f := range favs {
		if f.ID == listing.ListingID {
			return nil
		}
	}

	favs = append(favs, model.FavoriteListing{
		ID:       listing.ListingID,
		Title:    listing.Title,
		Price:    listing.Price,
		ImageURL: listing.FirstPhoto(),
	})
	return i.save(ctx, userID, favs)
}

// Remove は指定出品をお気に入りから外す。存在しない場合は何もしない。
func (i *Index) Remove(ctx context.Context, listingID int64) error {
	userID, ok := i.currentUserID()
	if !ok {
		return model.NewCredentialError("お気に入りを使うにはログインが必要です")
	}

	favs, err := i.load(ctx, userID)
	if err != nil {
		return err
	}
	kept := favs[:0]
	for _, f := range favs {
		if f.ID != listingID {
			kept = append(kept, f)
		}
	}
	return i.save(ctx, userID, kept)
}

// IsFavorite は指定出品がお気に入りに含まれるかを返す。
// 匿名の場合は常にfalse。
func (i *Index) IsFavorite(ctx context.Context, listingID int64) (bool, error) {
	userID, ok := i.currentUserID()
	if !ok {
		return false, nil
	}
	favs, err := i.load(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, f := range favs {
		if f.ID == listingID {
			return true, nil
		}
	}
	return false, nil
}

func (i *Index) currentUserID() (string, bool) {
	if !i.session.IsAuthenticated() {
		return "", false
	}
	identity := i.session.Identity()
	if identity == nil {
		return "", false
	}
	return identity.UserID, true
}

func (i *Index) load(ctx context.Context, userID string) ([]model.FavoriteListing, error) {
	raw, ok, err := i.kv.Get(ctx, kvstore.FavoritesKey(userID))
	if err != nil {
		return nil, fmt.Errorf("read favorites: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var favs []model.FavoriteListing
	if err := json.Unmarshal(raw, &favs); err != nil {
		// 壊れたエントリは捨てて空から始める
		i.logger.Warn("お気に入りデータをパースできませんでした。初期化します",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}
	return favs, nil
}

func (i *Index) save(ctx context.Context, userID string, favs []model.FavoriteListing) error {
	data, err := json.Marshal(favs)
	if err != nil {
		return fmt.Errorf("encode favorites: %w", err)
	}
	if err := i.kv.Set(ctx, kvstore.FavoritesKey(userID), data); err != nil {
		return fmt.Errorf("persist favorites: %w", err)
	}
	return nil
}
