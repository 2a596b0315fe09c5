package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/listigo/internal/model"
)

// --- 認証・ユーザー ---

// Login はメールアドレスとパスワードでログインし、資格情報の組を返す。
func (c *Client) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	var resp model.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register は新規ユーザーを登録する。
func (c *Client) Register(ctx context.Context, req model.UserDto) (*model.UserResponse, error) {
	var resp model.UserResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RefreshToken はリフレッシュトークンから新しい資格情報の組を取得する。
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*model.AuthResponse, error) {
	var resp model.AuthResponse
	req := model.RefreshTokenRequest{RefreshToken: refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateProfile はプロフィールを更新し、更新後のユーザーを返す。
func (c *Client) UpdateProfile(ctx context.Context, req model.UserDto) (*model.UserMetadata, error) {
	var resp model.UserMetadata
	if err := c.do(ctx, http.MethodPut, "/auth/users/profile", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChangePassword はパスワードを変更する。
func (c *Client) ChangePassword(ctx context.Context, req model.ChangePasswordRequest) error {
	return c.do(ctx, http.MethodPut, "/auth/users/profile/change-password", nil, req, nil)
}

// BlockUser は指定ユーザーをブロックする。ブロックされたユーザーは
// 以後こちらにメッセージを送信できなくなる。
func (c *Client) BlockUser(ctx context.Context, blockedID string) error {
	return c.do(ctx, http.MethodPost, "/auth/block", nil, model.BlockUserDTO{BlockedID: blockedID}, nil)
}

// --- 出品 ---

// GetAllListings は閲覧可能な全出品を取得する。
func (c *Client) GetAllListings(ctx context.Context) ([]model.ListingDTO, error) {
	var listings []model.ListingDTO
	if err := c.do(ctx, http.MethodGet, "/listings/all", nil, nil, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

// GetMyListings は認証ユーザーが所有する出品を取得する。
func (c *Client) GetMyListings(ctx context.Context) ([]model.ListingDTO, error) {
	var listings []model.ListingDTO
	if err := c.do(ctx, http.MethodGet, "/listings/my-listings", nil, nil, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

// GetListing は指定IDの出品を取得する。
func (c *Client) GetListing(ctx context.Context, listingID int64) (*model.ListingDTO, error) {
	var listing model.ListingDTO
	endpoint := fmt.Sprintf("/listings/%d", listingID)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, nil, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// FilterListings は絞り込み条件に一致する出品を検索する。
func (c *Client) FilterListings(ctx context.Context, filter model.ListingFilterDTO) ([]model.ListingDTO, error) {
	var listings []model.ListingDTO
	if err := c.do(ctx, http.MethodPost, "/listings/filter", nil, filter, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

// CreateListing は新しい出品を作成する。
func (c *Client) CreateListing(ctx context.Context, listing model.ListingDTO) (*model.ListingDTO, error) {
	var created model.ListingDTO
	if err := c.do(ctx, http.MethodPost, "/listings", nil, listing, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateListing は既存の出品を更新する。
func (c *Client) UpdateListing(ctx context.Context, listingID int64, listing model.ListingDTO) (*model.ListingDTO, error) {
	var updated model.ListingDTO
	endpoint := fmt.Sprintf("/listings/%d", listingID)
	if err := c.do(ctx, http.MethodPut, endpoint, nil, listing, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteListing は出品を削除する。
func (c *Client) DeleteListing(ctx context.Context, listingID int64) error {
	endpoint := fmt.Sprintf("/listings/%d", listingID)
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil, nil)
}

// --- メッセージ ---

// GetMessages は指定出品のメッセージスレッドを取得する。
// 呼び出し側が閲覧権限を持たない場合は認可エラーを返す。
func (c *Client) GetMessages(ctx context.Context, listingID int64) ([]model.MessageDTO, error) {
	var messages []model.MessageDTO
	endpoint := fmt.Sprintf("/listings/%d/messages", listingID)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendMessage はメッセージを送信し、サーバーが採番した
// messageIdとsentAtを含む確定済みメッセージを返す。
func (c *Client) SendMessage(ctx context.Context, msg model.MessageDTO) (*model.MessageDTO, error) {
	var sent model.MessageDTO
	endpoint := fmt.Sprintf("/listings/%d/messages", msg.ListingID)
	if err := c.do(ctx, http.MethodPost, endpoint, nil, msg, &sent); err != nil {
		return nil, err
	}
	return &sent, nil
}

// DeleteMessages は指定出品の自分が参加するスレッドを削除する。
// 取り消しはできない。
func (c *Client) DeleteMessages(ctx context.Context, listingID int64) error {
	endpoint := fmt.Sprintf("/listings/%d/messages", listingID)
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil, nil)
}

// --- カテゴリ ---

// GetCategories は全カテゴリを取得する。
func (c *Client) GetCategories(ctx context.Context) ([]model.CategoryDTO, error) {
	var categories []model.CategoryDTO
	if err := c.do(ctx, http.MethodGet, "/categories", nil, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// GetListingsByCategory は指定カテゴリの出品を取得する。
// カテゴリ絞り込みの専用エンドポイントはなく、検索エンドポイントに委譲する。
func (c *Client) GetListingsByCategory(ctx context.Context, categoryID int64) ([]model.ListingDTO, error) {
	return c.FilterListings(ctx, model.ListingFilterDTO{CategoryID: categoryID})
}

// CreateCategory はカテゴリを作成する（管理者のみ）。
func (c *Client) CreateCategory(ctx context.Context, category model.CategoryDTO) (*model.CategoryDTO, error) {
	var created model.CategoryDTO
	if err := c.do(ctx, http.MethodPost, "/categories", nil, category, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateCategory はカテゴリを更新する（管理者のみ）。
func (c *Client) UpdateCategory(ctx context.Context, categoryID int64, category model.CategoryDTO) (*model.CategoryDTO, error) {
	var updated model.CategoryDTO
	endpoint := fmt.Sprintf("/categories/%d", categoryID)
	if err := c.do(ctx, http.MethodPut, endpoint, nil, category, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteCategory はカテゴリを削除する（管理者のみ）。
func (c *Client) DeleteCategory(ctx context.Context, categoryID int64) error {
	endpoint := fmt.Sprintf("/categories/%d", categoryID)
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil, nil)
}
