package model

// ListingDTO は出品のワイヤ表現。このモジュールでは読み取り専用で扱う。
// ListingIDは新規作成リクエストでは0（未採番）。
type ListingDTO struct {
	ListingID   int64    `json:"listingId,omitempty"`
	UserID      string   `json:"userId"`
	CategoryID  int64    `json:"categoryId"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Brand       string   `json:"brand,omitempty"`
	Model       string   `json:"model,omitempty"`
	Year        int      `json:"year,omitempty"`
	Mileage     int      `json:"mileage,omitempty"`
	Location    string   `json:"location,omitempty"`
	Photos      []string `json:"photos"`
	CreatedAt   string   `json:"createdAt,omitempty"`
}

// FirstPhoto は先頭の写真URLを返す。写真がない場合はプレースホルダーを返す。
func (l *ListingDTO) FirstPhoto() string {
	if len(l.Photos) > 0 && l.Photos[0] != "" {
		return l.Photos[0]
	}
	return DefaultPlaceholderImage
}

// DefaultPlaceholderImage は写真のない出品に使うプレースホルダー画像URL。
const DefaultPlaceholderImage = "https://picsum.photos/400/300"

// ListingFilterDTO は出品検索の絞り込み条件。ゼロ値のフィールドは無視される。
type ListingFilterDTO struct {
	CategoryID int64   `json:"categoryId,omitempty"`
	Brand      string  `json:"brand,omitempty"`
	Model      string  `json:"model,omitempty"`
	MinYear    int     `json:"minYear,omitempty"`
	MaxYear    int     `json:"maxYear,omitempty"`
	MinPrice   float64 `json:"minPrice,omitempty"`
	MaxPrice   float64 `json:"maxPrice,omitempty"`
	Location   string  `json:"location,omitempty"`
	SearchText string  `json:"searchText,omitempty"`
}

// CategoryDTO はカテゴリのワイヤ表現。管理者のみ作成・更新・削除できる。
type CategoryDTO struct {
	CategoryID   int64  `json:"categoryId,omitempty"`
	CategoryName string `json:"categoryName"`
}

// FavoriteListing はお気に入りに保存する出品の要約。listingIDをキーとし、
// ユーザーごとに永続化される。
type FavoriteListing struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"imageUrl,omitempty"`
}
