// Package conversation は会話一覧の導出を提供する。
// バックエンドに会話一覧の専用エンドポイントが存在しないため、
// 出品ごとのメッセージスレッドを取得して会話リストを再構築する。
// 専用エンドポイントが提供されればこのパッケージの複雑さは丸ごと不要になる。
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/listigo/internal/metrics"
	"github.com/hitoshi/listigo/internal/model"
	"github.com/hitoshi/listigo/internal/security"
)

// Backend は集約が必要とするバックエンド操作。api.Clientが実装する。
type Backend interface {
	// GetMyListings は認証ユーザーが所有する出品を取得する。
	GetMyListings(ctx context.Context) ([]model.ListingDTO, error)
	// GetAllListings は閲覧可能な全出品を取得する。
	GetAllListings(ctx context.Context) ([]model.ListingDTO, error)
	// GetMessages は指定出品のメッセージスレッドを取得する。
	GetMessages(ctx context.Context, listingID int64) ([]model.MessageDTO, error)
	// DeleteMessages は指定出品の自分のスレッドを削除する。
	DeleteMessages(ctx context.Context, listingID int64) error
}

// SessionState は集約の主体となる現在のセッション状態。session.Storeが実装する。
type SessionState interface {
	IsAuthenticated() bool
	Identity() *model.UserMetadata
}

// スキップ理由のメトリクスラベル。
const (
	skipReasonAbsence       = "absence"
	skipReasonAuthorization = "authorization"
	skipReasonEmpty         = "empty"
	skipReasonNoCounterpart = "no_counterpart"
	skipReasonError         = "error"
)

// previewMaxRunes は会話プレビューに残す最大文字数。
const previewMaxRunes = 120

// Service は会話集約のサービス層。
//
// 1つのスレッドに相手が2人以上含まれる場合、代表として最初に現れた
// 相手を選ぶ。これは既知の制約であり、スレッドは出品者と1人の候補者の
// 2者間という前提に基づく。
type Service struct {
	backend        Backend
	session        SessionState
	sanitizer      security.ContentSanitizer
	collector      metrics.MetricsCollector
	logger         *slog.Logger
	maxConcurrency int

	mu     sync.Mutex
	cached []model.Conversation
}

// NewService はServiceの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値4を使用する。
func NewService(
	backend Backend,
	session SessionState,
	sanitizer security.ContentSanitizer,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	maxConcurrency int,
) *Service {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	if collector == nil {
		collector = metrics.Noop{}
	}
	return &Service{
		backend:        backend,
		session:        session,
		sanitizer:      sanitizer,
		collector:      collector,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// ListConversations は現在のユーザーの会話一覧を導出する。
// 出品ごとのスレッド取得はsemaphoreで並列数を制限し、個々の出品の
// 失敗は全体を中断させない。結果は(listingID, counterpartID)で重複を
// 除去し、最終メッセージの新しい順に整列される。タイムスタンプのない
// エントリは末尾に安定的に並ぶ。バックエンドに対して読み取り専用。
func (s *Service) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	identity := s.currentIdentity()
	if identity == nil {
		return nil, model.NewCredentialError("会話を表示するにはログインが必要です")
	}

	start := time.Now()

	owned, err := s.fetchListings(ctx, s.backend.GetMyListings)
	if err != nil {
		return nil, fmt.Errorf("fetch owned listings: %w", err)
	}
	all, err := s.fetchListings(ctx, s.backend.GetAllListings)
	if err != nil {
		return nil, fmt.Errorf("fetch all listings: %w", err)
	}

	union := unionListings(owned, all)

	// semaphoreパターンで並列数を制御し、結果を出品順のスロットに集める。
	// 重複除去と整列は全出品の結果が出そろってから行う。
	results := make([]*model.Conversation, len(union))
	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for idx, listing := range union {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, listing model.ListingDTO) {
			defer wg.Done()
			defer func() { <-sem }()

			results[idx] = s.deriveConversation(ctx, identity, listing)
		}(idx, listing)
	}

	wg.Wait()

	conversations := dedupeConversations(results)
	sortByRecency(conversations)

	s.mu.Lock()
	s.cached = conversations
	s.mu.Unlock()

	s.collector.RecordAggregationPass(time.Since(start), len(conversations))
	s.logger.Info("会話集約パスが完了しました",
		slog.Int("listing_count", len(union)),
		slog.Int("conversation_count", len(conversations)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return conversations, nil
}

// DeleteConversation は指定出品のスレッドを削除し、成功した場合は
// キャッシュ済みの会話一覧から該当エントリを取り除く。取り消しはできず、
// 自動リトライも行わない。
func (s *Service) DeleteConversation(ctx context.Context, listingID int64) error {
	if s.currentIdentity() == nil {
		return model.NewCredentialError("会話を削除するにはログインが必要です")
	}

	if err := s.backend.DeleteMessages(ctx, listingID); err != nil {
		return fmt.Errorf("delete conversation for listing %d: %w", listingID, err)
	}

	s.mu.Lock()
	kept := s.cached[:0]
	for _, c := range s.cached {
		if c.ListingID != listingID {
			kept = append(kept, c)
		}
	}
	s.cached = kept
	s.mu.Unlock()

	s.logger.Info("会話を削除しました", slog.Int64("listing_id", listingID))
	return nil
}

// Cached は直近の集約パスの結果のコピーを返す。
func (s *Service) Cached() []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Conversation, len(s.cached))
	copy(out, s.cached)
	return out
}

func (s *Service) currentIdentity() *model.UserMetadata {
	if !s.session.IsAuthenticated() {
		return nil
	}
	return s.session.Identity()
}

// fetchListings は出品コレクションを取得する。不在応答は空コレクション
// として扱い、エラーにしない。
func (s *Service) fetchListings(ctx context.Context, fetch func(context.Context) ([]model.ListingDTO, error)) ([]model.ListingDTO, error) {
	listings, err := fetch(ctx)
	if err != nil {
		if model.IsAbsence(err) {
			return nil, nil
		}
		return nil, err
	}
	return listings, nil
}

// deriveConversation は1つの出品から会話を導出する。会話が成立しない
// 場合（スレッドなし・権限なし・相手不明・取得失敗）はnilを返し、
// 失敗は呼び出し元の集約を中断させない。
func (s *Service) deriveConversation(ctx context.Context, identity *model.UserMetadata, listing model.ListingDTO) *model.Conversation {
	messages, err := s.backend.GetMessages(ctx, listing.ListingID)
	if err != nil {
		switch {
		case model.IsAbsence(err):
			s.collector.RecordListingSkipped(skipReasonAbsence)
		case model.IsAuthorization(err):
			s.collector.RecordListingSkipped(skipReasonAuthorization)
		default:
			s.collector.RecordListingSkipped(skipReasonError)
			s.logger.Warn("出品のメッセージ取得に失敗したためスキップします",
				slog.Int64("listing_id", listing.ListingID),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}

	if len(messages) == 0 {
		s.collector.RecordListingSkipped(skipReasonEmpty)
		return nil
	}

	counterpartID := pickCounterpart(messages, identity.UserID)
	if counterpartID == "" {
		s.collector.RecordListingSkipped(skipReasonNoCounterpart)
		return nil
	}

	last := latestMessage(messages)

	return &model.Conversation{
		ListingID:       listing.ListingID,
		ListingTitle:    listing.Title,
		CounterpartID:   counterpartID,
		CounterpartName: counterpartLabel(identity.UserID, listing.UserID, counterpartID),
		LastMessage:     s.preview(last.Content),
		LastMessageAt:   last.SentAt,
		ListingImageURL: listing.FirstPhoto(),
	}
}

// preview は最終メッセージの表示用プレビューを生成する。
func (s *Service) preview(content string) string {
	clean := s.sanitizer.Sanitize(content)
	runes := []rune(clean)
	if len(runes) > previewMaxRunes {
		return string(runes[:previewMaxRunes])
	}
	return clean
}

// unionListings は2つの出品コレクションをlistingIDで和集合にする。
// 同一IDは最初に現れたものを採用し、順序は入力順を保つ。
func unionListings(owned, all []model.ListingDTO) []model.ListingDTO {
	seen := make(map[int64]struct{})
	var union []model.ListingDTO
	for _, l := range append(append([]model.ListingDTO{}, owned...), all...) {
		if l.ListingID == 0 {
			continue
		}
		if _, ok := seen[l.ListingID]; ok {
			continue
		}
		seen[l.ListingID] = struct{}{}
		union = append(union, l)
	}
	return union
}

// pickCounterpart はスレッドの参加者から自分以外の代表1人を選ぶ。
// メッセージの出現順で最初に見つかった相手を返す。相手が特定できない
// 場合は空文字列を返す。
func pickCounterpart(messages []model.MessageDTO, selfID string) string {
	for _, m := range messages {
		if m.SenderID != "" && m.SenderID != selfID {
			return m.SenderID
		}
		if m.ReceiverID != "" && m.ReceiverID != selfID {
			return m.ReceiverID
		}
	}
	return ""
}

// counterpartLabel は相手の表示名を生成する。自分が出品者側か
// 購入希望者側かでラベルを変える。
func counterpartLabel(selfID, ownerID, counterpartID string) string {
	if selfID == ownerID {
		return fmt.Sprintf("購入希望者 (%s)", shortID(counterpartID))
	}
	return fmt.Sprintf("出品者 (%s)", shortID(ownerID))
}

// shortID はIDの先頭6文字を返す。
func shortID(id string) string {
	if len(id) > 6 {
		return id[:6]
	}
	return id
}

// latestMessage はsentAtが最大のメッセージを返す。時刻を解釈できない
// メッセージはゼロ時刻として扱う。
func latestMessage(messages []model.MessageDTO) model.MessageDTO {
	last := messages[0]
	lastTime, _ := last.SentTime()
	for _, m := range messages[1:] {
		t, _ := m.SentTime()
		if t.After(lastTime) {
			last = m
			lastTime = t
		}
	}
	return last
}

// dedupeConversations は(listingID, counterpartID)キーで重複を除去する。
// 同一キーは後勝ちとする。
func dedupeConversations(results []*model.Conversation) []model.Conversation {
	type key struct {
		listingID     int64
		counterpartID string
	}
	index := make(map[key]int)
	var out []model.Conversation
	for _, c := range results {
		if c == nil {
			continue
		}
		k := key{c.ListingID, c.CounterpartID}
		if i, ok := index[k]; ok {
			out[i] = *c
			continue
		}
		index[k] = len(out)
		out = append(out, *c)
	}
	return out
}

// sortByRecency は最終メッセージの新しい順に整列する。タイムスタンプの
// ないエントリは末尾に置き、それら同士の相対順は安定に保つ。
func sortByRecency(conversations []model.Conversation) {
	sort.SliceStable(conversations, func(i, j int) bool {
		ti, oki := conversations[i].LastMessageTime()
		tj, okj := conversations[j].LastMessageTime()
		if oki && okj {
			return ti.After(tj)
		}
		return oki && !okj
	})
}
