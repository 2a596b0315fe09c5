// Package chat は1つの出品をめぐる自分と相手との間の
// オープン中スレッドを管理する。固定間隔のポーリングで履歴を更新する。
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/listigo/internal/metrics"
	"github.com/hitoshi/listigo/internal/model"
	"github.com/hitoshi/listigo/internal/security"
)

// DefaultPollInterval はポーリングのデフォルト間隔。
const DefaultPollInterval = 15 * time.Second

// Backend はチャットセッションが必要とするバックエンド操作。api.Clientが実装する。
type Backend interface {
	GetMessages(ctx context.Context, listingID int64) ([]model.MessageDTO, error)
	SendMessage(ctx context.Context, msg model.MessageDTO) (*model.MessageDTO, error)
	BlockUser(ctx context.Context, blockedID string) error
}

// Session は1つの(出品, 相手)ペアのメッセージ履歴を保持する。
// 履歴はsentAt昇順で、送信成功時はサーバー確定メッセージを末尾に
// 追記する（再整列しない）。全メソッドは並行呼び出しに対して安全。
type Session struct {
	backend   Backend
	sanitizer security.ContentSanitizer
	collector metrics.MetricsCollector
	logger    *slog.Logger

	identity      model.UserMetadata
	listing       model.ListingDTO
	counterpartID string

	mu       sync.Mutex
	messages []model.MessageDTO
	// pending はSendで確定したがサーバーのスナップショットに
	// まだ反映されていないmessageIdの集合。反映を確認した時点で外す。
	pending map[int64]struct{}
	closed  bool

	closeOnce sync.Once
	done      chan struct{}
}

// Open はチャットセッションを確立する。seedMessagesが渡された場合は
// それをsentAt昇順に整列して初期履歴とする（会話一覧からの引き継ぎ用）。
func Open(
	backend Backend,
	sanitizer security.ContentSanitizer,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	identity model.UserMetadata,
	listing model.ListingDTO,
	counterpartID string,
	seedMessages []model.MessageDTO,
) *Session {
	if collector == nil {
		collector = metrics.Noop{}
	}
	s := &Session{
		backend:       backend,
		sanitizer:     sanitizer,
		collector:     collector,
		logger:        logger,
		identity:      identity,
		listing:       listing,
		counterpartID: counterpartID,
		pending:       make(map[int64]struct{}),
		done:          make(chan struct{}),
	}
	if len(seedMessages) > 0 {
		seed := make([]model.MessageDTO, len(seedMessages))
		copy(seed, seedMessages)
		sortBySentAt(seed)
		s.messages = s.sanitizeAll(seed)
	}
	return s
}

// Messages は現在の履歴のコピーを返す。
func (s *Session) Messages() []model.MessageDTO {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.MessageDTO, len(s.messages))
	copy(out, s.messages)
	return out
}

// Counterpart は相手のユーザーIDを返す。未確定の場合は空文字列。
func (s *Session) Counterpart() string {
	return s.counterpartID
}

// Refresh はスレッドを取得し直して履歴を置き換える。
// 「まだメッセージがない」は空の正常結果として扱う。ただし自分が
// 出品者でも既存の参加者でもない場合、不在・認可の応答は
// 閲覧権限なしとしてエラーを返す（空会話と区別する）。
// 履歴はサーバーのスナップショットで丸ごと置き換える。例外はSendで
// 確定済みだがスナップショットにまだ現れていないメッセージのみで、
// messageIdで照合のうえ末尾に残す。反映を確認したIDは照合対象から外す。
func (s *Session) Refresh(ctx context.Context) error {
	fetched, err := s.backend.GetMessages(ctx, s.listing.ListingID)
	if err != nil {
		if model.IsAbsence(err) || model.IsAuthorization(err) {
			if s.isOwnerOrParticipant() {
				fetched = nil
			} else {
				return model.NewAuthorizationError(0, "このスレッドを閲覧する権限がありません")
			}
		} else {
			return fmt.Errorf("refresh messages for listing %d: %w", s.listing.ListingID, err)
		}
	}

	next := make([]model.MessageDTO, len(fetched))
	copy(next, fetched)
	sortBySentAt(next)
	next = s.sanitizeAll(next)

	serverIDs := make(map[int64]struct{}, len(next))
	for _, m := range next {
		if m.MessageID != 0 {
			serverIDs[m.MessageID] = struct{}{}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	// 送信済みでサーバー応答にまだ現れていないメッセージだけを落とさない。
	// それ以外のローカル履歴はスナップショットに従う（サーバー側の削除を反映する）。
	for _, m := range s.messages {
		if _, sent := s.pending[m.MessageID]; !sent {
			continue
		}
		if _, ok := serverIDs[m.MessageID]; ok {
			delete(s.pending, m.MessageID)
			continue
		}
		next = append(next, m)
	}

	s.messages = next
	return nil
}

// Send はメッセージを送信する。空・空白のみの本文はネットワーク呼び出しを
// 行わずローカルで拒否する。成功時はサーバーが採番したmessageId/sentAtを
// 持つ確定メッセージを履歴の末尾に追記する。失敗した送信は履歴に現れない。
func (s *Session) Send(ctx context.Context, content string) (*model.MessageDTO, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, model.NewValidationError("メッセージ本文が空です")
	}
	if s.counterpartID == "" {
		return nil, model.NewValidationError("送信先の相手が確定していません")
	}

	msg := model.MessageDTO{
		SenderID:   s.identity.UserID,
		ReceiverID: s.counterpartID,
		ListingID:  s.listing.ListingID,
		Content:    trimmed,
	}

	sent, err := s.backend.SendMessage(ctx, msg)
	if err != nil {
		s.collector.RecordSendFailure()
		return nil, fmt.Errorf("send message for listing %d: %w", s.listing.ListingID, err)
	}

	confirmed := *sent
	confirmed.Content = s.sanitizer.Sanitize(confirmed.Content)

	s.mu.Lock()
	if !s.closed {
		s.messages = append(s.messages, confirmed)
		if confirmed.MessageID != 0 {
			s.pending[confirmed.MessageID] = struct{}{}
		}
	}
	s.mu.Unlock()

	s.collector.RecordMessageSent()
	return &confirmed, nil
}

// Block は相手をブロックする。ローカルの履歴には影響しない。
func (s *Session) Block(ctx context.Context) error {
	if s.counterpartID == "" {
		return model.NewValidationError("ブロック対象の相手が確定していません")
	}
	if err := s.backend.BlockUser(ctx, s.counterpartID); err != nil {
		return fmt.Errorf("block user %s: %w", s.counterpartID, err)
	}
	s.logger.Info("ユーザーをブロックしました",
		slog.String("blocked_id", s.counterpartID),
	)
	return nil
}

// Run は固定間隔のポーリングを開始する。起動直後に1回更新し、
// コンテキストのキャンセルまたはCloseまで継続する。各ポーリングは
// Refreshと同じエラー方針に従い、失敗してもポーリング自体は継続する。
func (s *Session) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *Session) poll(ctx context.Context) {
	s.collector.RecordPollCycle()
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("ポーリングによる履歴更新に失敗しました",
			slog.Int64("listing_id", s.listing.ListingID),
			slog.String("error", err.Error()),
		)
	}
}

// Close はセッションを閉じてポーリングを停止する。Close後は
// いかなるポーリング結果も状態を変更しない。冪等。
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
	})
}

// isOwnerOrParticipant は自分が出品者か、既知の履歴でスレッドの
// 参加者であるかを返す。
func (s *Session) isOwnerOrParticipant() bool {
	if s.identity.UserID == s.listing.UserID {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.SenderID == s.identity.UserID || m.ReceiverID == s.identity.UserID {
			return true
		}
	}
	return false
}

func (s *Session) sanitizeAll(messages []model.MessageDTO) []model.MessageDTO {
	for i := range messages {
		messages[i].Content = s.sanitizer.Sanitize(messages[i].Content)
	}
	return messages
}

// ResolveCounterpart はチャットを開く時点での相手を決定する。
// 自分が出品者の場合はスレッドで最初に自分以外から届いたメッセージの
// 送信者を選び、見つからなければ空文字列（相手未確定）を返す。
// 自分が出品者でない場合は常に出品者が相手となる。
func ResolveCounterpart(selfID string, listing model.ListingDTO, messages []model.MessageDTO) string {
	if selfID != listing.UserID {
		return listing.UserID
	}
	for _, m := range messages {
		if m.SenderID != "" && m.SenderID != selfID {
			return m.SenderID
		}
	}
	return ""
}

// sortBySentAt はsentAt昇順の安定ソートを行う。
// 時刻を解釈できないメッセージはゼロ時刻として先頭側に寄る。
func sortBySentAt(messages []model.MessageDTO) {
	sort.SliceStable(messages, func(i, j int) bool {
		ti, _ := messages[i].SentTime()
		tj, _ := messages[j].SentTime()
		return ti.Before(tj)
	})
}
