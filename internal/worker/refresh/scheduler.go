// Package refresh はwatchモードでの会話一覧の定期再集約を提供する。
package refresh

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/listigo/internal/model"
)

// ConversationLister は会話集約の実行インターフェース。
type ConversationLister interface {
	// ListConversations は会話集約パスを1回実行する。
	ListConversations(ctx context.Context) ([]model.Conversation, error)
}

// Scheduler は会話集約の定期実行を行う。
// 固定間隔のティッカーで集約パスを起動し、失敗してもスケジュール
// 自体は継続する（失敗起点のリトライは行わない）。
type Scheduler struct {
	lister ConversationLister
	logger *slog.Logger
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(lister ConversationLister, logger *slog.Logger) *Scheduler {
	return &Scheduler{lister: lister, logger: logger}
}

// Start は指定間隔でスケジューラを起動する。起動直後に1回実行し、
// コンテキストがキャンセルされるまで継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("会話集約スケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("会話集約スケジューラを停止しました")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce は集約パスを1回実行する。
func (s *Scheduler) RunOnce(ctx context.Context) {
	conversations, err := s.lister.ListConversations(ctx)
	if err != nil {
		s.logger.Error("会話集約パスの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("会話集約パスを実行しました",
		slog.Int("conversation_count", len(conversations)),
	)
}
