// Package app はアプリケーションの初期化と起動モードごとの配線を提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/listigo/internal/api"
	"github.com/hitoshi/listigo/internal/config"
	"github.com/hitoshi/listigo/internal/conversation"
	"github.com/hitoshi/listigo/internal/favorites"
	"github.com/hitoshi/listigo/internal/kvstore"
	"github.com/hitoshi/listigo/internal/logger"
	"github.com/hitoshi/listigo/internal/metrics"
	"github.com/hitoshi/listigo/internal/security"
	"github.com/hitoshi/listigo/internal/session"
)

// Init はアプリケーションの初期化を行う。
// .envがあれば読み込み、JSON構造化ログをセットアップし、
// 環境変数からConfigを読み込む。
func Init(w io.Writer) (*config.Config, error) {
	// .envは任意。存在しなくてもエラーにしない
	_ = godotenv.Load()

	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。出力はoutへ、ログはlogWriterへ書く。
func Run(out, logWriter io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// help は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHelp {
		printUsage(out)
		return nil
	}

	cfg, err := Init(logWriter)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting listigo client",
		slog.String("command", string(cmd)),
		slog.String("api_base_url", cfg.APIBaseURL),
	)

	env, err := newEnv(cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	// セッション復元は保護された画面の描画より先に必ず完了させる。
	// 失敗しても匿名にフォールバックするだけでエラーにはならない。
	ctx := context.Background()
	if err := env.Session.Restore(ctx); err != nil {
		return fmt.Errorf("session restore failed: %w", err)
	}

	rest := args[1:]
	switch cmd {
	case CommandLogin:
		return runLogin(ctx, out, env, rest)
	case CommandLogout:
		return runLogout(ctx, out, env)
	case CommandRegister:
		return runRegister(ctx, out, env, rest)
	case CommandListings:
		return runListings(ctx, out, env, rest)
	case CommandConversations:
		return runConversations(ctx, out, env)
	case CommandChat:
		return runChat(ctx, out, os.Stdin, env, rest)
	case CommandFavorites:
		return runFavorites(ctx, out, env, rest)
	case CommandProfile:
		return runProfile(ctx, out, env, rest)
	case CommandWatch:
		return runWatch(out, env)
	default:
		printUsage(out)
		return nil
	}
}

// Env は1回の起動で共有される依存関係一式。
type Env struct {
	Config        *config.Config
	Store         kvstore.Store
	Session       *session.Store
	Client        *api.Client
	Favorites     *favorites.Index
	Conversations *conversation.Service
	Sanitizer     security.ContentSanitizer
	Collector     *metrics.Collector
	Registry      *prometheus.Registry
}

// Close は保持しているリソースを解放する。
func (e *Env) Close() {
	if e.Store != nil {
		e.Store.Close()
	}
}

// newEnv は全依存関係をワイヤリングする。
func newEnv(cfg *config.Config) (*Env, error) {
	store, err := kvstore.NewSQLite(cfg.StateDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	log := slog.Default()
	sess := session.NewStore(store, log)

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	client := api.NewClient(
		cfg.APIBaseURL,
		&http.Client{Timeout: cfg.HTTPTimeout},
		log,
		limiter,
		sess,
	)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	sanitizer := security.NewContentSanitizer()
	favIndex := favorites.NewIndex(store, sess, log)
	convService := conversation.NewService(
		client, sess, sanitizer, collector, log, cfg.AggregateMaxConcurrent,
	)

	return &Env{
		Config:        cfg,
		Store:         store,
		Session:       sess,
		Client:        client,
		Favorites:     favIndex,
		Conversations: convService,
		Sanitizer:     sanitizer,
		Collector:     collector,
		Registry:      registry,
	}, nil
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `listigo - marketplace terminal client

Usage:
  listigo login <email> <password>
  listigo logout
  listigo register <email> <password> <name> <phone>
  listigo listings [mine]
  listigo conversations
  listigo chat <listingID>
  listigo favorites [add <listingID> | remove <listingID>]
  listigo profile [update <name> <phone> | password <old> <new>]
  listigo watch
  listigo help
`)
}
