package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/listigo/internal/chat"
	"github.com/hitoshi/listigo/internal/metrics"
	"github.com/hitoshi/listigo/internal/model"
	"github.com/hitoshi/listigo/internal/worker/refresh"
)

// runLogin はログインを実行し、セッションを永続化する。
func runLogin(ctx context.Context, out io.Writer, env *Env, args []string) error {
	if len(args) < 2 {
		return model.NewValidationError("usage: listigo login <email> <password>")
	}

	auth, err := env.Client.Login(ctx, model.LoginRequest{
		Email:    args[0],
		Password: args[1],
	})
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}

	if err := env.Session.Login(ctx, auth); err != nil {
		return err
	}

	fmt.Fprintf(out, "ログインしました: %s (%s)\n", auth.User.Name, auth.User.Email)
	return nil
}

// runLogout はセッションを破棄する。
func runLogout(ctx context.Context, out io.Writer, env *Env) error {
	if err := env.Session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "ログアウトしました")
	return nil
}

// runRegister は新規ユーザーを登録する。
func runRegister(ctx context.Context, out io.Writer, env *Env, args []string) error {
	if len(args) < 4 {
		return model.NewValidationError("usage: listigo register <email> <password> <name> <phone>")
	}

	created, err := env.Client.Register(ctx, model.UserDto{
		Email:    args[0],
		Password: args[1],
		Name:     args[2],
		Phone:    args[3],
	})
	if err != nil {
		return fmt.Errorf("register request failed: %w", err)
	}

	fmt.Fprintf(out, "登録しました: %s (%s)\n", created.Name, created.Email)
	return nil
}

// runListings は出品一覧を表示する。"mine"指定時は自分の出品のみ。
func runListings(ctx context.Context, out io.Writer, env *Env, args []string) error {
	var (
		listings []model.ListingDTO
		err      error
	)
	if len(args) > 0 && args[0] == "mine" {
		listings, err = env.Client.GetMyListings(ctx)
	} else {
		listings, err = env.Client.GetAllListings(ctx)
	}
	if err != nil {
		if model.IsAbsence(err) {
			fmt.Fprintln(out, "出品はありません")
			return nil
		}
		return fmt.Errorf("listings request failed: %w", err)
	}

	for _, l := range listings {
		fmt.Fprintf(out, "%8d  %-40s  %.2f  %s\n", l.ListingID, l.Title, l.Price, l.Location)
	}
	fmt.Fprintf(out, "%d件\n", len(listings))
	return nil
}

// runConversations は会話集約パスを1回実行して一覧を表示する。
func runConversations(ctx context.Context, out io.Writer, env *Env) error {
	conversations, err := env.Conversations.ListConversations(ctx)
	if err != nil {
		return err
	}

	if len(conversations) == 0 {
		fmt.Fprintln(out, "まだ会話はありません")
		return nil
	}

	for _, c := range conversations {
		fmt.Fprintf(out, "%8d  %-24s  %-32s  %s\n",
			c.ListingID, c.CounterpartName, c.ListingTitle, c.LastMessage)
	}
	return nil
}

// runChat はチャットセッションを開き、標準入力の各行を送信する。
// ポーリングはバックグラウンドで継続し、EOFで終了する。
func runChat(ctx context.Context, out io.Writer, in io.Reader, env *Env, args []string) error {
	if len(args) < 1 {
		return model.NewValidationError("usage: listigo chat <listingID>")
	}
	listingID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return model.NewValidationError("出品IDは数値で指定してください")
	}

	identity := env.Session.Identity()
	if identity == nil {
		return model.NewCredentialError("チャットを開くにはログインが必要です")
	}

	listing, err := env.Client.GetListing(ctx, listingID)
	if err != nil {
		return fmt.Errorf("listing fetch failed: %w", err)
	}

	seed, err := env.Client.GetMessages(ctx, listingID)
	if err != nil {
		if !model.IsAbsence(err) && !model.IsAuthorization(err) {
			return fmt.Errorf("messages fetch failed: %w", err)
		}
		seed = nil
	}

	counterpartID := chat.ResolveCounterpart(identity.UserID, *listing, seed)
	sess := chat.Open(
		env.Client, env.Sanitizer, env.Collector, slog.Default(),
		*identity, *listing, counterpartID, seed,
	)
	defer sess.Close()

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go sess.Run(pollCtx, env.Config.PollInterval)

	for _, m := range sess.Messages() {
		printMessage(out, identity.UserID, m)
	}
	fmt.Fprintln(out, "--- メッセージを入力してください（EOFで終了） ---")

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		sent, err := sess.Send(ctx, scanner.Text())
		if err != nil {
			if model.IsValidation(err) {
				continue
			}
			fmt.Fprintf(out, "送信に失敗しました: %v\n", err)
			continue
		}
		printMessage(out, identity.UserID, *sent)
	}
	return scanner.Err()
}

func printMessage(out io.Writer, selfID string, m model.MessageDTO) {
	marker := "<"
	if m.SenderID == selfID {
		marker = ">"
	}
	fmt.Fprintf(out, "%s [%s] %s\n", marker, m.SentAt, m.Content)
}

// runFavorites はお気に入りの表示・追加・削除を行う。
func runFavorites(ctx context.Context, out io.Writer, env *Env, args []string) error {
	if len(args) == 0 {
		favs, err := env.Favorites.List(ctx)
		if err != nil {
			return err
		}
		for _, f := range favs {
			fmt.Fprintf(out, "%8d  %-40s  %.2f\n", f.ID, f.Title, f.Price)
		}
		fmt.Fprintf(out, "%d件\n", len(favs))
		return nil
	}

	if len(args) < 2 {
		return model.NewValidationError("usage: listigo favorites [add <listingID> | remove <listingID>]")
	}
	listingID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return model.NewValidationError("出品IDは数値で指定してください")
	}

	switch args[0] {
	case "add":
		listing, err := env.Client.GetListing(ctx, listingID)
		if err != nil {
			return fmt.Errorf("listing fetch failed: %w", err)
		}
		if err := env.Favorites.Add(ctx, *listing); err != nil {
			return err
		}
		fmt.Fprintf(out, "お気に入りに追加しました: %s\n", listing.Title)
		return nil
	case "remove":
		if err := env.Favorites.Remove(ctx, listingID); err != nil {
			return err
		}
		fmt.Fprintln(out, "お気に入りから外しました")
		return nil
	default:
		return model.NewValidationError("usage: listigo favorites [add <listingID> | remove <listingID>]")
	}
}

// runProfile はプロフィールの表示・更新とパスワード変更を行う。
func runProfile(ctx context.Context, out io.Writer, env *Env, args []string) error {
	identity := env.Session.Identity()
	if identity == nil {
		return model.NewCredentialError("プロフィールを表示するにはログインが必要です")
	}

	if len(args) == 0 {
		fmt.Fprintf(out, "userId:    %s\nname:      %s\nemail:     %s\nphone:     %s\ncreatedAt: %s\n",
			identity.UserID, identity.Name, identity.Email, identity.Phone, identity.CreatedAt)
		return nil
	}

	switch args[0] {
	case "update":
		if len(args) < 3 {
			return model.NewValidationError("usage: listigo profile update <name> <phone>")
		}
		updated, err := env.Client.UpdateProfile(ctx, model.UserDto{
			Email: identity.Email,
			Name:  args[1],
			Phone: args[2],
		})
		if err != nil {
			return fmt.Errorf("profile update failed: %w", err)
		}
		if err := env.Session.UpdateIdentity(ctx, *updated); err != nil {
			return err
		}
		fmt.Fprintln(out, "プロフィールを更新しました")
		return nil
	case "password":
		if len(args) < 3 {
			return model.NewValidationError("usage: listigo profile password <old> <new>")
		}
		if err := env.Client.ChangePassword(ctx, model.ChangePasswordRequest{
			OldPassword: args[1],
			NewPassword: args[2],
		}); err != nil {
			return fmt.Errorf("password change failed: %w", err)
		}
		fmt.Fprintln(out, "パスワードを変更しました")
		return nil
	default:
		return model.NewValidationError("usage: listigo profile [update <name> <phone> | password <old> <new>]")
	}
}

// runWatch は常駐モードで起動する。会話集約スケジューラを起動し、
// /healthzと/metricsを提供するステータスサーバーを立てる。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWatch(out io.Writer, env *Env) error {
	if !env.Session.IsAuthenticated() {
		return model.NewCredentialError("watchモードにはログインが必要です")
	}

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", metrics.Handler(env.Registry))

	server := &http.Server{
		Addr:         ":" + env.Config.StatusPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down watch mode...")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("status server shutdown failed", slog.String("error", err.Error()))
		}
	}()

	go func() {
		slog.Info("status server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("status server listen error", slog.String("error", err.Error()))
		}
	}()

	fmt.Fprintf(out, "watchモードを開始しました (interval=%s, status=:%s)\n",
		env.Config.WatchInterval, env.Config.StatusPort)

	// 集約スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler := refresh.NewScheduler(env.Conversations, slog.Default())
	scheduler.Start(ctx, env.Config.WatchInterval)

	slog.Info("watch mode stopped gracefully")
	return nil
}
