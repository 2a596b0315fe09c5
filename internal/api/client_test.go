package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/listigo/internal/model"
)

// --- テスト用バックエンド ---

type staticTokens struct {
	token string
}

var _ TokenSource = (*staticTokens)(nil)

func (s *staticTokens) AccessToken() string { return s.token }

func newTestLogger() *slog.Logger {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(serverURL string, tokens TokenSource) *Client {
	return NewClient(serverURL, nil, newTestLogger(), nil, tokens)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, payload any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("レスポンスの書き込みに失敗しました: %v", err)
	}
}

// --- リクエストの形 ---

func TestDo_SetsBearerAndRequestIDHeaders(t *testing.T) {
	var gotAuth, gotRequestID string
	router := chi.NewRouter()
	router.Get("/listings/all", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		writeJSON(t, w, http.StatusOK, []model.ListingDTO{})
	})
	server := httptest.NewServer(router)
	defer server.Close()

	client := newTestClient(server.URL, &staticTokens{token: "token-123"})
	if _, err := client.GetAllListings(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if gotAuth != "Bearer token-123" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer token-123")
	}
	if gotRequestID == "" {
		t.Error("X-Request-IDが付与されていません")
	}
}

func TestDo_AnonymousRequestOmitsAuthorizationHeader(t *testing.T) {
	var gotAuth string
	sawAuth := false
	router := chi.NewRouter()
	router.Get("/listings/all", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		sawAuth = true
		writeJSON(t, w, http.StatusOK, []model.ListingDTO{})
	})
	server := httptest.NewServer(router)
	defer server.Close()

	client := newTestClient(server.URL, nil)
	if _, err := client.GetAllListings(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !sawAuth {
		t.Fatal("リクエストがサーバーに届いていません")
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty", gotAuth)
	}
}

// --- エラー分類 ---

func TestDo_ErrorClassificationByStatusCode(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
		kind   string
	}{
		{"404は不在", http.StatusNotFound, model.IsAbsence, "absence"},
		{"401は認可", http.StatusUnauthorized, model.IsAuthorization, "authorization"},
		{"403は認可", http.StatusForbidden, model.IsAuthorization, "authorization"},
		{"400は検証", http.StatusBadRequest, model.IsValidation, "validation"},
		{"422は検証", http.StatusUnprocessableEntity, model.IsValidation, "validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := chi.NewRouter()
			router.Get("/listings/all", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(t, w, tt.status, model.ErrorResponse{Message: "だめでした"})
			})
			server := httptest.NewServer(router)
			defer server.Close()

			client := newTestClient(server.URL, nil)
			_, err := client.GetAllListings(context.Background())
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.check(err) {
				t.Errorf("err = %v, want %s kind", err, tt.kind)
			}
		})
	}
}

func TestDo_ServerErrorIsTransport(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/listings/all", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(router)
	defer server.Close()

	client := newTestClient(server.URL, nil)
	_, err := client.GetAllListings(context.Background())
	if !model.IsKind(err, model.KindTransport) {
		t.Errorf("err = %v, want transport kind", err)
	}
}

func TestDo_ErrorBodyMessageAndDetailsSurfaceInError(t *testing.T) {
	router := chi.NewRouter()
	router.Post("/auth/register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusBadRequest, model.ErrorResponse{
			Message: "入力内容に誤りがあります",
			Errors: map[string][]string{
				"email": {"メールアドレスの形式が不正です"},
			},
		})
	})
	server := httptest.NewServer(router)
	defer server.Close()

	client := newTestClient(server.URL, nil)
	_, err := client.Register(context.Background(), model.UserDto{Email: "bad"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "入力内容に誤りがあります") {
		t.Errorf("err = %v, サーバーのメッセージが含まれていません", err)
	}
	if !strings.Contains(err.Error(), "メールアドレスの形式が不正です") {
		t.Errorf("err = %v, フィールド別の詳細が含まれていません", err)
	}
}

func TestDo_NonJSONSuccessBodyIsTransportError(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/listings/all", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><body>proxy error page</body></html>"))
	})
	server := httptest.NewServer(router)
	defer server.Close()

	client := newTestClient(server.URL, nil)
	_, err := client.GetAllListings(context.Background())
	if !model.IsKind(err, model.KindTransport) {
		t.Errorf("err = %v, want transport kind", err)
	}
}

func TestDo_ConnectionFailureIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // 接続先を先に畳んでおく

	client := newTestClient(server.URL, nil)
	_, err := client.GetAllListings(context.Background())
	if !model.IsKind(err, model.KindTransport) {
		t.Errorf("err = %v, want transport kind", err)
	}
}

// --- エンドポイント ---

func TestLogin_DecodesCredentialPair(t *testing.T) {
	router := chi.NewRouter()
	router.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req model.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("リクエストボディをパースできません: %v", err)
		}
		if req.Email != "taro@example.com" {
			t.Errorf("email = %q, want %q", req.Email, "taro@example.com")
		}
		writeJSON(t, w, http.StatusOK, model.AuthResponse{
			AccessToken: "access-token",
			User:        model.UserMetadata{UserID: "user-1", Email: req.Email},
		})
	})
	server := httptest.NewServer(router)
	defer server.Close()

	client := newTestClient(server.URL, nil)
	auth, err := client.Login(context.Background(), model.LoginRequest{
		Email:    "taro@example.com",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if auth.AccessToken != "access-token" {
		t.Errorf("AccessToken = %q, want %q", auth.AccessToken, "access-token")
	}
	if auth.User.UserID != "user-1" {
		t.Errorf("User.UserID = %q, want %q", auth.User.UserID, "user-1")
	}
}

func TestRefreshToken_ReturnsNewCredentialPair(t *testing.T) {
	router := chi.NewRouter()
	router.Post("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req model.RefreshTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("リクエストボディをパースできません: %v", err)
		}
		if req.RefreshToken != "refresh-old" {
			t.Errorf("refreshToken = %q, want %q", req.RefreshToken, "refresh-old")
		}
		writeJSON(t, w, http.StatusOK, model.AuthResponse{
			AccessToken:  "access-new",
			RefreshToken: "refresh-new",
		})
	})
	server := httptest.NewServer(router)
	defer server.Close()

	client := newTestClient(server.URL, nil)
	auth, err := client.RefreshToken(context.Background(), "refresh-old")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if auth.AccessToken != "access-new" {
		t.Errorf("AccessToken = %q, want %q", auth.AccessToken, "access-new")
	}
}

func TestUpdateProfile_UsesUsersProfilePath(t *testing.T) {
	router := chi.NewRouter()
	router.Put("/auth/users/profile", func(w http.ResponseWriter, r *http.Request) {
		var req model.UserDto
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("リクエストボディをパースできません: %v", err)
		}
		writeJSON(t, w, http.StatusOK, model.UserMetadata{
			UserID: "user-1",
			Name:   req.Name,
			Phone:  req.Phone,
		})
	})
	server := httptest.NewServer(router)
	defer server.Close()

	client := newTestClient(server.URL, nil)
	updated, err := client.UpdateProfile(context.Background(), model.UserDto{
		Name:  "jiro",
		Phone: "+81-90-1111-2222",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.Name != "jiro" {
		t.Errorf("Name = %q, want %q", updated.Name, "jiro")
	}
}

func TestChangePassword_UsesChangePasswordPath(t *testing.T) {
	var got model.ChangePasswordRequest
	router := chi.NewRouter()
	router.Put("/auth/users/profile/change-password", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("リクエストボディをパースできません: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(router)
	defer server.Close()

	client := newTestClient(server.URL, nil)
	if err := client.ChangePassword(context.Background(), model.ChangePasswordRequest{
		OldPassword: "old-secret",
		NewPassword: "new-secret",
	}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.OldPassword != "old-secret" || got.NewPassword != "new-secret" {
		t.Errorf("request = %+v", got)
	}
}

func TestGetMessages_UsesListingScopedPath(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/listings/{listingID}/messages", func(w http.ResponseWriter, r *http.Request) {
		if got := chi.URLParam(r, "listingID"); got != "42" {
			t.Errorf("listingID = %q, want %q", got, "42")
		}
		writeJSON(t, w, http.StatusOK, []model.MessageDTO{
			{MessageID: 1, SenderID: "buyer-1", ReceiverID: "me", ListingID: 42, Content: "hi"},
		})
	})
	server := httptest.NewServer(router)
	defer server.Close()

	client := newTestClient(server.URL, nil)
	messages, err := client.GetMessages(context.Background(), 42)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(messages) != 1 || messages[0].MessageID != 1 {
		t.Errorf("messages = %+v, want 1件", messages)
	}
}

func TestSendMessage_ReturnsServerConfirmedMessage(t *testing.T) {
	router := chi.NewRouter()
	router.Post("/listings/{listingID}/messages", func(w http.ResponseWriter, r *http.Request) {
		var msg model.MessageDTO
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Errorf("リクエストボディをパースできません: %v", err)
		}
		msg.MessageID = 99
		msg.SentAt = "2025-06-01T12:00:00"
		writeJSON(t, w, http.StatusOK, msg)
	})
	server := httptest.NewServer(router)
	defer server.Close()

	client := newTestClient(server.URL, nil)
	sent, err := client.SendMessage(context.Background(), model.MessageDTO{
		SenderID:   "me",
		ReceiverID: "buyer-1",
		ListingID:  10,
		Content:    "返信です",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sent.MessageID != 99 {
		t.Errorf("MessageID = %d, want 99", sent.MessageID)
	}
	if sent.SentAt == "" {
		t.Error("サーバー採番のsentAtが失われています")
	}
}

func TestDeleteMessages_AcceptsNoContent(t *testing.T) {
	router := chi.NewRouter()
	router.Delete("/listings/{listingID}/messages", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(router)
	defer server.Close()

	client := newTestClient(server.URL, nil)
	if err := client.DeleteMessages(context.Background(), 10); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestGetListingsByCategory_DelegatesToFilterEndpoint(t *testing.T) {
	router := chi.NewRouter()
	router.Post("/listings/filter", func(w http.ResponseWriter, r *http.Request) {
		var filter model.ListingFilterDTO
		if err := json.NewDecoder(r.Body).Decode(&filter); err != nil {
			t.Errorf("リクエストボディをパースできません: %v", err)
		}
		if filter.CategoryID != 7 {
			t.Errorf("categoryId = %d, want 7", filter.CategoryID)
		}
		writeJSON(t, w, http.StatusOK, []model.ListingDTO{
			{ListingID: 1, CategoryID: 7, Title: "該当出品"},
		})
	})
	server := httptest.NewServer(router)
	defer server.Close()

	client := newTestClient(server.URL, nil)
	listings, err := client.GetListingsByCategory(context.Background(), 7)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(listings) != 1 || listings[0].CategoryID != 7 {
		t.Errorf("listings = %+v", listings)
	}
}

func TestBlockUser_SendsBlockedID(t *testing.T) {
	var got model.BlockUserDTO
	router := chi.NewRouter()
	router.Post("/auth/block", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("リクエストボディをパースできません: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(router)
	defer server.Close()

	client := newTestClient(server.URL, nil)
	if err := client.BlockUser(context.Background(), "spammer-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.BlockedID != "spammer-1" {
		t.Errorf("BlockedID = %q, want %q", got.BlockedID, "spammer-1")
	}
}
