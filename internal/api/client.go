// Package api はlistigoバックエンドのRESTクライアントを提供する。
// エンドポイントごとの型付きメソッドと、ステータスコードに基づく
// エラー分類（不在・認可・検証・通信）を含む。
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hitoshi/listigo/internal/model"
)

// TokenSource は各リクエストに付与するアクセストークンの供給元。
// セッションストアが実装する。未認証の場合は空文字列を返す。
type TokenSource interface {
	AccessToken() string
}

// anonymousTokens はトークンを一切付与しないTokenSource。
type anonymousTokens struct{}

func (anonymousTokens) AccessToken() string { return "" }

// Client はlistigoバックエンドのAPIクライアント。
// 送信前にレートリミッタで待機し、リクエストごとに相関IDを発行する。
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter
	tokens     TokenSource
}

// NewClient はClientの新しいインスタンスを生成する。
// tokensがnilの場合は常に匿名でリクエストする。
// limiterがnilの場合はレート制限を行わない。
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger, limiter *rate.Limiter, tokens TokenSource) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	if tokens == nil {
		tokens = anonymousTokens{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
		limiter:    limiter,
		tokens:     tokens,
	}
}

// do はリクエストを実行し、2xxレスポンスのボディをoutへデコードする。
// outがnilの場合はボディを捨てる。204はボディなしの成功として扱う。
func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if token := c.tokens.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("APIリクエストの送信に失敗しました",
			slog.String("method", method),
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return model.NewTransportError(0, fmt.Sprintf("リクエストの送信に失敗しました: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.classifyError(method, endpoint, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.NewTransportError(resp.StatusCode, fmt.Sprintf("レスポンスボディの読み取りに失敗しました: %v", err))
	}

	if err := json.Unmarshal(data, out); err != nil {
		// 2xxなのにJSONでないボディ（HTMLなど）は通信エラーとして扱う
		c.logger.Error("APIレスポンスのパースに失敗しました",
			slog.String("method", method),
			slog.String("endpoint", endpoint),
			slog.Int("http_status", resp.StatusCode),
			slog.String("error", err.Error()),
		)
		return model.NewTransportError(resp.StatusCode, "サーバーからJSON形式でない応答を受信しました")
	}

	return nil
}

// classifyError は非2xxレスポンスをエラー分類に写像する。
// 404 → 不在、401/403 → 認可、400/422 → 検証、その他 → 通信。
func (c *Client) classifyError(method, endpoint string, resp *http.Response) error {
	message := fmt.Sprintf("APIリクエストが失敗しました: %s %s", method, endpoint)

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if readErr == nil && len(data) > 0 {
		var errResp model.ErrorResponse
		if err := json.Unmarshal(data, &errResp); err == nil && errResp.Message != "" {
			message = errResp.Message
			if len(errResp.Errors) > 0 {
				var details []string
				for _, msgs := range errResp.Errors {
					details = append(details, msgs...)
				}
				message += ": " + strings.Join(details, ", ")
			}
		}
	}

	c.logger.Warn("APIがエラーステータスを返しました",
		slog.String("method", method),
		slog.String("endpoint", endpoint),
		slog.Int("http_status", resp.StatusCode),
		slog.String("message", message),
	)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return model.NewAbsenceError(resp.StatusCode, message)
	case http.StatusUnauthorized, http.StatusForbidden:
		return model.NewAuthorizationError(resp.StatusCode, message)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return model.NewValidationError(message)
	default:
		return model.NewTransportError(resp.StatusCode, message)
	}
}
