package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

// TestSetup_EmitsStructuredJSON はJSON構造化ログが出力されることを検証する。
func TestSetup_EmitsStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&buf)

	log.Info("テストメッセージ", slog.String("key", "value"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("ログ出力をJSONとしてパースできません: %v", err)
	}
	if entry["msg"] != "テストメッセージ" {
		t.Errorf("msg = %v, want テストメッセージ", entry["msg"])
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want value", entry["key"])
	}
}

// TestSetup_SuppressesDebugLevel はデバッグレベルが既定で抑制されることを検証する。
func TestSetup_SuppressesDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&buf)

	log.Debug("出力されないはずのメッセージ")

	if buf.Len() != 0 {
		t.Errorf("デバッグログが出力されています: %s", buf.String())
	}
}

// TestSetupDefault_ReplacesGlobalLogger はグローバルロガーが差し替わることを検証する。
func TestSetupDefault_ReplacesGlobalLogger(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	var buf bytes.Buffer
	SetupDefault(&buf)

	slog.Info("グローバル経由のメッセージ")

	if buf.Len() == 0 {
		t.Error("グローバルロガーが差し替えられていません")
	}
}
