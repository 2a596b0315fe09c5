package model

import (
	"testing"
	"time"
)

func TestParseSentAt(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
		ok    bool
	}{
		{
			// バックエンドのLocalDateTime表現（ゾーンなし）
			name:  "ゾーンなし秒精度",
			input: "2025-06-01T10:30:00",
			want:  time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
			ok:    true,
		},
		{
			name:  "ゾーンなしナノ秒精度",
			input: "2025-06-01T10:30:00.123456789",
			want:  time.Date(2025, 6, 1, 10, 30, 0, 123456789, time.UTC),
			ok:    true,
		},
		{
			name:  "RFC3339",
			input: "2025-06-01T10:30:00Z",
			want:  time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
			ok:    true,
		},
		{
			name:  "空文字列",
			input: "",
			ok:    false,
		},
		{
			name:  "解釈不能",
			input: "昨日のお昼ごろ",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseSentAt(tt.input)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("time = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSentTime_DelegatesToParseSentAt(t *testing.T) {
	m := MessageDTO{SentAt: "2025-06-01T10:30:00"}
	got, ok := m.SentTime()
	if !ok {
		t.Fatal("ok = false, want true")
	}
	if got.Hour() != 10 || got.Minute() != 30 {
		t.Errorf("time = %v", got)
	}
}

func TestFirstPhoto(t *testing.T) {
	withPhotos := ListingDTO{Photos: []string{"https://example.com/a.jpg", "https://example.com/b.jpg"}}
	if got := withPhotos.FirstPhoto(); got != "https://example.com/a.jpg" {
		t.Errorf("FirstPhoto() = %q, want 先頭写真", got)
	}

	empty := ListingDTO{}
	if got := empty.FirstPhoto(); got != DefaultPlaceholderImage {
		t.Errorf("FirstPhoto() = %q, want %q", got, DefaultPlaceholderImage)
	}

	blank := ListingDTO{Photos: []string{""}}
	if got := blank.FirstPhoto(); got != DefaultPlaceholderImage {
		t.Errorf("FirstPhoto() = %q, want %q（空URLはプレースホルダー扱い）", got, DefaultPlaceholderImage)
	}
}
