package security

import "testing"

func TestSanitize(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "プレーンテキストはそのまま",
			input: "まだ出品されていますか？",
			want:  "まだ出品されていますか？",
		},
		{
			name:  "空文字列",
			input: "",
			want:  "",
		},
		{
			name:  "scriptタグを除去",
			input: `こんにちは<script>alert("x")</script>`,
			want:  "こんにちは",
		},
		{
			name:  "タグを除去して本文を残す",
			input: "<b>値下げ</b>できますか",
			want:  "値下げできますか",
		},
		{
			name:  "前後の空白を整える",
			input: "  取引お願いします  ",
			want:  "取引お願いします",
		},
		{
			name:  "imgタグのonerror属性ごと除去",
			input: `<img src="x" onerror="alert(1)">写真を見ました`,
			want:  "写真を見ました",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// 同一入力に対して常に同一出力を返すこと。
func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewContentSanitizer()
	input := `<b>値下げ</b>できますか`

	first := sanitizer.Sanitize(input)
	second := sanitizer.Sanitize(first)
	if first != second {
		t.Errorf("Sanitize(Sanitize(x)) = %q, want %q", second, first)
	}
}
