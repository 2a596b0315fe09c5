package app

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{"引数なしはヘルプ", nil, CommandHelp},
		{"login", []string{"login", "taro@example.com", "secret"}, CommandLogin},
		{"logout", []string{"logout"}, CommandLogout},
		{"register", []string{"register"}, CommandRegister},
		{"listings", []string{"listings"}, CommandListings},
		{"conversations", []string{"conversations"}, CommandConversations},
		{"chat", []string{"chat", "42"}, CommandChat},
		{"favorites", []string{"favorites"}, CommandFavorites},
		{"profile", []string{"profile"}, CommandProfile},
		{"watch", []string{"watch"}, CommandWatch},
		{"help", []string{"help"}, CommandHelp},
		{"未知のコマンドはヘルプ", []string{"frobnicate"}, CommandHelp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCommand(tt.args)
			if got != tt.want {
				t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}
