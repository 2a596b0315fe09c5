package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandLogin はログインを実行することを示す。
	CommandLogin Command = "login"
	// CommandLogout はログアウトを実行することを示す。
	CommandLogout Command = "logout"
	// CommandRegister は新規ユーザー登録を実行することを示す。
	CommandRegister Command = "register"
	// CommandListings は出品の閲覧を示す。
	CommandListings Command = "listings"
	// CommandConversations は会話一覧の表示を示す。
	CommandConversations Command = "conversations"
	// CommandChat はチャットセッションを開くことを示す。
	CommandChat Command = "chat"
	// CommandFavorites はお気に入りの操作を示す。
	CommandFavorites Command = "favorites"
	// CommandProfile はプロフィールの表示・更新を示す。
	CommandProfile Command = "profile"
	// CommandWatch は定期集約とステータスサーバーの常駐モードを示す。
	CommandWatch Command = "watch"
	// CommandHelp は使い方の表示を示す。
	CommandHelp Command = "help"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandHelpを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandHelp
	}

	switch args[0] {
	case "login":
		return CommandLogin
	case "logout":
		return CommandLogout
	case "register":
		return CommandRegister
	case "listings":
		return CommandListings
	case "conversations":
		return CommandConversations
	case "chat":
		return CommandChat
	case "favorites":
		return CommandFavorites
	case "profile":
		return CommandProfile
	case "watch":
		return CommandWatch
	default:
		return CommandHelp
	}
}
