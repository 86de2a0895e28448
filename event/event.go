package event

import (
	"log/slog"
	"time"

	"github.com/sat8bit/firstcontact/leader"
	"github.com/sat8bit/firstcontact/resource"
)

type Kind string

const (
	KindHighlight     Kind = "highlight"
	KindExchange      Kind = "exchange"
	KindNews          Kind = "news"
	KindResource      Kind = "resource"
	KindResourceLevel Kind = "resource_level"
	KindSystem        Kind = "system"
	KindLog           Kind = "log"
	KindError         Kind = "error"
	KindEnd           Kind = "end"
)

// ExchangeStatus はやり取り1件の状態です。
type ExchangeStatus string

const (
	StatusPending  ExchangeStatus = "pending"
	StatusResolved ExchangeStatus = "resolved"
	StatusFailed   ExchangeStatus = "failed"
)

// Exchange は会話ストアの1エントリの変化を表します。
type Exchange struct {
	ID       string
	Role     string
	Leader   string
	Emissary string
	Message  string
	Response string
	Status   ExchangeStatus
	// Consequence は帰結アクション(ミサイル攻撃)によるやり取りであることを示します。
	Consequence bool
}

type News struct {
	Leader    string
	Narrative string
	ImageURL  string
	// ImageFailed は画像生成が失敗し、画像を表示しないことを示します。
	ImageFailed bool
}

type ResourceLevel struct {
	From resource.Level
	To   resource.Level
}

// Event はバスに流れるメッセージです。
// Kind に応じて対応するペイロードだけが設定されます。
type Event struct {
	Kind      Kind
	At        time.Time
	SessionID string
	Text      string

	// Highlight が nil の KindHighlight はハイライト解除を表します。
	Highlight *leader.Position
	Exchange  *Exchange
	Resource  *resource.State
	Level     *ResourceLevel
	News      *News

	// LogLevel is set for KindLog events.
	LogLevel slog.Level
}
