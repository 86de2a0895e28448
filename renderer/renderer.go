package renderer

import (
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sat8bit/firstcontact/bus"
	"github.com/sat8bit/firstcontact/leader"
	"github.com/sat8bit/firstcontact/resource"
	"github.com/sat8bit/firstcontact/topic"
)

// Renderer は、セッションのレンダリングを行うコンポーネントが満たすべきインターフェースです。
type Renderer interface {
	// Render は、セッション中のレンダリング処理を開始します。
	// バスが閉じられると処理を終え、wg に完了を通知します。
	Render(bus bus.Bus, wg *sync.WaitGroup) error

	// Finalize は、セッション終了後の最終処理を行います。Render の完了後に呼びます。
	Finalize(report Report) error
}

// Report はセッション終了時の集計です。
type Report struct {
	SessionID string
	Species   string
	StartedAt time.Time
	EndedAt   time.Time
	Reason    string
	Exchanges int
	Resource  resource.State
	Leaders   []leader.Entry
	Headlines []*topic.Topic
}

// elapsed は a から b までの経過時間を "3 minutes" のように表します。
func elapsed(a, b time.Time) string {
	return strings.TrimSpace(humanize.RelTime(a, b, "", ""))
}
