// Package engine は、異星人の使節と各国指導者とのやり取りを管理するセッションの状態機械です。
//
// 公開メソッドは turn.Manager で直列化されます。生成サービスの呼び出しは goroutine で行い、
// 完了時に再び実行権を取得して結果を反映します。
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sat8bit/firstcontact/bus"
	"github.com/sat8bit/firstcontact/conversation"
	"github.com/sat8bit/firstcontact/event"
	"github.com/sat8bit/firstcontact/leader"
	"github.com/sat8bit/firstcontact/llm"
	"github.com/sat8bit/firstcontact/metrics"
	"github.com/sat8bit/firstcontact/prompt"
	"github.com/sat8bit/firstcontact/resource"
	"github.com/sat8bit/firstcontact/simclock"
	"github.com/sat8bit/firstcontact/species"
	"github.com/sat8bit/firstcontact/topic"
	"github.com/sat8bit/firstcontact/turn"
)

const (
	DefaultCasualties    = 10000
	DefaultSympathyDelta = 5
)

// Options はセッションの設定です。
type Options struct {
	SessionID       string
	TranscriptLimit int
	Casualties      int
	SympathyDelta   int
	Sampling        llm.Sampling
	Headlines       []*topic.Topic
	ResourceMax     float64
	ResourceStep    float64

	// Clock は Start で購読されます。nil の場合は HandleTick を直接呼びます。
	Clock *simclock.Clock
}

func (o Options) withDefaults() Options {
	if o.SessionID == "" {
		o.SessionID = uuid.NewString()
	}
	if o.Casualties <= 0 {
		o.Casualties = DefaultCasualties
	}
	if o.SympathyDelta == 0 {
		o.SympathyDelta = DefaultSympathyDelta
	}
	if o.Sampling == (llm.Sampling{}) {
		o.Sampling = llm.DefaultSampling()
	}
	return o
}

// Engine は1セッション分の外交の状態機械です。
type Engine struct {
	registry *leader.Registry
	catalog  *species.Catalog
	text     llm.TextGenerator
	image    llm.ImageGenerator
	bus      bus.Bus
	turns    turn.Manager
	opts     Options

	// ctx は非同期のサービス呼び出しの寿命です。Close でキャンセルされます。
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// 以下は実行権を持つハンドラだけが触ります
	state          State
	species        *species.Profile
	speciesContext string
	highlight      *leader.Position
	exchangeOpen   bool
	store          *conversation.Store
	resource       *resource.Clock
	pending        map[string]pendingRequest
	consequence    ConsequenceState
	news           *event.News
	newsID         string
	lastOutcome    Outcome
	unsubscribe    func()
	closed         bool
}

type pendingRequest struct {
	ExchangeRequest
	startedAt time.Time
}

// New は種族が未選択の Engine を生成します。
func New(
	ctx context.Context,
	registry *leader.Registry,
	catalog *species.Catalog,
	text llm.TextGenerator,
	image llm.ImageGenerator,
	b bus.Bus,
	turnManager turn.Manager,
	opts Options,
) *Engine {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(ctx)

	return &Engine{
		registry:    registry,
		catalog:     catalog,
		text:        text,
		image:       image,
		bus:         b,
		turns:       turnManager,
		opts:        opts,
		ctx:         ctx,
		cancel:      cancel,
		state:       StateSpeciesUnselected,
		store:       conversation.NewStore(opts.TranscriptLimit),
		resource:    resource.New(opts.ResourceMax, opts.ResourceStep),
		pending:     make(map[string]pendingRequest),
		consequence: ConsequenceIdle,
	}
}

func (e *Engine) SessionID() string {
	return e.opts.SessionID
}

// Start は時計を購読し、セッション開始を通知します。
func (e *Engine) Start(ctx context.Context) error {
	if err := e.turns.Acquire(ctx); err != nil {
		return fmt.Errorf("engine.Start: %w", err)
	}
	defer e.turns.Release()

	if e.closed {
		return fmt.Errorf("engine.Start: %w", ErrClosed)
	}
	if e.opts.Clock != nil && e.unsubscribe == nil {
		e.unsubscribe = e.opts.Clock.Subscribe(func(tk simclock.Tick) {
			e.HandleTick(e.ctx, tk)
		})
	}

	state := e.resource.State()
	metrics.SetResource(state.Current)
	slog.InfoContext(ctx, "session started", "session", e.opts.SessionID, "leaders", e.registry.Len())
	e.broadcast(&event.Event{Kind: event.KindResource, Resource: &state})
	e.broadcast(&event.Event{
		Kind: event.KindSystem,
		Text: fmt.Sprintf("A ship the size of New Jersey enters Earth's orbit. %d world leaders are watching.", e.registry.Len()),
	})
	return nil
}

// Close は時計の購読を解除し、応答待ちを破棄して実行中の呼び出しの終了を待ちます。
func (e *Engine) Close() {
	if err := e.turns.Acquire(context.Background()); err != nil {
		return
	}
	if e.closed {
		e.turns.Release()
		return
	}
	e.closed = true
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	abandoned := e.store.FailPending()
	e.pending = make(map[string]pendingRequest)
	e.newsID = ""
	e.cancel()
	e.turns.Release()

	if abandoned > 0 {
		slog.Info("abandoned pending exchanges", "count", abandoned)
	}
	e.Wait()
}

// Wait は実行中のサービス呼び出しがすべて反映されるまで待ちます。
func (e *Engine) Wait() {
	e.wg.Wait()
}

// SelectSpecies はプレイヤーの種族を確定します。種族選択前だけ有効です。
func (e *Engine) SelectSpecies(ctx context.Context, name string) error {
	if err := e.turns.Acquire(ctx); err != nil {
		return fmt.Errorf("engine.SelectSpecies: %w", err)
	}
	defer e.turns.Release()

	if e.closed {
		return fmt.Errorf("engine.SelectSpecies: %w", ErrClosed)
	}
	if e.state != StateSpeciesUnselected {
		return fmt.Errorf("engine.SelectSpecies: %w", ErrSpeciesAlreadySelected)
	}
	p, ok := e.catalog.Get(name)
	if !ok {
		return fmt.Errorf("engine.SelectSpecies: %w: %q", ErrUnknownSpecies, name)
	}
	e.selectSpecies(ctx, p)
	return nil
}

// SkipSpecies は選択画面を閉じた場合の扱いで、既定の種族で開始します。
func (e *Engine) SkipSpecies(ctx context.Context) error {
	if err := e.turns.Acquire(ctx); err != nil {
		return fmt.Errorf("engine.SkipSpecies: %w", err)
	}
	defer e.turns.Release()

	if e.closed {
		return fmt.Errorf("engine.SkipSpecies: %w", ErrClosed)
	}
	if e.state != StateSpeciesUnselected {
		return fmt.Errorf("engine.SkipSpecies: %w", ErrSpeciesAlreadySelected)
	}
	e.selectSpecies(ctx, e.catalog.Default())
	return nil
}

func (e *Engine) selectSpecies(ctx context.Context, p species.Profile) {
	e.species = &p
	e.speciesContext = prompt.SpeciesContext(p, e.opts.Headlines)
	e.state = StateIdle

	slog.InfoContext(ctx, "species selected", "species", p.Name, "headlines", len(e.opts.Headlines))
	e.broadcast(&event.Event{
		Kind: event.KindSystem,
		Text: fmt.Sprintf("You speak for the %s.", p.Name),
	})
}

// HighlightLeader は指導者を選択します。未知の Role はハイライトを解除します。
// どちらの場合もハイライトイベントを送ります。
func (e *Engine) HighlightLeader(ctx context.Context, role string) (leader.Position, bool) {
	if err := e.turns.Acquire(ctx); err != nil {
		return leader.Position{}, false
	}
	defer e.turns.Release()

	if e.closed {
		return leader.Position{}, false
	}

	pos, ok := e.registry.Position(role)
	if ok {
		e.highlight = &pos
		e.broadcast(&event.Event{Kind: event.KindHighlight, Highlight: &pos, Text: pos.Role})
	} else {
		e.highlight = nil
		e.broadcast(&event.Event{Kind: event.KindHighlight, Text: "none"})
	}
	return pos, ok
}

// BeginExchange はやり取りの画面を開き、会話ログを消去します。
// Idle で指導者がハイライトされている場合だけ有効です。
func (e *Engine) BeginExchange(ctx context.Context) bool {
	if err := e.turns.Acquire(ctx); err != nil {
		return false
	}
	defer e.turns.Release()

	if e.closed || e.state != StateIdle || e.highlight == nil {
		return false
	}

	e.store.Clear()
	e.pending = make(map[string]pendingRequest)
	e.exchangeOpen = true
	e.broadcast(&event.Event{
		Kind: event.KindSystem,
		Text: fmt.Sprintf("Channel open to %s.", e.highlight.Role),
	})
	return true
}

// EndExchange はやり取りの画面を閉じます。応答待ちは失敗として確定し、遅れて届いた応答は捨てます。
func (e *Engine) EndExchange(ctx context.Context) {
	if err := e.turns.Acquire(ctx); err != nil {
		return
	}
	defer e.turns.Release()

	if e.closed {
		return
	}

	failed := e.store.FailPending()
	for id, req := range e.pending {
		if req.Kind == KindConsequence {
			e.consequence = ConsequenceIdle
		}
		delete(e.pending, id)
	}
	if e.state == StateExchangePending {
		e.state = StateIdle
	}
	if failed > 0 {
		e.lastOutcome = OutcomeExchangeFailed
		slog.InfoContext(ctx, "exchange closed with pending requests", "count", failed)
	}
	e.exchangeOpen = false
	e.broadcast(&event.Event{Kind: event.KindSystem, Text: "Channel closed."})
}

// HandleTick は時計の進みを資源に反映します。
func (e *Engine) HandleTick(ctx context.Context, tk simclock.Tick) {
	if err := e.turns.Acquire(ctx); err != nil {
		return
	}
	defer e.turns.Release()

	if e.closed {
		return
	}
	if !e.resource.Tick(tk) {
		return
	}
	state := e.resource.State()
	metrics.SetResource(state.Current)
	e.broadcast(&event.Event{Kind: event.KindResource, Resource: &state})
}

// ResourceState は実行権を取らずに資源の現在値を返します。
func (e *Engine) ResourceState() resource.State {
	return e.resource.State()
}

// Snapshot は現在の画面表示用の状態を返します。
// 実行権を取得できなかった場合は SessionID だけを持つ View を返します。
func (e *Engine) Snapshot(ctx context.Context) View {
	if err := e.turns.Acquire(ctx); err != nil {
		return View{SessionID: e.opts.SessionID}
	}
	defer e.turns.Release()

	state := e.resource.State()
	v := View{
		SessionID:     e.opts.SessionID,
		State:         e.state,
		ExchangeOpen:  e.exchangeOpen,
		History:       e.store.History(),
		Pending:       len(e.pending),
		Resource:      state,
		ResourceLevel: resource.LevelOf(state),
		Consequence:   e.consequence,
		LastOutcome:   e.lastOutcome,
	}
	if e.species != nil {
		p := *e.species
		v.Species = &p
	}
	if e.highlight != nil {
		h := *e.highlight
		v.Highlight = &h
	}
	if e.news != nil {
		n := *e.news
		v.News = &n
	}
	return v
}

func (e *Engine) broadcast(ev *event.Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	ev.SessionID = e.opts.SessionID
	if err := e.bus.Broadcast(ev); err != nil {
		slog.Debug("broadcast failed", "kind", ev.Kind, "error", err)
	}
}
