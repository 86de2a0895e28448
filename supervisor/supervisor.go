package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sat8bit/firstcontact/bus"
	"github.com/sat8bit/firstcontact/event"
	"github.com/sat8bit/firstcontact/resource"
)

// Supervisor は、セッションの進行を監視し、終了条件を満たしたら停止信号を送ります。
// 資源の段階が変わると resource_level イベントを送ります。
type Supervisor struct {
	maxExchanges   int
	endOnDepletion bool
	bus            bus.Bus
	cancelFunc     context.CancelFunc

	poll      func() resource.State
	pollEvery time.Duration

	mu        sync.Mutex
	exchanges int
	level     resource.Level
	sessionID string
	reason    string
	done      chan struct{}
}

// NewSupervisor は、新しい Supervisor を生成します。maxExchanges が 0 なら上限はありません。
func NewSupervisor(maxExchanges int, endOnDepletion bool, b bus.Bus, cancelFunc context.CancelFunc) *Supervisor {
	return &Supervisor{
		maxExchanges:   maxExchanges,
		endOnDepletion: endOnDepletion,
		bus:            b,
		cancelFunc:     cancelFunc,
		level:          resource.LevelOK,
		done:           make(chan struct{}),
	}
}

// PollResource は、資源の状態を every ごとに fn から直接読むようにします。Start より前に呼びます。
// バスの resource イベントを取りこぼしても枯渇を検知できます。
func (s *Supervisor) PollResource(fn func() resource.State, every time.Duration) {
	s.poll = fn
	s.pollEvery = every
}

// Start は、セッションの監視を開始します。
func (s *Supervisor) Start(ctx context.Context) {
	ch := s.bus.Subscribe()

	go func() {
		defer close(s.done)

		var tick <-chan time.Time
		if s.poll != nil && s.pollEvery > 0 {
			ticker := time.NewTicker(s.pollEvery)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-tick:
				s.mu.Lock()
				sessionID := s.sessionID
				s.mu.Unlock()
				if s.handleResource(sessionID, s.poll()) {
					return
				}
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if s.handle(ev) {
					return
				}
			}
		}
	}()
}

// Done は監視ループが終わると閉じられます。
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// handle はセッションを終了した場合に true を返します。
func (s *Supervisor) handle(ev *event.Event) bool {
	if ev.SessionID != "" {
		s.mu.Lock()
		s.sessionID = ev.SessionID
		s.mu.Unlock()
	}

	switch ev.Kind {
	case event.KindResource:
		if ev.Resource == nil {
			return false
		}
		return s.handleResource(ev.SessionID, *ev.Resource)

	case event.KindExchange:
		if ev.Exchange == nil || ev.Exchange.Status != event.StatusResolved {
			return false
		}
		s.mu.Lock()
		s.exchanges++
		reached := s.maxExchanges > 0 && s.exchanges >= s.maxExchanges
		s.mu.Unlock()

		if reached {
			return s.end(ev.SessionID, fmt.Sprintf("%d exchanges completed.", s.maxExchanges))
		}
	}
	return false
}

func (s *Supervisor) handleResource(sessionID string, st resource.State) bool {
	level := resource.LevelOf(st)

	s.mu.Lock()
	prev := s.level
	s.level = level
	s.mu.Unlock()

	if level != prev {
		s.broadcast(&event.Event{
			Kind:      event.KindResourceLevel,
			SessionID: sessionID,
			Level:     &event.ResourceLevel{From: prev, To: level},
			Text:      levelText(level, st),
		})
	}
	if level == resource.LevelDepleted && s.endOnDepletion {
		return s.end(sessionID, "The ship has run out of water.")
	}
	return false
}

func (s *Supervisor) end(sessionID, reason string) bool {
	s.mu.Lock()
	s.reason = reason
	s.mu.Unlock()

	slog.Info("session ending", "reason", reason)
	s.broadcast(&event.Event{Kind: event.KindEnd, SessionID: sessionID, Text: reason})
	s.cancelFunc()
	return true
}

func (s *Supervisor) broadcast(ev *event.Event) {
	ev.At = time.Now()
	if err := s.bus.Broadcast(ev); err != nil {
		slog.Debug("supervisor broadcast failed", "kind", ev.Kind, "error", err)
	}
}

func levelText(level resource.Level, st resource.State) string {
	switch level {
	case resource.LevelLow:
		return fmt.Sprintf("Water is running low: %s.", st)
	case resource.LevelCritical:
		return fmt.Sprintf("Water is critical: %s.", st)
	case resource.LevelDepleted:
		return "The water tanks are empty."
	default:
		return fmt.Sprintf("Water: %s.", st)
	}
}

// Exchanges は、応答を得られたやり取りの数を返します。
func (s *Supervisor) Exchanges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exchanges
}

// Reason は、終了理由を返します。まだ終了していなければ空です。
func (s *Supervisor) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}
