package bus

import (
	"fmt"
	"sync"

	"github.com/sat8bit/firstcontact/event"
)

// DefaultBuffer は購読者チャネルのバッファサイズです。
const DefaultBuffer = 64

// MemoryBus は bus.Bus インターフェースのインメモリ実装です。
// ブロードキャストされたイベントをすべての購読者に配送します。
type MemoryBus struct {
	subscribers []chan *event.Event
	buffer      int

	mu       sync.RWMutex
	isClosed bool
	dropped  int
}

// NewMemoryBus は新しい MemoryBus を生成します。
func NewMemoryBus() *MemoryBus {
	return NewMemoryBusWithBuffer(DefaultBuffer)
}

// NewMemoryBusWithBuffer は購読者ごとのバッファサイズを指定して MemoryBus を生成します。
func NewMemoryBusWithBuffer(buffer int) *MemoryBus {
	if buffer < 0 {
		buffer = 0
	}
	return &MemoryBus{buffer: buffer}
}

// Broadcast はイベントをすべての購読者にブロードキャストします。
// ノンブロッキングで、購読者のバッファが一杯の場合はその購読者への配送をドロップします。
func (b *MemoryBus) Broadcast(e *event.Event) error {
	b.mu.RLock()
	var dropped int
	if b.isClosed {
		b.mu.RUnlock()
		return fmt.Errorf("bus is closed")
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
			dropped++
		}
	}
	b.mu.RUnlock()

	if dropped > 0 {
		b.mu.Lock()
		b.dropped += dropped
		b.mu.Unlock()
	}
	return nil
}

// Subscribe は新しい購読者を追加し、イベントを受信するためのチャネルを返します。
func (b *MemoryBus) Subscribe() <-chan *event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *event.Event, b.buffer)
	if b.isClosed {
		// バスが既に閉じられている場合は、閉じたチャネルを返す
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Dropped は購読者の遅延でドロップされた配送数を返します。
func (b *MemoryBus) Dropped() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// Close はバスを閉じ、すべての購読者チャネルをクローズします。
func (b *MemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.isClosed {
		b.isClosed = true
		for _, ch := range b.subscribers {
			close(ch)
		}
		b.subscribers = nil
	}
}

// コンパイル時に Bus インターフェースを実装していることを保証します。
var _ Bus = (*MemoryBus)(nil)
