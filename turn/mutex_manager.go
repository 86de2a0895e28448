package turn

import (
	"context"
	"fmt"
)

// MutexManager は turn.Manager の実装です。
// 容量1のチャネルに書き込めたハンドラが実行権を持ちます。
type MutexManager struct {
	slot chan struct{}
}

// NewMutexManager は新しい MutexManager を生成します。
func NewMutexManager() *MutexManager {
	return &MutexManager{
		slot: make(chan struct{}, 1),
	}
}

// Acquire は実行権を取得します。
// 他のハンドラが保持している場合は、解放されるかコンテキストが終了するまで待ちます。
func (m *MutexManager) Acquire(ctx context.Context) error {
	// 終了済みのコンテキストでは、空いていても取得しない
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to acquire turn: %w", err)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("failed to acquire turn: %w", ctx.Err())
	case m.slot <- struct{}{}:
		return nil
	}
}

// Release は実行権を解放します。保持していない状態で呼ばれても何もしません。
func (m *MutexManager) Release() {
	select {
	case <-m.slot:
	default:
	}
}

// コンパイル時に Manager インターフェースを実装していることを保証します。
var _ Manager = (*MutexManager)(nil)
