package turn

import (
	"context"
)

// Manager はハンドラの実行権を管理します。
// 同時に1つのハンドラだけがセッションの状態を変更できます。
type Manager interface {
	Acquire(ctx context.Context) error
	Release()
}

// Do は実行権を取得して fn を実行し、終わったら解放します。
// 実行権を取得できなかった場合 fn は呼ばれません。
func Do(ctx context.Context, m Manager, fn func()) error {
	if err := m.Acquire(ctx); err != nil {
		return err
	}
	defer m.Release()
	fn()
	return nil
}
