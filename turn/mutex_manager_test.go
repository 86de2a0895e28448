package turn

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMutexManagerExclusive(t *testing.T) {
	m := NewMutexManager()
	ctx := context.Background()

	if err := m.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		if err := m.Acquire(ctx); err == nil {
			close(acquired)
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire succeeded while the turn was held")
	case <-time.After(50 * time.Millisecond):
	}

	m.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Acquire did not succeed after Release")
	}
	m.Release()
}

func TestMutexManagerCancel(t *testing.T) {
	m := NewMutexManager()
	if err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer m.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire error = %v, want context.Canceled", err)
	}
}

func TestMutexManagerReleaseWithoutAcquire(t *testing.T) {
	m := NewMutexManager()
	m.Release()
	if err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
}

func TestMutexManagerCanceledWhileFree(t *testing.T) {
	m := NewMutexManager()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.Acquire(ctx); err == nil {
		t.Fatal("Acquire succeeded with a canceled context")
	}
	if err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("turn leaked by the canceled Acquire: %v", err)
	}
}

func TestDo(t *testing.T) {
	m := NewMutexManager()

	var called bool
	if err := Do(context.Background(), m, func() { called = true }); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if !called {
		t.Error("fn was not called")
	}
	if err := Do(context.Background(), m, func() {}); err != nil {
		t.Fatalf("turn was not released: %v", err)
	}

	m.Acquire(context.Background())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Do(ctx, m, func() { t.Error("fn called without the turn") }); err == nil {
		t.Error("Do succeeded while the turn was held")
	}
}
