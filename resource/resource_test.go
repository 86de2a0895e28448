package resource

import (
	"math"
	"testing"

	"github.com/sat8bit/firstcontact/simclock"
)

func running(elapsed, multiplier float64) simclock.Tick {
	return simclock.Tick{Elapsed: elapsed, Running: true, Multiplier: multiplier}
}

func TestDepletionPerSimulatedSecond(t *testing.T) {
	tests := []struct {
		name       string
		ticks      int
		elapsed    float64
		multiplier float64
		wantSteps  int
	}{
		{"one second ticks", 12, 1, 1, 12},
		{"multiplier below cap", 8, 1, 10, 8},
		{"multiplier capped at 10", 10, 1, 20, 5},
		{"multiplier capped at 10, high speed", 40, 1, 40, 10},
		{"half second ticks", 10, 0.5, 1, 5},
		{"no multiplier reported", 3, 1, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(50, 0.25)
			for i := 0; i < tt.ticks; i++ {
				c.Tick(running(tt.elapsed, tt.multiplier))
			}
			want := 50 - float64(tt.wantSteps)*0.25
			if got := c.State().Current; got != want {
				t.Errorf("Current = %v, want %v", got, want)
			}
		})
	}
}

func TestRemainderCarriesOver(t *testing.T) {
	c := New(10, 1)

	if !c.Tick(running(3.5, 1)) {
		t.Fatal("expected a decrement")
	}
	if got := c.State().Current; got != 7 {
		t.Errorf("Current = %v, want 7", got)
	}

	// 0.5 の端数 + 0.75 で 1 秒を超える
	if !c.Tick(running(0.75, 1)) {
		t.Error("carried remainder should complete another second")
	}
	if got := c.State().Current; got != 6 {
		t.Errorf("Current = %v, want 6", got)
	}
	if c.Tick(running(0.5, 1)) {
		t.Error("0.75s accumulated should not decrement")
	}
}

func TestPausedTicksAreIgnored(t *testing.T) {
	c := New(50, 0.25)
	for i := 0; i < 100; i++ {
		if c.Tick(simclock.Tick{Elapsed: 1, Running: false, Multiplier: 1}) {
			t.Fatal("paused tick changed the resource")
		}
	}
	if c.State().Current != 50 {
		t.Errorf("Current = %v, want 50", c.State().Current)
	}

	// 停止中の分は蓄積もされない
	if c.Tick(running(0.5, 1)) {
		t.Error("accumulator should not include paused time")
	}
}

func TestNeverBelowZero(t *testing.T) {
	c := New(1, 0.3)
	for i := 0; i < 10; i++ {
		c.Tick(running(1, 1))
	}
	got := c.State().Current
	if got != 0 {
		t.Errorf("Current = %v, want 0", got)
	}
	if !c.Depleted() || c.Level() != LevelDepleted {
		t.Errorf("Depleted() = %v, Level() = %v", c.Depleted(), c.Level())
	}
	if c.Tick(running(1, 1)) {
		t.Error("a depleted resource should not report changes")
	}
}

func TestFloorOfEffectiveSeconds(t *testing.T) {
	// 倍率 15 のもと 1 秒刻みで 30 回 → 実効 20 秒
	c := New(50, 0.5)
	for i := 0; i < 30; i++ {
		c.Tick(running(1, 15))
	}
	want := 50 - math.Floor(30*10.0/15)*0.5
	if got := c.State().Current; math.Abs(got-want) > 1e-9 {
		t.Errorf("Current = %v, want %v", got, want)
	}
}

func TestLevelOf(t *testing.T) {
	tests := []struct {
		current float64
		want    Level
	}{
		{50, LevelOK},
		{25, LevelOK},
		{24.99, LevelLow},
		{10, LevelLow},
		{9.5, LevelCritical},
		{0, LevelDepleted},
	}
	for _, tt := range tests {
		if got := LevelOf(State{Current: tt.current, Max: 50}); got != tt.want {
			t.Errorf("LevelOf(%v) = %v, want %v", tt.current, got, tt.want)
		}
	}
}

func TestNewDefaults(t *testing.T) {
	c := New(0, 0)
	if s := c.State(); s.Current != DefaultMax || s.Max != DefaultMax {
		t.Errorf("State() = %+v", s)
	}
	if s := c.State().String(); s != "50.00 t / 50.00 t" {
		t.Errorf("String() = %q", s)
	}
}
