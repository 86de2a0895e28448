// Package resource は、シミュレーション時間に連動して減っていく資源（船の水）を管理します。
package resource

import (
	"fmt"
	"math"
	"sync"

	"github.com/sat8bit/firstcontact/simclock"
)

const (
	// MaxMultiplier は減少計算に使う速度倍率の上限です。時計側がこれ以上を報告しても丸めます。
	MaxMultiplier = 10.0

	DefaultMax  = 50.0
	DefaultStep = 0.05

	lowThreshold      = 25.0
	criticalThreshold = 10.0

	epsilon = 1e-9
)

// Level は資源残量の段階です。
type Level string

const (
	LevelOK       Level = "ok"
	LevelLow      Level = "low"
	LevelCritical Level = "critical"
	LevelDepleted Level = "depleted"
)

type State struct {
	Current float64 `json:"current"`
	Max     float64 `json:"max"`
}

func (s State) String() string {
	return fmt.Sprintf("%.2f t / %.2f t", s.Current, s.Max)
}

// LevelOf は残量から段階を決めます。
func LevelOf(s State) Level {
	switch {
	case s.Current <= 0:
		return LevelDepleted
	case s.Current < criticalThreshold:
		return LevelCritical
	case s.Current < lowThreshold:
		return LevelLow
	default:
		return LevelOK
	}
}

// Clock は資源の減少を管理します。
// Tick の呼び出し頻度に関わらず、シミュレーション1秒ごとに step だけ減ります（実効秒の切り捨て × step）。
// 書き込みは Tick のみ、読み取りは複数から行われます。
type Clock struct {
	step float64

	mu          sync.RWMutex
	state       State
	accumulated float64
}

// New は満タンの Clock を生成します。
func New(max, step float64) *Clock {
	if max <= 0 {
		max = DefaultMax
	}
	if step <= 0 {
		step = DefaultStep
	}
	return &Clock{
		step:  step,
		state: State{Current: max, Max: max},
	}
}

// Tick は時計の進みを受け取ります。残量が変わった場合に true を返します。
// 停止中の Tick は完全に無視します。
func (c *Clock) Tick(tk simclock.Tick) bool {
	if !tk.Running || tk.Elapsed <= 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.accumulated += effectiveSeconds(tk)
	steps := math.Floor(c.accumulated + epsilon)
	if steps < 1 {
		return false
	}
	// 端数は次の Tick に持ち越す
	c.accumulated = math.Max(0, c.accumulated-steps)

	if c.state.Current <= 0 {
		return false
	}
	c.state.Current -= steps * c.step
	if c.state.Current < 0 {
		c.state.Current = 0
	}
	return true
}

// effectiveSeconds は倍率を MaxMultiplier に丸めた場合の経過秒です。
func effectiveSeconds(tk simclock.Tick) float64 {
	m := tk.Multiplier
	if m <= 0 {
		return tk.Elapsed
	}
	if m > MaxMultiplier {
		return tk.Elapsed * MaxMultiplier / m
	}
	return tk.Elapsed
}

func (c *Clock) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Clock) Level() Level {
	return LevelOf(c.State())
}

func (c *Clock) Depleted() bool {
	return c.State().Current <= 0
}
