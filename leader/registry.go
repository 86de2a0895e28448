package leader

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Registry は、Role をキーにした指導者の一覧です。
// 並び順はシード定義の順序を保ちます。関係値の更新は ApplyConsequence のみが行います。
type Registry struct {
	mu      sync.RWMutex
	order   []string
	leaders map[string]*Leader
}

type seed struct {
	Leaders []Entry `yaml:"leaders"`
}

// Load は YAML のシードデータから Registry を生成します。
func Load(data []byte) (*Registry, error) {
	var s seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal leader seed: %w", err)
	}
	return NewRegistry(s.Leaders)
}

// LoadFile は、指定されたファイルのシードで Registry を生成します。
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read leader seed %s: %w", path, err)
	}
	r, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// NewRegistry は entries を検証して Registry を生成します。
// 未登録の Role を指す関係値はエラーにせず、警告だけを出します。
func NewRegistry(entries []Entry) (*Registry, error) {
	r := &Registry{
		order:   make([]string, 0, len(entries)),
		leaders: make(map[string]*Leader, len(entries)),
	}

	for _, e := range entries {
		if e.Role == "" {
			return nil, fmt.Errorf("leader %q has no role", e.Name)
		}
		if _, dup := r.leaders[e.Role]; dup {
			return nil, fmt.Errorf("duplicate role %q", e.Role)
		}
		for target, v := range e.Relations {
			if target == e.Role {
				return nil, fmt.Errorf("role %q has a relation to itself", e.Role)
			}
			if v < MinRelation || v > MaxRelation {
				return nil, fmt.Errorf("role %q: relation to %q is %d, want %d..%d", e.Role, target, v, MinRelation, MaxRelation)
			}
		}
		l := e.Leader.clone()
		if l.Relations == nil {
			l.Relations = make(map[string]int)
		}
		r.order = append(r.order, e.Role)
		r.leaders[e.Role] = &l
	}

	unknown := make(map[string]int)
	for _, role := range r.order {
		for target := range r.leaders[role].Relations {
			if _, ok := r.leaders[target]; !ok {
				unknown[target]++
			}
		}
	}
	for target, refs := range unknown {
		slog.Warn("relations refer to an unknown role", "target", target, "references", refs)
	}

	return r, nil
}

// Get は Role に対応する Leader のコピーを返します。
func (r *Registry) Get(role string) (Leader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.leaders[role]
	if !ok {
		return Leader{}, false
	}
	return l.clone(), true
}

// All はシード順に全ての Entry を返します。
func (r *Registry) All() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.order))
	for _, role := range r.order {
		entries = append(entries, Entry{Role: role, Leader: r.leaders[role].clone()})
	}
	return entries
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Relation は source から target への関係値を返します。
// どちらかの Role が未登録、または関係値が定義されていなければ false です。
func (r *Registry) Relation(source, target string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.leaders[source]
	if !ok {
		return 0, false
	}
	if _, ok := r.leaders[target]; !ok {
		return 0, false
	}
	v, ok := l.Relations[target]
	return v, ok
}

// Position は Role の座標を返します。
func (r *Registry) Position(role string) (Position, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.leaders[role]
	if !ok {
		return Position{}, false
	}
	return Position{Role: role, Name: l.Name, Latitude: l.Latitude, Longitude: l.Longitude}, true
}

// ApplyConsequence は source から target への関係値を delta だけ動かし、[0,100] に丸めます。
// 未知の Role や自分自身への適用は何もせず false を返します。パニックはしません。
func (r *Registry) ApplyConsequence(source, target string, delta int) bool {
	if source == target || delta == 0 {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.leaders[source]
	if !ok {
		return false
	}
	if _, ok := r.leaders[target]; !ok {
		return false
	}

	// 関係値が未定義なら 0 から始める
	l.Relations[target] = clampRelation(l.Relations[target] + delta)
	return true
}
