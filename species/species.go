package species

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile は、プレイヤーが操作する異星種族です。
// セッション開始時に一つだけ選ばれ、以降のプロンプトの前置きになります。
type Profile struct {
	Name         string `yaml:"name"`
	Intelligence int    `yaml:"intelligence"`
	Good         int    `yaml:"good"`
	Evil         int    `yaml:"evil"`
	Power        int    `yaml:"power"`
	Description  string `yaml:"description"`
}

// Emissary は会話ログ上の話者名です。
func (p Profile) Emissary() string {
	return p.Name + " emissary"
}

// Catalog は、選択可能な種族の一覧です。先頭がデフォルトになります。
type Catalog struct {
	Species []Profile `yaml:"species"`
}

// Load は YAML から Catalog を読み込みます。
func Load(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal species catalog: %w", err)
	}
	if len(c.Species) == 0 {
		return nil, fmt.Errorf("species catalog is empty")
	}

	seen := make(map[string]struct{}, len(c.Species))
	for i, p := range c.Species {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("species #%d has no name", i)
		}
		for _, stat := range []int{p.Intelligence, p.Good, p.Evil, p.Power} {
			if stat < 0 || stat > 100 {
				return nil, fmt.Errorf("species %q has a stat outside 0..100", p.Name)
			}
		}
		key := normalize(p.Name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate species %q", p.Name)
		}
		seen[key] = struct{}{}
	}
	return &c, nil
}

func (c *Catalog) All() []Profile {
	if c == nil {
		return nil
	}
	out := make([]Profile, len(c.Species))
	copy(out, c.Species)
	return out
}

// Get は名前で種族を探します。大文字小文字と前後の空白は無視します。
func (c *Catalog) Get(name string) (Profile, bool) {
	if c == nil {
		return Profile{}, false
	}
	key := normalize(name)
	for _, p := range c.Species {
		if normalize(p.Name) == key {
			return p, true
		}
	}
	return Profile{}, false
}

func (c *Catalog) Default() Profile {
	if c == nil || len(c.Species) == 0 {
		return Profile{}
	}
	return c.Species[0]
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
