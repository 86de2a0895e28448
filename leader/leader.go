package leader

const (
	// MinRelation と MaxRelation は関係値の下限と上限です。
	MinRelation = 0
	MaxRelation = 100
)

// Leader は、各国の指導者を表します。
// 識別子は Role（"President of China" など）で、Registry のキーになります。
type Leader struct {
	Name      string  `yaml:"name"`
	FlagRef   string  `yaml:"flag"`
	Standing  int     `yaml:"standing"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`

	// Relations は他の Role に対する好感度（0〜100）です。非対称で、自分自身は含みません。
	Relations map[string]int `yaml:"relations"`
}

// Entry は Role と Leader の組です。
type Entry struct {
	Role   string `yaml:"role"`
	Leader `yaml:",inline"`
}

// Position は、地図側に通知するハイライト対象の座標です。
type Position struct {
	Role      string
	Name      string
	Latitude  float64
	Longitude float64
}

func (l Leader) clone() Leader {
	c := l
	if l.Relations != nil {
		c.Relations = make(map[string]int, len(l.Relations))
		for k, v := range l.Relations {
			c.Relations[k] = v
		}
	}
	return c
}

func clampRelation(v int) int {
	if v < MinRelation {
		return MinRelation
	}
	if v > MaxRelation {
		return MaxRelation
	}
	return v
}
