package leader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sat8bit/firstcontact/configs"
)

func loadSeed(t *testing.T) *Registry {
	t.Helper()
	r, err := Load(configs.Leaders)
	if err != nil {
		t.Fatalf("Load(configs.Leaders) failed: %v", err)
	}
	return r
}

func TestLoadEmbeddedSeed(t *testing.T) {
	r := loadSeed(t)

	if r.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", r.Len())
	}

	all := r.All()
	if all[0].Role != "United Nations Secretary-General" {
		t.Errorf("first role = %q, want the UN Secretary-General", all[0].Role)
	}
	if all[len(all)-1].Role != "Supreme Leader of North Korea" {
		t.Errorf("last role = %q, want the Supreme Leader of North Korea", all[len(all)-1].Role)
	}

	for _, e := range all {
		if _, self := e.Relations[e.Role]; self {
			t.Errorf("%s has a self relation", e.Role)
		}
	}

	cn, ok := r.Get("President of China")
	if !ok {
		t.Fatal("President of China not found")
	}
	if cn.Name != "Xi Jinping" || cn.Relations["Supreme Leader of North Korea"] != 50 {
		t.Errorf("unexpected China record: %+v", cn)
	}
}

func TestAllIsStable(t *testing.T) {
	r := loadSeed(t)
	first := r.All()
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, r.All()); diff != "" {
			t.Fatalf("All() order changed (-first +now):\n%s", diff)
		}
	}
}

func TestGetReturnsCopy(t *testing.T) {
	r := loadSeed(t)

	l, _ := r.Get("President of Russia")
	l.Relations["President of China"] = 99
	l.Name = "someone else"

	again, _ := r.Get("President of Russia")
	if again.Relations["President of China"] != 10 {
		t.Errorf("mutating a copy leaked into the registry: %d", again.Relations["President of China"])
	}
	if again.Name != "Vladimir Putin" {
		t.Errorf("Name = %q", again.Name)
	}

	if _, ok := r.Get("Emperor of Mars"); ok {
		t.Error("Get of an unknown role should report not found")
	}
}

func TestApplyConsequence(t *testing.T) {
	tests := []struct {
		name   string
		source string
		target string
		delta  int
		want   int
		ok     bool
	}{
		{"raise", "President of China", "President of Russia", 15, 25, true},
		{"lower", "President of China", "President of Russia", -4, 6, true},
		{"clamp high", "President of the United States", "Prime Minister of Japan", 50, 100, true},
		{"clamp low", "Supreme Leader of North Korea", "Prime Minister of Japan", -40, 0, true},
		{"zero delta", "President of Brazil", "United Nations Secretary-General", 0, 20, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := loadSeed(t)
			if ok := r.ApplyConsequence(tt.source, tt.target, tt.delta); ok != tt.ok {
				t.Fatalf("ApplyConsequence() = %v, want %v", ok, tt.ok)
			}
			got, _ := r.Relation(tt.source, tt.target)
			if got != tt.want {
				t.Errorf("relation = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestApplyConsequenceUndefinedRelation(t *testing.T) {
	r, err := NewRegistry([]Entry{
		{Role: "A", Leader: Leader{Name: "a"}},
		{Role: "B", Leader: Leader{Name: "b"}},
	})
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	if _, ok := r.Relation("A", "B"); ok {
		t.Fatal("expected no relation data between A and B")
	}
	if !r.ApplyConsequence("A", "B", 7) {
		t.Fatal("ApplyConsequence between known roles should apply")
	}
	if v, _ := r.Relation("A", "B"); v != 7 {
		t.Errorf("relation = %d, want 7", v)
	}
}

func TestApplyConsequenceUnknownIsNoop(t *testing.T) {
	r := loadSeed(t)
	before := r.All()

	cases := [][2]string{
		{"Emperor of Mars", "President of China"},
		{"President of China", "Emperor of Mars"},
		{"Emperor of Mars", "King of Venus"},
		{"President of China", "President of China"},
		{"President of the United States", "President of the African Union"},
	}
	for _, c := range cases {
		if r.ApplyConsequence(c[0], c[1], 30) {
			t.Errorf("ApplyConsequence(%q, %q) reported a change", c[0], c[1])
		}
	}

	if diff := cmp.Diff(before, r.All()); diff != "" {
		t.Errorf("registry changed (-before +after):\n%s", diff)
	}
}

func TestNewRegistryValidation(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		wantErr string
	}{
		{
			name:    "self relation",
			entries: []Entry{{Role: "A", Leader: Leader{Relations: map[string]int{"A": 10}}}},
			wantErr: "itself",
		},
		{
			name:    "out of range",
			entries: []Entry{{Role: "A", Leader: Leader{Relations: map[string]int{"B": 101}}}},
			wantErr: "relation to",
		},
		{
			name:    "duplicate",
			entries: []Entry{{Role: "A"}, {Role: "A"}},
			wantErr: "duplicate",
		},
		{
			name:    "empty role",
			entries: []Entry{{Leader: Leader{Name: "nobody"}}},
			wantErr: "no role",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.entries)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leaders.yaml")
	data := `leaders:
  - role: "Mayor of Atlantis"
    name: "Poseidon"
    flag: "https://example.com/atlantis.png"
    standing: 3
    latitude: 31.0
    longitude: -24.0
    relations:
      "Mayor of El Dorado": 40
  - role: "Mayor of El Dorado"
    name: "Zipa"
    standing: 2
    latitude: 5.0
    longitude: -73.8
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("failed to write seed: %v", err)
	}

	r, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	pos, ok := r.Position("Mayor of El Dorado")
	if !ok {
		t.Fatal("Position not found")
	}
	want := Position{Role: "Mayor of El Dorado", Name: "Zipa", Latitude: 5.0, Longitude: -73.8}
	if diff := cmp.Diff(want, pos); diff != "" {
		t.Errorf("Position mismatch (-want +got):\n%s", diff)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
