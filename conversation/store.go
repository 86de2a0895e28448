// Package conversation は、1セッション分の会話ログを保持します。
// ログは毎回プロンプトに再生されるため、挿入順がそのまま意味を持ちます。
package conversation

import (
	"strings"
	"sync"
)

const (
	// DefaultLimit は保持するやり取りの既定数です。古いものから捨てられます。
	DefaultLimit = 20

	// PendingText は応答待ちの間だけ表示される仮の応答です。
	PendingText = "...."

	// ErrorText は応答を得られなかったやり取りに表示する文言です。
	ErrorText = "No reply was received. Try again."

	failureMarker = "[no response]"
)

// Entry は一往復分のやり取りです。
// Response が nil で Pending でなければ、失敗として確定しています。
type Entry struct {
	ID       string  `json:"id"`
	Leader   string  `json:"leader"`
	Message  string  `json:"message"`
	Response *string `json:"response"`
	Pending  bool    `json:"pending,omitempty"`
}

func (e Entry) Failed() bool {
	return !e.Pending && e.Response == nil
}

// Display は画面に出す応答文です。失敗と応答待ちは本物の応答と区別して表示します。
func (e Entry) Display() string {
	switch {
	case e.Pending:
		return PendingText
	case e.Response == nil:
		return ErrorText
	default:
		return *e.Response
	}
}

// Store は会話ログです。limit 件を超えると古いものから捨てます。
type Store struct {
	limit int

	mu      sync.Mutex
	entries []Entry
	evicted int
}

// NewStore は新しい Store を生成します。limit が 0 以下なら無制限です。
func NewStore(limit int) *Store {
	return &Store{limit: limit}
}

// Append は末尾に追加し、上限を超えた分を古い確定済みエントリから捨てます。
// 応答待ちと追加したばかりのエントリは捨てないため、一時的に上限を超えることがあります。
func (s *Store) Append(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, e)
	if s.limit <= 0 || len(s.entries) <= s.limit {
		return
	}

	over := len(s.entries) - s.limit
	last := len(s.entries) - 1
	kept := make([]Entry, 0, len(s.entries))
	for i, entry := range s.entries {
		if over > 0 && i < last && !entry.Pending {
			over--
			s.evicted++
			continue
		}
		kept = append(kept, entry)
	}
	s.entries = kept
}

// ReplacePending は id の応答待ちを確定させます。response が nil なら失敗です。
// id が見つからない、または既に確定している場合は何もせず false を返します。
func (s *Store) ReplacePending(id string, response *string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].ID != id {
			continue
		}
		if !s.entries[i].Pending {
			return false
		}
		s.entries[i].Pending = false
		s.entries[i].Response = response
		return true
	}
	return false
}

// FailPending は全ての応答待ちを失敗として確定させ、その件数を返します。
func (s *Store) FailPending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for i := range s.entries {
		if s.entries[i].Pending {
			s.entries[i].Pending = false
			s.entries[i].Response = nil
			n++
		}
	}
	return n
}

// History は挿入順のコピーを返します。
func (s *Store) History() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Evicted は上限により捨てられた件数です。
func (s *Store) Evicted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evicted
}

// ToPromptTranscript は確定済みのやり取りを "話者: 発話" の行に直列化します。
// 応答待ちは含めません。失敗は明示的なマーカー行になります。
func (s *Store) ToPromptTranscript(emissary string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lines []string
	for _, e := range s.entries {
		if e.Pending {
			continue
		}
		lines = append(lines, emissary+": "+e.Message)
		if e.Response == nil {
			lines = append(lines, e.Leader+": "+failureMarker)
		} else {
			lines = append(lines, e.Leader+": "+*e.Response)
		}
	}
	return strings.Join(lines, "\n")
}
