package engine

import (
	"github.com/sat8bit/firstcontact/conversation"
	"github.com/sat8bit/firstcontact/event"
	"github.com/sat8bit/firstcontact/leader"
	"github.com/sat8bit/firstcontact/resource"
	"github.com/sat8bit/firstcontact/species"
)

// State はセッションの状態です。
// ExchangeResolved / ExchangeFailed は状態ではなく Outcome として報告され、すぐに Idle に戻ります。
type State string

const (
	StateSpeciesUnselected State = "species_unselected"
	StateIdle              State = "idle"
	StateExchangePending   State = "exchange_pending"
)

// Outcome は直近のやり取りの結果です。
type Outcome string

const (
	OutcomeNone              Outcome = ""
	OutcomeExchangeResolved  Outcome = "exchange_resolved"
	OutcomeExchangeFailed    Outcome = "exchange_failed"
	OutcomeNewsReady         Outcome = "news_ready"
	OutcomeConsequenceFailed Outcome = "consequence_failed"
)

// ConsequenceState は帰結アクションの進行状態です。
type ConsequenceState string

const (
	ConsequenceIdle       ConsequenceState = "idle"
	ConsequenceDispatched ConsequenceState = "dispatched"
)

// ExchangeKind はやり取りの種類です。
type ExchangeKind string

const (
	KindMessage     ExchangeKind = "message"
	KindConsequence ExchangeKind = "consequence"
)

// ExchangeRequest は非同期に送られる1件のリクエストです。ID で応答を対応付けます。
type ExchangeRequest struct {
	ID         string
	Role       string
	LeaderName string
	Text       string
	Kind       ExchangeKind
}

// View は画面に渡すセッションのスナップショットです。
type View struct {
	SessionID     string
	State         State
	Species       *species.Profile
	Highlight     *leader.Position
	ExchangeOpen  bool
	History       []conversation.Entry
	Pending       int
	Resource      resource.State
	ResourceLevel resource.Level
	Consequence   ConsequenceState
	News          *event.News
	LastOutcome   Outcome
}
