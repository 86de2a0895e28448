package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sat8bit/firstcontact/conversation"
	"github.com/sat8bit/firstcontact/event"
	"github.com/sat8bit/firstcontact/llm"
	"github.com/sat8bit/firstcontact/metrics"
	"github.com/sat8bit/firstcontact/prompt"
	"github.com/sat8bit/firstcontact/turn"
)

// SendMessage はハイライト中の指導者にメッセージを送ります。
// 空文字、指導者未選択、種族未選択の場合は何もせず ok=false を返します。
func (e *Engine) SendMessage(ctx context.Context, text string) (string, bool) {
	if err := e.turns.Acquire(ctx); err != nil {
		return "", false
	}
	defer e.turns.Release()

	if !e.canSend(text) {
		return "", false
	}
	req := e.send(ctx, strings.TrimSpace(text), KindMessage)
	return req.ID, true
}

// LaunchConsequence はハイライト中の指導者の国にミサイルを撃ち込みます。
// ナレーションは通常のメッセージと同じ経路で送られ、成功するとニュースと画像が生成されます。
func (e *Engine) LaunchConsequence(ctx context.Context) (string, bool) {
	if err := e.turns.Acquire(ctx); err != nil {
		return "", false
	}
	defer e.turns.Release()

	if e.consequence != ConsequenceIdle {
		return "", false
	}
	if e.species == nil || e.highlight == nil {
		return "", false
	}
	narration := prompt.MissileStrike(e.species.Name, e.highlight.Role, e.opts.Casualties)
	if !e.canSend(narration) {
		return "", false
	}

	req := e.send(ctx, narration, KindConsequence)
	e.consequence = ConsequenceDispatched
	return req.ID, true
}

func (e *Engine) canSend(text string) bool {
	return !e.closed &&
		strings.TrimSpace(text) != "" &&
		e.highlight != nil &&
		e.species != nil &&
		e.state != StateSpeciesUnselected
}

// send は実行権を持った状態で呼びます。
func (e *Engine) send(ctx context.Context, text string, kind ExchangeKind) ExchangeRequest {
	role := e.highlight.Role
	req := ExchangeRequest{
		ID:         uuid.NewString(),
		Role:       role,
		LeaderName: role,
		Text:       text,
		Kind:       kind,
	}

	// 送信するメッセージ自体は会話ログに含めず、指示文として末尾に置く
	p := prompt.Build(e.speciesContext, e.store.ToPromptTranscript(e.species.Emissary()), req.LeaderName, text)

	e.store.Append(conversation.Entry{
		ID:      req.ID,
		Leader:  req.LeaderName,
		Message: text,
		Pending: true,
	})
	e.pending[req.ID] = pendingRequest{ExchangeRequest: req, startedAt: time.Now()}
	e.state = StateExchangePending

	slog.DebugContext(ctx, "exchange dispatched", "id", req.ID, "leader", req.LeaderName, "kind", req.Kind)
	e.broadcastExchange(req, "", event.StatusPending)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		resp, err := e.complete(p)
		e.withTurn(func() {
			e.resolve(req.ID, resp, err)
		})
	}()
	return req
}

func (e *Engine) complete(p string) (string, error) {
	text, err := e.text.Complete(e.ctx, llm.CompletionRequest{Prompt: p, Sampling: e.opts.Sampling})
	if err != nil {
		return "", &ServiceError{Service: "text", Err: err}
	}
	resp := prompt.TrimSpeaker(text)
	if resp == "" {
		return "", &ServiceError{Service: "text", Err: ErrEmptyCompletion}
	}
	return resp, nil
}

// withTurn は完了した呼び出しの結果を実行権を取って反映します。
// Close 後に届いた応答も遅延応答として数えます。
func (e *Engine) withTurn(fn func()) {
	if err := turn.Do(context.Background(), e.turns, fn); err != nil {
		slog.Error("failed to apply service result", "error", err)
	}
}

func (e *Engine) resolve(id, resp string, err error) {
	req, ok := e.pending[id]
	if !ok {
		metrics.RecordLateResponseDropped()
		slog.Debug("late response dropped", "id", id, "failed", err != nil)
		return
	}
	delete(e.pending, id)
	if len(e.pending) == 0 && e.state == StateExchangePending {
		e.state = StateIdle
	}

	var stored *string
	if err == nil {
		stored = &resp
	}
	// 記録先のエントリが無い応答は遅延応答と同じく捨てる
	if !e.store.ReplacePending(id, stored) {
		metrics.RecordLateResponseDropped()
		slog.Debug("response without a pending entry dropped", "id", id, "failed", err != nil)
		if req.Kind == KindConsequence {
			e.consequence = ConsequenceIdle
		}
		return
	}

	status := metrics.StatusResolved
	if err != nil {
		status = metrics.StatusFailed
		e.lastOutcome = OutcomeExchangeFailed
		slog.Warn("exchange failed", "leader", req.LeaderName, "kind", req.Kind, "error", err)
		e.broadcastExchange(req.ExchangeRequest, "", event.StatusFailed)
	} else {
		e.lastOutcome = OutcomeExchangeResolved
		e.broadcastExchange(req.ExchangeRequest, resp, event.StatusResolved)
	}
	metrics.RecordExchange(string(req.Kind), status, time.Since(req.startedAt).Seconds())

	if req.Kind == KindConsequence {
		e.resolveConsequence(req.ExchangeRequest, resp, err)
	}
}

// resolveConsequence はミサイル攻撃のナレーション結果を反映します。
// 成功すると他の指導者は被害国に同情し、画像を要求します。失敗した場合は画像を要求しません。
func (e *Engine) resolveConsequence(req ExchangeRequest, narrative string, err error) {
	e.consequence = ConsequenceIdle
	if err != nil {
		e.lastOutcome = OutcomeConsequenceFailed
		e.broadcast(&event.Event{
			Kind: event.KindError,
			Text: fmt.Sprintf("The news of the strike on %s never arrived.", req.LeaderName),
		})
		return
	}

	e.news = &event.News{Leader: req.LeaderName, Narrative: narrative}
	e.newsID = req.ID
	e.lastOutcome = OutcomeNewsReady

	var moved int
	for _, other := range e.registry.All() {
		if e.registry.ApplyConsequence(other.Role, req.Role, e.opts.SympathyDelta) {
			moved++
		}
	}
	slog.Info("consequence applied", "victim", req.Role, "relations", moved, "delta", e.opts.SympathyDelta)

	n := *e.news
	e.broadcast(&event.Event{Kind: event.KindNews, News: &n, Text: narrative})

	imagePrompt := prompt.NewsImage(req.LeaderName)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		url, err := e.image.GenerateImage(e.ctx, imagePrompt)
		if err == nil && url == "" {
			err = errors.New("no image url")
		}
		if err != nil {
			err = &ServiceError{Service: "image", Err: err}
		}
		e.withTurn(func() {
			e.resolveImage(req.ID, url, err)
		})
	}()
}

func (e *Engine) resolveImage(id, url string, err error) {
	if e.news == nil || e.newsID != id {
		metrics.RecordLateResponseDropped()
		slog.Debug("late image dropped", "id", id)
		return
	}

	if err != nil {
		metrics.RecordImage(metrics.StatusFailed)
		e.news.ImageFailed = true
		slog.Warn("news image failed", "leader", e.news.Leader, "error", err)
	} else {
		metrics.RecordImage(metrics.StatusSuccess)
		e.news.ImageURL = url
	}
	e.newsID = ""

	n := *e.news
	e.broadcast(&event.Event{Kind: event.KindNews, News: &n})
}

func (e *Engine) broadcastExchange(req ExchangeRequest, response string, status event.ExchangeStatus) {
	var emissary string
	if e.species != nil {
		emissary = e.species.Emissary()
	}
	e.broadcast(&event.Event{
		Kind: event.KindExchange,
		Exchange: &event.Exchange{
			ID:          req.ID,
			Role:        req.Role,
			Leader:      req.LeaderName,
			Emissary:    emissary,
			Message:     req.Text,
			Response:    response,
			Status:      status,
			Consequence: req.Kind == KindConsequence,
		},
	})
}
