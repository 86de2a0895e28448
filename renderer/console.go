package renderer

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sat8bit/firstcontact/bus"
	"github.com/sat8bit/firstcontact/conversation"
	"github.com/sat8bit/firstcontact/engine"
	"github.com/sat8bit/firstcontact/event"
)

func NewConsoleRenderer(out io.Writer, typeDelay time.Duration) *ConsoleRenderer {
	return &ConsoleRenderer{out: out, typeDelay: typeDelay}
}

// ConsoleRenderer はバスのイベントを端末に表示します。
type ConsoleRenderer struct {
	out       io.Writer
	typeDelay time.Duration
	mu        sync.Mutex
}

func (c *ConsoleRenderer) Render(b bus.Bus, wg *sync.WaitGroup) error {
	ch := b.Subscribe()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range ch {
			c.render(ev)
		}
	}()
	return nil
}

func (c *ConsoleRenderer) render(ev *event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Kind {
	case event.KindSystem:
		fmt.Fprintf(c.out, "[System] %s\n", ev.Text)
	case event.KindHighlight:
		if ev.Highlight == nil {
			fmt.Fprintln(c.out, "[Map] No leader highlighted")
			return
		}
		h := ev.Highlight
		fmt.Fprintf(c.out, "[Map] %s (%s) at %.2f, %.2f\n", h.Role, h.Name, h.Latitude, h.Longitude)
	case event.KindExchange:
		c.renderExchange(ev.Exchange)
	case event.KindNews:
		c.renderNews(ev.News)
	case event.KindResourceLevel:
		fmt.Fprintf(c.out, "[Water] %s\n", ev.Text)
	case event.KindLog:
		fmt.Fprintln(c.out, ev.Text)
	case event.KindError:
		fmt.Fprintf(c.out, "[Error] %s\n", ev.Text)
	case event.KindEnd:
		fmt.Fprintf(c.out, "[End] %s\n", ev.Text)
	}
}

func (c *ConsoleRenderer) renderExchange(x *event.Exchange) {
	if x == nil {
		return
	}
	switch x.Status {
	case event.StatusPending:
		fmt.Fprintf(c.out, "%s -> %s: %s\n", x.Emissary, x.Leader, x.Message)
	case event.StatusFailed:
		fmt.Fprintf(c.out, "%s: %s\n", x.Leader, conversation.ErrorText)
	case event.StatusResolved:
		fmt.Fprintf(c.out, "%s: ", x.Leader)
		c.typeOut(x.Response)
	}
}

func (c *ConsoleRenderer) renderNews(n *event.News) {
	if n == nil {
		return
	}
	switch {
	case n.ImageURL != "":
		fmt.Fprintf(c.out, "[News] Image: %s\n", n.ImageURL)
	case n.ImageFailed:
		fmt.Fprintln(c.out, "[News] Image unavailable")
	default:
		fmt.Fprintf(c.out, "[News] %s\n", n.Narrative)
	}
}

// typeOut は1文字ずつ表示します。
func (c *ConsoleRenderer) typeOut(text string) {
	if c.typeDelay <= 0 {
		fmt.Fprintln(c.out, text)
		return
	}
	for _, r := range text {
		fmt.Fprint(c.out, string(r))
		time.Sleep(c.typeDelay)
	}
	fmt.Fprintln(c.out)
}

// Finalize はセッションの集計を1行で表示します。
func (c *ConsoleRenderer) Finalize(report Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintf(c.out, "Session over after %s: %s exchanges, %s water left.\n",
		elapsed(report.StartedAt, report.EndedAt),
		humanize.Comma(int64(report.Exchanges)),
		humanize.FormatFloat("#,###.##", report.Resource.Current),
	)
	return err
}

// Status は View を端末向けに整形します。
func (c *ConsoleRenderer) Status(v engine.View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	WriteStatus(c.out, v)
}

func WriteStatus(w io.Writer, v engine.View) {
	species := "(none)"
	if v.Species != nil {
		species = v.Species.Name
	}
	highlight := "(none)"
	if v.Highlight != nil {
		highlight = v.Highlight.Role
	}

	fmt.Fprintf(w, "Species:   %s\n", species)
	fmt.Fprintf(w, "State:     %s\n", v.State)
	fmt.Fprintf(w, "Leader:    %s\n", highlight)
	fmt.Fprintf(w, "Water:     %s t / %s t (%s)\n",
		humanize.FormatFloat("#,###.##", v.Resource.Current),
		humanize.FormatFloat("#,###.##", v.Resource.Max),
		v.ResourceLevel)
	if v.Pending > 0 {
		fmt.Fprintf(w, "Pending:   %d\n", v.Pending)
	}
	if v.LastOutcome != engine.OutcomeNone {
		fmt.Fprintf(w, "Last:      %s\n", v.LastOutcome)
	}
	for _, e := range v.History {
		fmt.Fprintf(w, "  > %s\n  < %s\n", e.Message, e.Display())
	}
	if v.News != nil {
		fmt.Fprintf(w, "News:      %s\n", v.News.Narrative)
	}
}

var _ Renderer = (*ConsoleRenderer)(nil)
