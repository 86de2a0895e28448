package renderer

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/sat8bit/firstcontact/bus"
	"github.com/sat8bit/firstcontact/conversation"
	"github.com/sat8bit/firstcontact/event"
)

const markdownTemplate = `+++
title = {{ .Title }}
date = {{ .Date }}
tags = {{ .Tags }}
+++

{{ .Body }}
`

func NewMarkdownRenderer(outputDir string) *MarkdownRenderer {
	return &MarkdownRenderer{
		outputDir: outputDir,
		exchanges: make(map[string]*event.Exchange),
	}
}

// MarkdownRenderer は、セッションの記録を Hugo 形式の Markdown として書き出すレンダラーです。
type MarkdownRenderer struct {
	outputDir string

	mu        sync.Mutex
	order     []string
	exchanges map[string]*event.Exchange
	news      []*event.News
	filePath  string
}

// Render はバスを購読し、やり取りとニュースを収集します。
func (r *MarkdownRenderer) Render(b bus.Bus, wg *sync.WaitGroup) error {
	ch := b.Subscribe()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range ch {
			r.collect(ev)
		}
	}()
	return nil
}

func (r *MarkdownRenderer) collect(ev *event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Kind {
	case event.KindExchange:
		if ev.Exchange == nil {
			return
		}
		x := *ev.Exchange
		if _, ok := r.exchanges[x.ID]; !ok {
			r.order = append(r.order, x.ID)
		}
		r.exchanges[x.ID] = &x

	case event.KindNews:
		if ev.News == nil {
			return
		}
		n := *ev.News
		// 画像の結果は同じニュースの更新として届く
		for i, prev := range r.news {
			if prev.Leader == n.Leader && prev.Narrative == n.Narrative {
				r.news[i] = &n
				return
			}
		}
		r.news = append(r.news, &n)
	}
}

// FilePath は書き出したファイルのパスです。まだ書き出していなければ空です。
func (r *MarkdownRenderer) FilePath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filePath
}

// Finalize は収集した記録と集計をファイルに書き出します。やり取りが無ければ何もしません。
func (r *MarkdownRenderer) Finalize(report Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.outputDir == "" {
		return nil
	}
	if len(r.order) == 0 {
		slog.Info("no exchanges recorded, skipping markdown debrief")
		return nil
	}

	ended := report.EndedAt
	if ended.IsZero() {
		ended = time.Now()
	}

	tmpl, err := template.New("markdown").Parse(markdownTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse markdown template: %w", err)
	}

	title := "First contact"
	tags := []string{`"first-contact"`}
	if report.Species != "" {
		title = "First contact: " + report.Species
		tags = append(tags, fmt.Sprintf("%q", report.Species))
	}

	data := struct {
		Date  string
		Title string
		Tags  string
		Body  string
	}{
		Date:  fmt.Sprintf(`"%s"`, ended.Format(time.RFC3339)),
		Title: fmt.Sprintf("%q", title),
		Tags:  fmt.Sprintf("[%s]", strings.Join(tags, ", ")),
		Body:  r.body(report),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	name := ended.Format("20060102-150405")
	if report.SessionID != "" {
		name += "-" + shortID(report.SessionID)
	}
	path := filepath.Join(r.outputDir, name+".md")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write markdown file: %w", err)
	}
	r.filePath = path

	slog.Info("Markdown debrief generated", "path", path)
	return nil
}

func (r *MarkdownRenderer) body(report Report) string {
	var b strings.Builder

	if report.Reason != "" {
		fmt.Fprintf(&b, "> %s\n\n", report.Reason)
	}
	if !report.StartedAt.IsZero() && !report.EndedAt.IsZero() {
		fmt.Fprintf(&b, "Contact lasted %s. Water left: %s.\n\n",
			elapsed(report.StartedAt, report.EndedAt), report.Resource)
	}

	b.WriteString("## Exchanges\n\n")
	var current string
	for _, id := range r.order {
		x := r.exchanges[id]
		if x.Leader != current {
			fmt.Fprintf(&b, "### %s\n\n", x.Leader)
			current = x.Leader
		}
		fmt.Fprintf(&b, "**%s:** %s\n\n", x.Emissary, x.Message)
		switch x.Status {
		case event.StatusResolved:
			fmt.Fprintf(&b, "**%s:** %s\n\n", x.Leader, x.Response)
		default:
			fmt.Fprintf(&b, "**%s:** _%s_\n\n", x.Leader, conversation.ErrorText)
		}
	}

	if len(r.news) > 0 {
		b.WriteString("---\n\n## News\n\n")
		for _, n := range r.news {
			fmt.Fprintf(&b, "### %s\n\n%s\n\n", n.Leader, n.Narrative)
			if n.ImageURL != "" && !strings.HasPrefix(n.ImageURL, "data:") {
				fmt.Fprintf(&b, "![%s](%s)\n\n", n.Leader, n.ImageURL)
			}
		}
	}

	if len(report.Leaders) > 0 {
		b.WriteString("---\n\n## Final relations\n\n")
		for _, l := range report.Leaders {
			fmt.Fprintf(&b, "### %s (%s)\n", l.Role, l.Name)
			if len(l.Relations) == 0 {
				b.WriteString("- (no relations)\n\n")
				continue
			}
			targets := make([]string, 0, len(l.Relations))
			for t := range l.Relations {
				targets = append(targets, t)
			}
			sort.Strings(targets)
			for _, t := range targets {
				fmt.Fprintf(&b, "- **%s:** `%d`\n", t, l.Relations[t])
			}
			b.WriteString("\n")
		}
	}

	if len(report.Headlines) > 0 {
		b.WriteString("---\n\n## Earth headlines\n\n")
		for _, t := range report.Headlines {
			fmt.Fprintf(&b, "- [%s](%s)\n", t.Title, t.SourceURL)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var _ Renderer = (*MarkdownRenderer)(nil)
