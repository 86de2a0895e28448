package fetcher

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/sat8bit/firstcontact/topic"
)

const summaryMaxRunes = 200

// RSSFetcher は topic.Fetcher インターフェースのRSS実装です。
type RSSFetcher struct {
	url    string
	limit  int
	parser *gofeed.Parser
}

// NewRSSFetcher は新しい RSSFetcher を生成します。
// limit は取得する見出しの上限数です。0以下の場合は無制限。
func NewRSSFetcher(url string, limit int) topic.Fetcher {
	return &RSSFetcher{
		url:    url,
		limit:  limit,
		parser: gofeed.NewParser(),
	}
}

// Fetch はフィードを取得し、新しい順に見出しを返します。同じタイトルは一つにまとめます。
func (f *RSSFetcher) Fetch(ctx context.Context) ([]*topic.Topic, error) {
	feed, err := f.parser.ParseURLWithContext(f.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed from %s: %w", f.url, err)
	}

	items := feed.Items
	// 日付の無い記事は元の順序のまま後ろに回す
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].PublishedParsed, items[j].PublishedParsed
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return a.After(*b)
	})

	seen := make(map[string]struct{})
	var topics []*topic.Topic
	for _, item := range items {
		if f.limit > 0 && len(topics) >= f.limit {
			break
		}

		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}

		topics = append(topics, &topic.Topic{
			Title:       title,
			Summary:     truncateString(stripHTML(item.Description), summaryMaxRunes),
			SourceURL:   item.Link,
			PublishedAt: item.PublishedParsed,
		})
	}

	return topics, nil
}

var htmlRegex = regexp.MustCompile("<[^>]*>")

// stripHTML はタグを除去し、実体参照を戻して空白を詰めます。
func stripHTML(s string) string {
	s = html.UnescapeString(htmlRegex.ReplaceAllString(s, ""))
	return strings.Join(strings.Fields(s), " ")
}

// truncateString は文字列をrune単位で指定された長さに切り詰めます。
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return s
}
