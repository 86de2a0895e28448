package topic

import "time"

// Topic は、地球側の最近のニュース見出しです。
// 種族コンテキストに添えることで、指導者の応答に時事を反映させます。
type Topic struct {
	Title     string
	Summary   string
	SourceURL string

	// PublishedAt は配信日時です。フィードに無ければ nil です。
	PublishedAt *time.Time
}
