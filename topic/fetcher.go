package topic

import "context"

// Fetcher は、外部のデータソースから見出しを取得します。
type Fetcher interface {
	Fetch(ctx context.Context) ([]*Topic, error)
}
