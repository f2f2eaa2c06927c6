// Package elasticsearch implements esstream collaborators backed by an
// Elasticsearch cluster: a page loader over from/size search and a bulk
// writer for the other end of the pipeline.
package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	elastigo "github.com/mattbaird/elastigo/lib"

	"github.com/jgautsch/esstream"
)

var _ esstream.Loader[esstream.Doc] = (*SearchLoader)(nil)

// Searcher is the slice of the elastigo client the loader needs, narrowed so
// tests can stub it.
type Searcher interface {
	Search(index string, _type string, args map[string]interface{}, query interface{}) (elastigo.SearchResult, error)
}

// Settings configure the client connection and runtime behavior.
type Settings struct {
	Hosts []string
	Port  string
	Index string

	// MaxRetries caps retry attempts per page fetch; zero means a single
	// attempt with no retry.
	MaxRetries uint64
	// RetryBase overrides the initial backoff interval when retrying.
	RetryBase time.Duration
}

// SearchLoader pages through an index with from/size queries. The source a
// stream hands it is the query body as a map (without from/size, which the
// loader injects per page).
//
// The offsets it receives stride by a full page per fetch. Plain from/size
// search treats from as an absolute document offset, and Elasticsearch fills
// pages completely until the result set runs out, so the stride and the
// document offset coincide. A backing store that returns short pages
// mid-stream would not satisfy this loader's contract.
type SearchLoader struct {
	settings Settings
	conn     Searcher
}

func NewSearchLoader(s Settings) *SearchLoader {
	return &SearchLoader{
		settings: s,
		conn:     newConn(s),
	}
}

func newConn(s Settings) *elastigo.Conn {
	c := elastigo.NewConn()
	c.SetHosts(s.Hosts)
	c.SetPort(s.Port)
	return c
}

// Load fetches one page of documents. Failures are retried with exponential
// backoff up to MaxRetries before being reported to the stream.
func (l *SearchLoader) Load(ctx context.Context, source any, offset, limit int) ([]esstream.Doc, error) {
	query, ok := source.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("elasticsearch: source must be a query map, got %T", source)
	}

	body := make(map[string]interface{}, len(query)+2)
	for k, v := range query {
		body[k] = v
	}
	body["from"] = offset
	body["size"] = limit

	qb, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	var sr elastigo.SearchResult
	search := func() error {
		var err error
		sr, err = l.conn.Search(l.settings.Index, "", nil, string(qb))
		return err
	}
	if err := backoff.Retry(search, l.policy(ctx)); err != nil {
		return nil, err
	}

	return resultDocs(sr), nil
}

func (l *SearchLoader) policy(ctx context.Context) backoff.BackOff {
	if l.settings.MaxRetries == 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	b := backoff.NewExponentialBackOff()
	if l.settings.RetryBase > 0 {
		b.InitialInterval = l.settings.RetryBase
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, l.settings.MaxRetries), ctx)
}

func resultDocs(sr elastigo.SearchResult) []esstream.Doc {
	docs := make([]esstream.Doc, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		d := esstream.Doc{
			Meta: esstream.Meta{
				ID:    h.Id,
				Type:  h.Type,
				Index: h.Index,
			},
		}
		if h.Source != nil {
			d.Source = *h.Source
		}
		docs = append(docs, d)
	}
	return docs
}
