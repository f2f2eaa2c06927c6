package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/jgautsch/esstream"
)

// Commander issues raw API calls against the cluster; the slice of the
// elastigo client the bulk writer needs.
type Commander interface {
	DoCommand(method string, url string, args map[string]interface{}, data interface{}) ([]byte, error)
}

// BulkWriter drains a stream of documents into _bulk index requests, flushing
// every batchSize docs. It is the downstream half of the pipeline: a stream
// reads pages out of one place, the writer lands them in an index.
type BulkWriter struct {
	index     string
	batchSize int
	conn      Commander
}

func NewBulkWriter(s Settings, batchSize int) *BulkWriter {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &BulkWriter{
		index:     s.Index,
		batchSize: batchSize,
		conn:      newConn(s),
	}
}

// WriteStream consumes the stream to exhaustion, indexing documents in
// batches. It returns the number of documents flushed and the first failure
// encountered, whether from the stream's loader or from the cluster.
func (w *BulkWriter) WriteStream(ctx context.Context, s *esstream.Stream[esstream.Doc]) (int, error) {
	written := 0
	batch := make([]esstream.Doc, 0, w.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.flush(batch); err != nil {
			return err
		}
		written += len(batch)
		log.WithFields(log.Fields{"docs": len(batch), "total": written}).Debug("bulk batch flushed")
		batch = batch[:0]
		return nil
	}

	for s.Next(ctx) {
		batch = append(batch, s.Value())
		if len(batch) >= w.batchSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
		if err := ctx.Err(); err != nil {
			return written, err
		}
	}
	if err := s.Err(); err != nil {
		return written, err
	}
	return written, flush()
}

func (w *BulkWriter) flush(docs []esstream.Doc) error {
	body, err := bulkBody(w.index, docs)
	if err != nil {
		return err
	}

	resp, err := w.conn.DoCommand("POST", "/_bulk", nil, string(body))
	if err != nil {
		return err
	}

	var br bulkResponse
	if err := json.Unmarshal(resp, &br); err != nil {
		return fmt.Errorf("elasticsearch: undecodable bulk response: %w", err)
	}
	if br.Errors {
		return fmt.Errorf("elasticsearch: bulk flush had %d failed items", br.failed())
	}
	return nil
}

type bulkAction struct {
	Index bulkMeta `json:"index"`
}

type bulkMeta struct {
	Index string `json:"_index,omitempty"`
	Type  string `json:"_type,omitempty"`
	ID    string `json:"_id,omitempty"`
}

// bulkBody renders the newline-delimited action/source pairs the _bulk
// endpoint expects.
func bulkBody(defaultIndex string, docs []esstream.Doc) ([]byte, error) {
	var buf bytes.Buffer
	for _, d := range docs {
		meta := bulkMeta{
			Index: d.Meta.Index,
			Type:  d.Meta.Type,
			ID:    d.Meta.ID,
		}
		if meta.Index == "" {
			meta.Index = defaultIndex
		}
		action, err := json.Marshal(bulkAction{Index: meta})
		if err != nil {
			return nil, err
		}
		buf.Write(action)
		buf.WriteByte('\n')
		buf.Write(d.Source)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

type bulkResponse struct {
	Took   int                        `json:"took"`
	Errors bool                       `json:"errors"`
	Items  []map[string]bulkItemState `json:"items"`
}

type bulkItemState struct {
	Status int             `json:"status"`
	Error  json.RawMessage `json:"error,omitempty"`
}

func (r bulkResponse) failed() int {
	n := 0
	for _, item := range r.Items {
		for _, state := range item {
			if state.Status >= 300 {
				n++
			}
		}
	}
	return n
}
