package elasticsearch

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jgautsch/esstream"
)

type fakeCommander struct {
	bodies []string
	resp   string
	err    error
}

func (f *fakeCommander) DoCommand(_ string, _ string, _ map[string]interface{}, data interface{}) ([]byte, error) {
	f.bodies = append(f.bodies, data.(string))
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.resp), nil
}

func doc(id, source string) esstream.Doc {
	return esstream.Doc{
		Meta:   esstream.Meta{ID: id, Type: "line"},
		Source: json.RawMessage(source),
	}
}

func docPages(pages map[int][]esstream.Doc) esstream.LoaderFunc[esstream.Doc] {
	return func(_ context.Context, _ any, offset, _ int) ([]esstream.Doc, error) {
		return pages[offset], nil
	}
}

func TestBulkBodyLayout(t *testing.T) {
	docs := []esstream.Doc{
		doc("1", `{"line":"a"}`),
		{Meta: esstream.Meta{ID: "2", Index: "other"}, Source: json.RawMessage(`{"line":"b"}`)},
	}

	body, err := bulkBody("shakespeare", docs)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(body), "\n"), "\n")
	require.Len(t, lines, 4)
	require.JSONEq(t, `{"index":{"_index":"shakespeare","_type":"line","_id":"1"}}`, lines[0])
	require.JSONEq(t, `{"line":"a"}`, lines[1])
	// A doc carrying its own index wins over the writer default.
	require.JSONEq(t, `{"index":{"_index":"other","_id":"2"}}`, lines[2])
	require.JSONEq(t, `{"line":"b"}`, lines[3])
}

func TestWriteStreamBatches(t *testing.T) {
	s, err := esstream.New[esstream.Doc]("lines", docPages(map[int][]esstream.Doc{
		0: {doc("1", `{}`), doc("2", `{}`)},
		2: {doc("3", `{}`)},
	}), 2)
	require.NoError(t, err)

	fake := &fakeCommander{resp: `{"took":1,"errors":false,"items":[]}`}
	w := &BulkWriter{index: "shakespeare", batchSize: 2, conn: fake}

	written, err := w.WriteStream(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, 3, written)
	require.Len(t, fake.bodies, 2)
	require.Contains(t, fake.bodies[0], `"_id":"1"`)
	require.Contains(t, fake.bodies[1], `"_id":"3"`)
}

func TestWriteStreamReportsItemFailures(t *testing.T) {
	s, err := esstream.New[esstream.Doc]("lines", docPages(map[int][]esstream.Doc{
		0: {doc("1", `{}`)},
	}), 5)
	require.NoError(t, err)

	fake := &fakeCommander{
		resp: `{"took":1,"errors":true,"items":[{"index":{"status":429,"error":{"type":"es_rejected_execution_exception"}}}]}`,
	}
	w := &BulkWriter{index: "shakespeare", batchSize: 10, conn: fake}

	written, err := w.WriteStream(context.Background(), s)
	require.Error(t, err)
	require.Contains(t, err.Error(), "1 failed")
	require.Zero(t, written)
}

func TestWriteStreamPropagatesLoaderFailure(t *testing.T) {
	boom := errors.New("search exploded")
	loader := esstream.LoaderFunc[esstream.Doc](func(_ context.Context, _ any, offset, _ int) ([]esstream.Doc, error) {
		if offset > 0 {
			return nil, boom
		}
		return []esstream.Doc{doc("1", `{}`)}, nil
	})
	s, err := esstream.New[esstream.Doc]("lines", loader, 1)
	require.NoError(t, err)

	fake := &fakeCommander{resp: `{"took":1,"errors":false,"items":[]}`}
	w := &BulkWriter{index: "shakespeare", batchSize: 10, conn: fake}

	written, err := w.WriteStream(context.Background(), s)
	require.ErrorIs(t, err, boom)
	require.Zero(t, written)
}
