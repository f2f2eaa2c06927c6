package esstream

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPumpDeliversAndCloses(t *testing.T) {
	loader := &fakeLoader{pages: map[int][]string{
		0: {"a", "b"},
		2: {"c"},
	}}
	s, err := New[string]("lines", loader, 2)
	require.NoError(t, err)

	items, errs := Pump(context.Background(), s)

	var got []string
	for v := range items {
		got = append(got, v)
	}
	require.Equal(t, []string{"a", "b", "c"}, got)
	require.NoError(t, <-errs)
}

func TestPumpReportsLoaderFailure(t *testing.T) {
	boom := errors.New("search exploded")
	loader := &fakeLoader{
		pages:  map[int][]string{0: {"a"}},
		failAt: 1,
		err:    boom,
	}
	s, err := New[string]("lines", loader, 1)
	require.NoError(t, err)

	items, errs := Pump(context.Background(), s)

	var got []string
	for v := range items {
		got = append(got, v)
	}
	require.Equal(t, []string{"a"}, got)
	require.ErrorIs(t, <-errs, boom)
}
