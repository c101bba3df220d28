package errors

import (
	"github.com/stretchr/testify/require"
	"log/slog"
	"slices"
	"testing"
)

func TestAnnotatedError(t *testing.T) {
	err := New("test error", slog.String("id", "123"))
	require.Equal(t, "test error", err.Error())

	// Assert that wrapping sentinel errors work as expected.
	sentinel := NewSentinel("test error")
	require.NotErrorIs(t, err, NewSentinel("test error"))
	wrapped := Wrap(sentinel, "load case")
	require.ErrorIs(t, wrapped, sentinel)
	require.Equal(t, "load case: test error", wrapped.Error())

	// Ensure log values are coming through.
	var annotated AnnotatedError
	require.True(t, As(err, &annotated))
	group := annotated.LogValue().Group()
	require.Contains(t, group, slog.String("id", "123"))

	// Assert there's a valid source
	sourceIdx := slices.IndexFunc(group, func(attr slog.Attr) bool {
		return attr.Key == "source"
	})
	source := group[sourceIdx]
	require.Contains(t, source.Value.String(), "annotatederror_test.go")
}

func TestWrapNil(t *testing.T) {
	require.NoError(t, Wrap(nil, "nothing happened"))
	require.NoError(t, Mark(nil, NewSentinel("sentinel")))
}

func TestMark(t *testing.T) {
	category := NewSentinel("generation failed")
	cause := NewSentinel("connection reset")
	err := Wrap(Mark(cause, category), "start case", slog.String("difficulty", "Easy"))

	require.ErrorIs(t, err, category)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "start case: generation failed: connection reset", err.Error())
}

func TestSlogError(t *testing.T) {
	inner := Wrap(NewSentinel("disk full"), "insert row", slog.String("table", "case_history"))
	outer := Wrap(inner, "record case", slog.String("player_id", "p1"))

	attr := SlogError(outer)
	require.Equal(t, "error", attr.Key)
	group := attr.Value.Group()
	require.Contains(t, group, slog.String("message", "record case: insert row: disk full"))
	require.Contains(t, group, slog.String("table", "case_history"))
	require.Contains(t, group, slog.String("player_id", "p1"))

	sourceIdx := slices.IndexFunc(group, func(attr slog.Attr) bool {
		return attr.Key == "source"
	})
	require.GreaterOrEqual(t, sourceIdx, 0, "source attribute missing")
	require.Contains(t, group[sourceIdx].Value.String(), "annotatederror_test.go")
}
