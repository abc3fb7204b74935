package logging_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kopia/treediff/internal/logging"
)

func TestBroadcast(t *testing.T) {
	var lines []string

	collect := func(msg string, args ...interface{}) {
		lines = append(lines, fmt.Sprintf(msg, args...))
	}

	l := logging.Broadcast{
		logging.Printf(collect, "first ")("m"),
		logging.Printf(collect, "second ")("m"),
	}

	l.Debugf("A")
	l.Debugw("S", "b", 123)
	l.Infof("B %v", 1)
	l.Errorf("C")
	l.Warnf("W")

	require.Equal(t, []string{
		"first [m] A",
		"second [m] A",
		"first [m] S\tb=123",
		"second [m] S\tb=123",
		"first [m] B 1",
		"second [m] B 1",
		"first [m] C",
		"second [m] C",
		"first [m] W",
		"second [m] W",
	}, lines)
}

func TestNullWriterModule(t *testing.T) {
	l := logging.Module("mod1")(context.Background())

	l.Debugf("A")
	l.Debugw("S", "b", 123)
	l.Infof("B")
	l.Errorf("C")
	l.Warnf("W")
}

func TestWithAdditionalLogger(t *testing.T) {
	var first, second []string

	ctx := logging.WithLogger(context.Background(), logging.Printf(func(msg string, args ...interface{}) {
		first = append(first, fmt.Sprintf(msg, args...))
	}, ""))
	ctx = logging.WithAdditionalLogger(ctx, logging.Printf(func(msg string, args ...interface{}) {
		second = append(second, fmt.Sprintf(msg, args...))
	}, ""))

	logging.Module("mod1")(ctx).Infof("hello %v", "world")

	require.Equal(t, []string{"[mod1] hello world"}, first)
	require.Equal(t, []string{"[mod1] hello world"}, second)
}
