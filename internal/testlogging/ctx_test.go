package testlogging_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kopia/treediff/internal/logging"
	"github.com/kopia/treediff/internal/testlogging"
)

type capturingT struct {
	logs   []string
	errors []string
}

func (c *capturingT) Helper() {}

func (c *capturingT) Logf(msg string, args ...interface{}) {
	c.logs = append(c.logs, fmt.Sprintf(msg, args...))
}

func (c *capturingT) Errorf(msg string, args ...interface{}) {
	c.errors = append(c.errors, fmt.Sprintf(msg, args...))
}

func TestDebugwFormatsKeyValuePairs(t *testing.T) {
	ct := &capturingT{}
	l := logging.Module("mod1")(testlogging.Context(ct))

	l.Debugw("diff completed", "oldEntries", 1, "newEntries", 2)
	l.Debugw("no pairs")

	require.Equal(t, []string{
		"[mod1] diff completed oldEntries=1 newEntries=2",
		"[mod1] no pairs",
	}, ct.logs)
}

func TestLevels(t *testing.T) {
	ct := &capturingT{}
	l := logging.Module("mod1")(testlogging.ContextWithLevel(ct, testlogging.LevelWarning))

	l.Debugw("hidden", "k", "v")
	l.Debugf("hidden")
	l.Infof("hidden")
	l.Warnf("shown %v", 1)
	l.Errorf("failed %v", 2)

	require.Equal(t, []string{"[mod1] warning: shown 1"}, ct.logs)
	require.Equal(t, []string{"[mod1] failed 2"}, ct.errors)
}
