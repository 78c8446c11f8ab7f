package toolserver

import (
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicetrader/src/session"
)

func TestPushLoggerTracesUncorrelatedFrames(t *testing.T) {
	log, hook := logrustest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	h := pushLogger(logrus.NewEntry(log))

	h(&session.Response{ReqID: 7, MsgType: "ticks"})
	assert.Empty(t, hook.AllEntries())

	h(&session.Response{MsgType: "tick"})
	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, "gateway push", entry.Message)
	assert.Equal(t, "tick", entry.Data["msg_type"])
	assert.NotContains(t, entry.Data, "code")

	h(&session.Response{MsgType: "proposal_open_contract", Error: &session.APIError{Code: "InvalidContractId"}})
	require.Len(t, hook.AllEntries(), 2)
	assert.Equal(t, "InvalidContractId", hook.LastEntry().Data["code"])
}

func TestPushLoggerSilentAboveDebug(t *testing.T) {
	log, hook := logrustest.NewNullLogger()
	log.SetLevel(logrus.InfoLevel)

	pushLogger(logrus.NewEntry(log))(&session.Response{MsgType: "tick"})
	assert.Empty(t, hook.AllEntries())
}

func TestRuntimeCloseWithoutClient(t *testing.T) {
	called := false
	rt := &Runtime{unsubscribe: func() { called = true }}
	rt.Close()
	assert.True(t, called)
}
