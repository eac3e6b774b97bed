package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/user"
)

func newTestLogger(debug bool) (*RollbarLogger, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	conf := core.NewTestConfig()
	conf.Debug = debug
	return NewRollbarLogger(log.New(buf, "", 0), conf), buf
}

func TestRollbarLogger_Levels(t *testing.T) {
	logger, buf := newTestLogger(false)
	defer logger.Close()

	logger.Debug("hidden")
	logger.Info("started", map[string]interface{}{"addr": ":8000"})
	logger.Warn("slow", user.User{ID: "u1", Username: "budi"})
	logger.Error("failed", errors.New("boom"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INFO: started")
	assert.Contains(t, out, "map[addr::8000]")
	assert.Contains(t, out, "WARN: slow")
	assert.NotContains(t, out, "budi") // users are only reported as the Rollbar person
	assert.Contains(t, out, "ERROR: failed")
	assert.NotContains(t, out, "boom") // errors are only printed with their stack in debug mode
}

func TestRollbarLogger_Debug(t *testing.T) {
	logger, buf := newTestLogger(true)
	defer logger.Close()

	logger.Debug("visible")
	logger.Error("failed", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "DEBUG: visible")
	assert.Contains(t, out, "boom")
}

func TestRollbarLogger_Close(t *testing.T) {
	logger, buf := newTestLogger(false)

	usr := &user.User{ID: "u1", Username: "budi"}
	logger.Warn("reported", usr)
	logger.Error("reported again", errors.New("boom"), map[string]interface{}{"proposal": "p1"})

	assert.NoError(t, logger.Close())
	assert.NoError(t, logger.Close()) // pending queue already drained
	assert.Contains(t, buf.String(), "map[proposal:p1]")
	assert.NotContains(t, buf.String(), "budi")
}
