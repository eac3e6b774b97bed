package main

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/skripsi/core"
)

func Test_run_databaseError(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Database.Engine = "nodriver"

	err := run(conf, core.NewNopLogger())
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "setting up database: opening database")
		assert.Contains(t, errors.Cause(err).Error(), `unknown driver "nodriver"`)
	}
}
