package main

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/store-dashboard/pkg/logging"
)

type fakeMigrator struct {
	upErr   error
	steps   []int
	forced  []int
	version uint
}

func (f *fakeMigrator) Up() error { return f.upErr }

func (f *fakeMigrator) Steps(n int) error {
	f.steps = append(f.steps, n)
	return nil
}

func (f *fakeMigrator) Force(v int) error {
	f.forced = append(f.forced, v)
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, false, nil }

func TestRunDefaultsToUp(t *testing.T) {
	m := &fakeMigrator{upErr: migrate.ErrNoChange}
	require.NoError(t, run(nil, m, logging.Discard()))
}

func TestRunUpFailure(t *testing.T) {
	m := &fakeMigrator{upErr: errors.New("boom")}
	assert.ErrorContains(t, run([]string{"up"}, m, logging.Discard()), "boom")
}

func TestRunDown(t *testing.T) {
	m := &fakeMigrator{}
	require.NoError(t, run([]string{"down"}, m, logging.Discard()))
	require.NoError(t, run([]string{"down", "2"}, m, logging.Discard()))
	assert.Equal(t, []int{-1, -2}, m.steps)

	assert.Error(t, run([]string{"down", "0"}, m, logging.Discard()))
}

func TestRunForce(t *testing.T) {
	m := &fakeMigrator{}
	require.NoError(t, run([]string{"force", "1"}, m, logging.Discard()))
	assert.Equal(t, []int{1}, m.forced)

	assert.Error(t, run([]string{"force"}, m, logging.Discard()))
	assert.Error(t, run([]string{"force", "x"}, m, logging.Discard()))
}

func TestRunUnknownCommand(t *testing.T) {
	assert.ErrorContains(t, run([]string{"sideways"}, &fakeMigrator{}, logging.Discard()), "unknown command")
}
