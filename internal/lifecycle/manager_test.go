package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []string
}

type fakeComponent struct {
	name     string
	rec      *recorder
	startErr error
	stopErr  error
}

func (f *fakeComponent) Start(context.Context) error {
	f.rec.events = append(f.rec.events, "start "+f.name)
	return f.startErr
}

func (f *fakeComponent) Stop(context.Context) error {
	f.rec.events = append(f.rec.events, "stop "+f.name)
	return f.stopErr
}

func (f *fakeComponent) Name() string { return f.name }

func TestManager_StartStopOrder(t *testing.T) {
	rec := &recorder{}
	store := &fakeComponent{name: "store", rec: rec}
	watcher := &fakeComponent{name: "watcher", rec: rec}
	api := &fakeComponent{name: "api", rec: rec}

	m := NewManager()
	require.NoError(t, m.Register(store))
	require.NoError(t, m.Register(watcher))
	require.NoError(t, m.Register(api, store, watcher))

	require.NoError(t, m.Start(context.Background()))
	assert.True(t, m.IsRunning(api))

	require.NoError(t, m.Stop(context.Background()))
	assert.False(t, m.IsRunning(api))

	assert.Equal(t, []string{
		"start store", "start watcher", "start api",
		"stop api", "stop watcher", "stop store",
	}, rec.events)
}

func TestManager_RollbackOnFailure(t *testing.T) {
	rec := &recorder{}
	store := &fakeComponent{name: "store", rec: rec}
	api := &fakeComponent{name: "api", rec: rec, startErr: errors.New("port in use")}

	m := NewManager()
	require.NoError(t, m.Register(store))
	require.NoError(t, m.Register(api, store))

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting api")
	assert.Equal(t, []string{"start store", "start api", "stop store"}, rec.events)
	assert.False(t, m.IsRunning(store))
}

func TestManager_StopCollectsErrors(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("flush failed")
	store := &fakeComponent{name: "store", rec: rec, stopErr: boom}

	m := NewManager()
	require.NoError(t, m.Register(store))
	require.NoError(t, m.Start(context.Background()))

	err := m.Stop(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestManager_RegisterValidation(t *testing.T) {
	rec := &recorder{}
	a := &fakeComponent{name: "a", rec: rec}
	orphan := &fakeComponent{name: "orphan", rec: rec}

	m := NewManager()
	assert.Error(t, m.Register(nil))
	assert.Error(t, m.Register(&fakeComponent{rec: rec}))
	require.NoError(t, m.Register(a))
	assert.Error(t, m.Register(a))
	assert.Error(t, m.Register(&fakeComponent{name: "b", rec: rec}, orphan))
}
