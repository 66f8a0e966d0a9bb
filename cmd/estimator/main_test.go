package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/standardbeagle/estimator/internal/cache"
	"github.com/standardbeagle/estimator/internal/config"
	"github.com/standardbeagle/estimator/internal/dataservice"
	"github.com/standardbeagle/estimator/pkg/estimate"
	"github.com/standardbeagle/estimator/pkg/events"
)

func init() {
	color.NoColor = true
}

// TestPrintEstimates tests the estimates table.
func TestPrintEstimates(t *testing.T) {
	list := []estimate.Estimate{{
		ID:   "e1",
		Name: "Smith house",
		Rooms: map[string]estimate.Room{
			"r1": {ID: "r1", Name: "Lounge", Products: []estimate.ProductLineItem{{ID: "oak", MinPrice: 100, MaxPrice: 150.5}}},
		},
	}}

	var buf bytes.Buffer
	printEstimates(&buf, list, false)
	out := buf.String()
	assert.Contains(t, out, "Smith house")
	assert.Contains(t, out, "150.50")
	assert.NotContains(t, out, "Lounge")

	buf.Reset()
	printEstimates(&buf, list, true)
	assert.Contains(t, buf.String(), "Lounge")
	assert.Contains(t, buf.String(), "1 products")

	buf.Reset()
	printEstimates(&buf, nil, false)
	assert.Contains(t, buf.String(), "no estimates")
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Storage.Driver = "file"
	cfg.Storage.Path = filepath.Join(t.TempDir(), "estimates.json")
	return cfg
}

// TestOpenLocalBackend tests that the file backend persists through the
// data service.
func TestOpenLocalBackend(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	be, err := openBackend(ctx, cfg, zap.NewNop(), nil)
	require.NoError(t, err)
	_, err = be.data.CreateEstimate(ctx, dataservice.EstimateInput{Name: "Persisted"})
	require.NoError(t, err)
	require.NoError(t, be.Close())

	be, err = openBackend(ctx, cfg, zap.NewNop(), nil)
	require.NoError(t, err)
	defer be.Close()
	list, err := be.data.ListEstimates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Persisted", list[0].Name)
}

// TestOpenRemoteBackend tests driver selection.
func TestOpenRemoteBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend.Driver = "remote"
	cfg.Backend.URL = "http://127.0.0.1:1"

	be, err := openBackend(context.Background(), cfg, zap.NewNop(), nil)
	require.NoError(t, err)
	assert.NotNil(t, be.remote)
	assert.Nil(t, be.local)

	cfg.Backend.URL = "not a url"
	_, err = openBackend(context.Background(), cfg, zap.NewNop(), nil)
	assert.Error(t, err)
}

// TestUnknownStorageDriver tests that a bad driver name is reported.
func TestUnknownStorageDriver(t *testing.T) {
	_, err := openSnapshot(context.Background(), config.StorageConfig{Driver: "floppy"})
	assert.Error(t, err)
}

// TestWatchReloadsExternalWrites tests that a second writer's changes
// reach the first process as a reload event.
func TestWatchReloadsExternalWrites(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Watch = true
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewEventBus(nil)
	defer bus.Shutdown()
	reloaded := make(chan struct{}, 4)
	bus.Subscribe(events.StoreReloaded, func(events.Event) { reloaded <- struct{}{} })

	watched, err := openBackend(ctx, cfg, zap.NewNop(), bus)
	require.NoError(t, err)
	defer watched.Close()
	require.NoError(t, watched.watch(ctx, cfg.Storage, zap.NewNop()))

	other, err := openBackend(ctx, cfg, zap.NewNop(), nil)
	require.NoError(t, err)
	defer other.Close()
	_, err = other.data.CreateEstimate(ctx, dataservice.EstimateInput{Name: "From elsewhere"})
	require.NoError(t, err)

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after external write")
	}
	list, err := watched.data.ListEstimates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

// TestInvalidator tests which cache entries external events drop.
func TestInvalidator(t *testing.T) {
	var dropped []string
	c, err := cache.New(8, cache.WithInvalidationHook(func(id string) { dropped = append(dropped, id) }))
	require.NoError(t, err)
	invalidate := invalidator(c)

	invalidate(events.Event{Type: events.RoomCreated, EstimateID: "e1"})
	invalidate(events.Event{Type: events.StoreReloaded})
	assert.Equal(t, "e1", dropped[0])
	assert.Len(t, dropped, 2)
}

// TestVersionCommand tests the version output.
func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "estimator version dev\n", buf.String())
}

// TestConfigInit tests writing the default config once.
func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	configPath = path
	defer func() { configPath = "" }()

	var buf bytes.Buffer
	configInitCmd.SetOut(&buf)
	require.NoError(t, configInitCmd.RunE(configInitCmd, nil))
	assert.Contains(t, buf.String(), path)

	_, err := config.Load(path)
	require.NoError(t, err)
	assert.Error(t, configInitCmd.RunE(configInitCmd, nil))
}
