package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/lmscache/cache"
	"github.com/brightpath/lmscache/cache/cachetest"
	"github.com/brightpath/lmscache/logger"
)

func TestEmergencyClearRequiresMatchingToken(t *testing.T) {
	ctx := context.Background()
	store := cachetest.NewMockStore()
	svc := cache.NewService(store, logger.New("error", false))
	log := logger.New("error", false)

	store.Seed("k", []byte(`1`), time.Minute, nil)

	tests := []struct {
		name    string
		confirm string
		token   string
	}{
		{name: "wrong confirmation", confirm: "nope", token: "wipe-it-all"},
		{name: "empty confirmation", confirm: "", token: "wipe-it-all"},
		{name: "no token configured", confirm: "anything", token: ""},
		{name: "both empty", confirm: "", token: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := EmergencyClear(ctx, svc, log, tt.confirm, tt.token)
			assert.ErrorIs(t, err, cache.ErrConfirmationRequired)
		})
	}

	// The entry survives every rejected attempt.
	assert.Zero(t, store.ClearCalls.Load())
	_, err := store.Read(ctx, "k")
	assert.NoError(t, err)
}

func TestEmergencyClearWipesOnConfirmation(t *testing.T) {
	ctx := context.Background()
	store := cachetest.NewMockStore()
	svc := cache.NewService(store, logger.New("error", false))

	store.Seed("k", []byte(`1`), time.Minute, nil)

	err := EmergencyClear(ctx, svc, logger.New("error", false), "wipe-it-all", "wipe-it-all")
	require.NoError(t, err)

	_, err = store.Read(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrNotFound)
}
