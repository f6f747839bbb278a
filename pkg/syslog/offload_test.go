/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package syslog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/healthchecker/pkg/db"
	"github.com/carverauto/healthchecker/pkg/logger"
	"github.com/carverauto/healthchecker/pkg/models"
)

func TestNewOffloaderRequiresStore(t *testing.T) {
	_, err := NewOffloader(nil, 1, 1, logger.NewTestLogger())
	require.ErrorIs(t, err, errNilStore)
}

func TestOffloaderAppliesQueuedUpdates(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := db.NewMockService(ctrl)

	var (
		mu   sync.Mutex
		seen []string
	)

	store.EXPECT().UpdateStationState(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, s models.StationState) (int64, error) {
			mu.Lock()
			seen = append(seen, s.MAC)
			mu.Unlock()

			return 1, nil
		}).Times(3)

	o, err := NewOffloader(store, 2, 8, logger.NewTestLogger())
	require.NoError(t, err)

	o.Start(context.Background())

	for _, mac := range []string{"a", "b", "c"} {
		assert.True(t, o.Submit(models.StationState{MAC: mac, State: models.StateUp}))
	}

	require.NoError(t, o.Stop(context.Background()))

	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)
	assert.Equal(t, int64(3), o.Applied())
	assert.Equal(t, int64(0), o.Dropped())

	assert.False(t, o.Submit(models.StationState{MAC: "late"}), "stopped offloader accepts nothing")
}

func TestOffloaderDropsWhenFull(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := db.NewMockService(ctrl)

	// not started, so nothing drains the queue
	o, err := NewOffloader(store, 1, 2, logger.NewTestLogger())
	require.NoError(t, err)

	assert.True(t, o.Submit(models.StationState{MAC: "a"}))
	assert.True(t, o.Submit(models.StationState{MAC: "b"}))
	assert.False(t, o.Submit(models.StationState{MAC: "c"}))
	assert.Equal(t, int64(1), o.Dropped())

	require.NoError(t, o.Stop(context.Background()))
}

func TestOffloaderApplyError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := db.NewMockService(ctrl)
	boom := errors.New("boom")

	store.EXPECT().UpdateStationState(gomock.Any(), models.StationState{MAC: "a"}).Return(int64(0), boom)

	o, err := NewOffloader(store, 1, 1, logger.NewTestLogger())
	require.NoError(t, err)

	require.ErrorIs(t, o.Apply(context.Background(), models.StationState{MAC: "a"}), boom)
	assert.Equal(t, int64(0), o.Applied())

	require.NoError(t, o.Stop(context.Background()))
}

func TestOffloaderStopHonoursContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := db.NewMockService(ctrl)

	release := make(chan struct{})
	entered := make(chan struct{})

	store.EXPECT().UpdateStationState(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.StationState) (int64, error) {
			close(entered)
			<-release

			return 1, nil
		})

	o, err := NewOffloader(store, 1, 1, logger.NewTestLogger())
	require.NoError(t, err)

	o.Start(context.Background())
	require.True(t, o.Submit(models.StationState{MAC: "slow"}))

	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.Error(t, o.Stop(ctx))

	close(release)
}
