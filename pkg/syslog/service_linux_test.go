//go:build linux

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
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/healthchecker/pkg/db"
	"github.com/carverauto/healthchecker/pkg/logger"
	"github.com/carverauto/healthchecker/pkg/models"
)

func TestServiceReplaysThenListens(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := db.NewMockService(ctrl)

	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	replayed := models.StationState{MAC: "AA-BB-CC-DD-EE-FF", IP: "10.0.0.5", State: models.StateUp}
	live := models.StationState{MAC: "00-11-22-33-44-55", State: models.StateDown}

	liveDone := make(chan struct{})

	gomock.InOrder(
		store.EXPECT().ListRawLogEvents(gomock.Any(), start, start.Add(5*time.Second)).Return([]models.RawLogEvent{
			{Message: "x AP a(IP 10.0.0.5；MAC AA-BB-CC-DD-EE-FF) 成功接入", CreatedAt: start},
		}, nil),
		store.EXPECT().UpdateStationState(gomock.Any(), replayed).Return(int64(1), nil),
		store.EXPECT().UpdateStationState(gomock.Any(), live).
			DoAndReturn(func(context.Context, models.StationState) (int64, error) {
				close(liveDone)
				return 1, nil
			}),
	)

	svc, err := NewService(Config{
		ReplayStart:  &start,
		ReplayWindow: 5 * time.Second,
	}, store, logger.NewTestLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))
	require.ErrorIs(t, svc.Start(ctx), ErrReactorRunning)

	conn, err := net.Dial("tcp", svc.Addr().String())
	require.NoError(t, err)

	_, err = conn.Write([]byte("STA(MAC 00-11-22-33-44-55)断开连接"))
	require.NoError(t, err)

	select {
	case <-liveDone:
	case <-time.After(2 * time.Second):
		t.Fatal("live update not applied")
	}

	require.NoError(t, conn.Close())
	require.NoError(t, svc.Stop(ctx))

	assert.Equal(t, int64(2), svc.Offloader().Applied())
}

func TestServiceReplayFailureAbortsStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := db.NewMockService(ctrl)

	start := time.Now()

	store.EXPECT().ListRawLogEvents(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, db.ErrStoreUnavailable)

	svc, err := NewService(Config{ReplayStart: &start}, store, logger.NewTestLogger())
	require.NoError(t, err)

	require.ErrorIs(t, svc.Start(context.Background()), db.ErrStoreUnavailable)
	assert.Nil(t, svc.Addr())
	require.NoError(t, svc.Stop(context.Background()))
}
