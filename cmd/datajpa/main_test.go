/*
 * Copyright 2025 tomoncle.
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

package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datajpa/database"
	"github.com/tomoncle/datajpa/utils"
)

func TestLoadAppConfig(t *testing.T) {
	cfg, err := loadAppConfig("../../configs/datajpa.yaml")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	conn := cfg.ConfigLoader().ConnectionConfig
	assert.Equal(t, "sqlite", conn.Type)
	assert.Equal(t, "datajpa", conn.DBName)
	assert.Equal(t, time.Hour, conn.ConnMaxLifetime)
	assert.Equal(t, 200*time.Millisecond, conn.SlowQueryTime)
	assert.True(t, cfg.Database.DataMigrateConfig.EnableForeignKey)
	assert.Equal(t, "configs/foreign_keys.yaml", cfg.Database.DataMigrateConfig.ForeignKeyFile)
	// unset keys keep their defaults
	assert.Equal(t, 3, conn.MaxReconnectTries)

	cfg, err = loadAppConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.Database.ConnectionConfig.DBName)

	_, err = loadAppConfig("missing.yaml")
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	log = utils.NewLogger("DATAJPA")
	cfg, err := loadAppConfig("")
	require.NoError(t, err)
	cfg.Database.ConnectionConfig.DBName = "file:cmd_run?mode=memory&cache=shared"
	cfg.Database.ConnectionConfig.HealthCheckInterval = 0

	_, err = database.InitDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB() })

	require.NoError(t, run(context.Background()))
}
