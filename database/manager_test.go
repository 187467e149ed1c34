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

package database

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type widget struct {
	bun.BaseModel `bun:"table:widget,alias:w"`

	ID   int64  `bun:"widget_id,pk,autoincrement"`
	Name string `bun:"name,notnull"`
}

type gadget struct {
	bun.BaseModel `bun:"table:gadget,alias:g"`

	ID       int64 `bun:"gadget_id,pk,autoincrement"`
	WidgetID int64 `bun:"widget_id,nullzero"`
}

func init() {
	RegisteredModel(NewModelAdapter((*gadget)(nil), 2))
	RegisteredModel(NewModelAdapter((*widget)(nil), 1))
	RegisterForeignKey(ForeignKeyConstraint{
		Table:           "gadget",
		Column:          "widget_id",
		ReferenceTable:  "widget",
		ReferenceColumn: "widget_id",
		OnDelete:        "CASCADE",
	})
}

func memoryConfig(t *testing.T) *Config {
	cfg := DefaultConfig()
	cfg.ConnectionConfig.DBName = "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	cfg.ConnectionConfig.MaxOpenConns = 1
	cfg.ConnectionConfig.MaxIdleConns = 1
	cfg.ConnectionConfig.HealthCheckInterval = 0
	return cfg
}

func TestModelRegistryOrder(t *testing.T) {
	models := RegisteredModelInstances()
	require.GreaterOrEqual(t, len(models), 2)
	assert.IsType(t, (*widget)(nil), models[0])
	assert.IsType(t, (*gadget)(nil), models[1])

	r := newModelRegistry()
	r.Register(NewModelAdapter((*widget)(nil), 5))
	r.Register(NewModelAdapter((*widget)(nil), 0))
	require.Len(t, r.Models(), 1)
	assert.Equal(t, 0, r.Models()[0].Priority())
}

func TestCreateFromConfig(t *testing.T) {
	factory := NewDatabaseFactory()

	_, err := factory.CreateFromConfig(nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.ConnectionConfig.Type = "oracle"
	_, err = factory.CreateFromConfig(cfg)
	assert.ErrorContains(t, err, "unsupported database type")

	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")
	cfg = DefaultConfig()
	cfg.ConnectionConfig.Type = "postgres"
	_, err = factory.CreateFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.ConnectionConfig.Host)
	assert.Equal(t, 6543, cfg.ConnectionConfig.Port)
	assert.Equal(t, 100, cfg.ConnectionConfig.MaxOpenConns)
}

func TestInitializeDatabaseAndMigrations(t *testing.T) {
	ctx := context.Background()
	factory := NewDatabaseFactory()
	assert.Error(t, factory.InitializeDatabase(ctx, true))

	_, err := factory.CreateFromConfig(memoryConfig(t))
	require.NoError(t, err)
	require.NoError(t, factory.InitializeDatabase(ctx, true))
	db := factory.GetDB()
	require.NotNil(t, db)

	mm := NewMigrationManager(db, nil)
	applied, err := mm.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "001", applied[0].Version)

	var ddl string
	err = db.NewSelect().TableExpr("sqlite_master").ColumnExpr("sql").Where("name = ?", "gadget").Scan(ctx, &ddl)
	require.NoError(t, err)
	assert.Contains(t, ddl, "REFERENCES")
	assert.Contains(t, ddl, "ON DELETE CASCADE")

	var foreignKeys int
	require.NoError(t, db.NewRaw("PRAGMA foreign_keys").Scan(ctx, &foreignKeys))
	assert.Equal(t, 1, foreignKeys)

	_, err = db.NewInsert().Model(&widget{Name: "w1"}).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&gadget{WidgetID: 42}).Exec(ctx)
	assert.Equal(t, ForeignKeyViolationErr, Classify(err))

	// a second run finds version 001 applied and keeps the data
	require.NoError(t, factory.GetManager().RunMigrations(ctx))
	count, err := db.NewSelect().Model((*widget)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	status := factory.GetHealthStatus(ctx)
	assert.True(t, status.Healthy)
	assert.True(t, status.Connected)
	assert.Equal(t, 1, factory.GetStats().MaxOpenConns)

	require.NoError(t, mm.DropTables(ctx))
	_, err = db.NewSelect().Model((*widget)(nil)).Count(ctx)
	assert.Equal(t, NoTableErr, Classify(err))

	require.NoError(t, factory.Close())
	assert.Equal(t, "Database not initialized", factory.GetHealthStatus(ctx).LastError)
	assert.Nil(t, factory.GetDB())
}

func TestGlobalDatabase(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, CloseDB())
	assert.Nil(t, GetDB())
	assert.Error(t, RunMigrations(ctx))
	assert.False(t, GetHealthStatus(ctx).Healthy)

	_, err := InitDB(nil)
	assert.Error(t, err)

	db, err := InitDB(memoryConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDB() })
	assert.Same(t, db, GetDB())
	assert.NoError(t, RunMigrations(ctx))
	assert.True(t, GetHealthStatus(ctx).Healthy)
	assert.Equal(t, 1, GetDatabaseStats().MaxOpenConns)
}

func TestQueryHookPrintsFailedQueries(t *testing.T) {
	t.Setenv("DATAJPA_SQL", "1")
	ctx := context.Background()
	factory := NewDatabaseFactory()
	_, err := factory.CreateFromConfig(memoryConfig(t))
	require.NoError(t, err)
	require.NoError(t, factory.InitializeDatabase(ctx, false))
	t.Cleanup(func() { _ = factory.Close() })

	var buf bytes.Buffer
	db := factory.GetDB()
	db.AddQueryHook(NewQueryHook(false, &buf))

	_, err = db.NewRaw("SELECT 1").Exec(ctx)
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	_, err = db.NewRaw("SELECT * FROM missing_table").Exec(ctx)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "missing_table")
}

func TestReconnect(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig(t)
	dm := newDatabaseManager(&cfg.ConnectionConfig, cfg.DataMigrateConfig)
	require.NoError(t, dm.Connect(ctx))

	status := dm.HealthCheck(ctx)
	assert.True(t, status.Healthy)
	assert.Empty(t, status.LastError)

	previous := dm.GetDB()
	require.NoError(t, dm.Reconnect(ctx))
	assert.NotSame(t, previous, dm.GetDB())
	assert.NoError(t, dm.Ping(ctx))

	require.NoError(t, dm.Disconnect())
	assert.Error(t, dm.Ping(ctx))
	assert.False(t, dm.HealthCheck(ctx).Healthy)
}

func TestHealthCheckReconnects(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig(t)
	cfg.ConnectionConfig.HealthCheckInterval = 20 * time.Millisecond
	cfg.ConnectionConfig.ReconnectInterval = 10 * time.Millisecond
	cfg.ConnectionConfig.EnableReconnect = true
	cfg.ConnectionConfig.MaxReconnectTries = 3

	dm := newDatabaseManager(&cfg.ConnectionConfig, cfg.DataMigrateConfig)
	require.NoError(t, dm.Connect(ctx))
	t.Cleanup(func() { _ = dm.Disconnect() })

	// the background check notices the closed pool and reconnects
	broken := dm.GetDB()
	require.NoError(t, dm.GetSQLDB().Close())
	require.Eventually(t, func() bool {
		return dm.GetDB() != broken && dm.Ping(ctx) == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, dm.HealthCheck(ctx).Healthy)
}
