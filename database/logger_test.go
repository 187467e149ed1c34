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
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type recordingLogger struct {
	DefaultLogger
	warnings []string
}

func (l *recordingLogger) Warn(msg string, fields ...interface{}) {
	l.warnings = append(l.warnings, msg)
}

func TestToFields(t *testing.T) {
	fields := toFields([]interface{}{"id", 1, "name", "member1", "dangling"})
	assert.Equal(t, logrus.Fields{"id": 1, "name": "member1"}, fields)
}

func TestInitLogger(t *testing.T) {
	previous := GetLogger()
	defer InitLogger(previous)

	custom := &recordingLogger{DefaultLogger: *NewDefaultLogger("DATABASE_TEST")}
	InitLogger(nil)
	assert.Same(t, previous, GetLogger())
	InitLogger(custom)
	assert.Same(t, custom, GetLogger())

	GetLogger().Warn("slow")
	assert.Equal(t, []string{"slow"}, custom.warnings)
	assert.Equal(t, "WARN", LogLevelWarn.String())
}
