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

package repository

import (
	"errors"
	"fmt"

	"github.com/tomoncle/datajpa/database"
)

var (
	// ErrNotFound is returned when a delete or refresh matched no row.
	ErrNotFound = errors.New("repository: entity not found")
	// ErrAmbiguousResult is returned by single-result queries matching more than one row.
	ErrAmbiguousResult = errors.New("repository: query returned more than one result")
	// ErrConstraintViolation wraps store errors raised by integrity constraints.
	ErrConstraintViolation = errors.New("repository: constraint violation")
	// ErrUnsavedReference is returned when an entity references an entity without identity.
	ErrUnsavedReference = errors.New("repository: reference to unsaved entity")
	// ErrInvalidSortProperty is returned for sort properties outside the repository whitelist.
	ErrInvalidSortProperty = errors.New("repository: invalid sort property")
	// ErrSessionClosed is returned when a committed or rolled back session is used.
	ErrSessionClosed = errors.New("repository: session closed")
)

// translate maps constraint failures reported by the driver to
// ErrConstraintViolation, keeping the driver error in the chain.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if ok, kind := database.IsSqlError(err); ok && kind.IsConstraintViolation() {
		return fmt.Errorf("%w: %s: %w", ErrConstraintViolation, kind, err)
	}
	return err
}
