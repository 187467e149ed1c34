// Package repository provides the unit of work (Session) and the Bun backed
// repositories for members and teams: CRUD, derived queries, projections,
// paging, slicing and bulk updates.
package repository
