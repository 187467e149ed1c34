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

package types

import "fmt"

const DefaultPageSize = 10

// Order is a single sort instruction on an entity property, e.g. "username DESC".
type Order struct {
	Property  string
	Direction Direction
}

func (o Order) String() string {
	return fmt.Sprintf("%s %s", o.Property, o.Direction)
}

// Sort is an ordered list of sort instructions; the zero value means unsorted.
type Sort struct {
	orders []Order
}

// SortBy sorts all given properties in the same direction.
func SortBy(direction Direction, properties ...string) Sort {
	orders := make([]Order, 0, len(properties))
	for _, p := range properties {
		orders = append(orders, Order{Property: p, Direction: direction})
	}
	return Sort{orders: orders}
}

// Unsorted returns an empty sort.
func Unsorted() Sort { return Sort{} }

// And appends the orders of other after the orders of s.
func (s Sort) And(other Sort) Sort {
	orders := make([]Order, 0, len(s.orders)+len(other.orders))
	orders = append(orders, s.orders...)
	orders = append(orders, other.orders...)
	return Sort{orders: orders}
}

func (s Sort) Orders() []Order {
	orders := make([]Order, len(s.orders))
	copy(orders, s.orders)
	return orders
}

func (s Sort) IsSorted() bool { return len(s.orders) > 0 }

// PageRequest describes a zero-based page index, a page size and ordering.
type PageRequest struct {
	page     int
	pageSize int
	sort     Sort
}

// PageOf constructs a PageRequest; a negative page is clamped to 0 and a
// non-positive size falls back to DefaultPageSize.
func PageOf(page int, pageSize int, sort ...Sort) *PageRequest {
	p := &PageRequest{page: page, pageSize: pageSize}
	for _, s := range sort {
		p.sort = p.sort.And(s)
	}
	return p
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		p.pageSize = DefaultPageSize
	}
	return p.pageSize
}

func (p *PageRequest) GetPage() int {
	if p.page < 0 {
		p.page = 0
	}
	return p.page
}

func (p *PageRequest) GetOffset() int {
	return p.GetPage() * p.GetPageSize()
}

func (p *PageRequest) GetSort() Sort {
	return p.sort
}

// Next returns the request for the following page with the same size and sort.
func (p *PageRequest) Next() *PageRequest {
	return &PageRequest{page: p.GetPage() + 1, pageSize: p.GetPageSize(), sort: p.sort}
}

// Previous returns the request for the preceding page, or the first page.
func (p *PageRequest) Previous() *PageRequest {
	prev := p.GetPage() - 1
	if prev < 0 {
		prev = 0
	}
	return &PageRequest{page: prev, pageSize: p.GetPageSize(), sort: p.sort}
}

// Slice is a chunk of results that only knows whether more data follows.
type Slice[T any] struct {
	Content  []*T
	Page     int
	PageSize int
	hasNext  bool
}

// NewSlice constructs a Slice; a nil content becomes an empty slice.
func NewSlice[T any](content []*T, request *PageRequest, hasNext bool) *Slice[T] {
	if content == nil {
		content = make([]*T, 0)
	}
	return &Slice[T]{Content: content, Page: request.GetPage(), PageSize: request.GetPageSize(), hasNext: hasNext}
}

func (s *Slice[T]) HasNext() bool { return s.hasNext }

func (s *Slice[T]) HasPrevious() bool { return s.Page > 0 }

func (s *Slice[T]) IsFirst() bool { return !s.HasPrevious() }

func (s *Slice[T]) IsLast() bool { return !s.HasNext() }

func (s *Slice[T]) NumberOfElements() int { return len(s.Content) }

// Page is a Slice that additionally carries the total number of matching rows.
type Page[T any] struct {
	Slice[T]
	Total int
}

// NewPage constructs a Page and derives hasNext from the total count.
func NewPage[T any](content []*T, request *PageRequest, total int) *Page[T] {
	hasNext := request.GetOffset()+len(content) < total
	return &Page[T]{Slice: *NewSlice(content, request, hasNext), Total: total}
}

// NewDefaultPage constructs an empty page.
func NewDefaultPage[T any](request *PageRequest) *Page[T] {
	return NewPage[T](nil, request, 0)
}

func (p *Page[T]) TotalPages() int {
	if p.PageSize < 1 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// MapPage converts the content of a page keeping its metadata. The first
// conversion error aborts the mapping.
func MapPage[T any, R any](p *Page[T], fn func(*T) (R, error)) (*Page[R], error) {
	content := make([]*R, 0, len(p.Content))
	for _, item := range p.Content {
		r, err := fn(item)
		if err != nil {
			return nil, err
		}
		content = append(content, &r)
	}
	return &Page[R]{
		Slice: Slice[R]{Content: content, Page: p.Page, PageSize: p.PageSize, hasNext: p.hasNext},
		Total: p.Total,
	}, nil
}
