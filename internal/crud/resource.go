// Package crud implements list/get/create/update/delete against one REST
// collection of the booking API.
package crud

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/wolfman30/store-dashboard/internal/apiclient"
)

// Resource is a collection such as /stores/42/staffs whose members live at
// <path>/<id>.
type Resource[T any] struct {
	path           string
	collectionPath string
}

// NewResource returns a resource rooted at path.
func NewResource[T any](path string) *Resource[T] {
	path = "/" + strings.Trim(path, "/")
	return &Resource[T]{path: path, collectionPath: path}
}

// WithCollectionPath overrides the path used by List and Create, e.g.
// "/stores/" for an API that expects the trailing slash.
func (r *Resource[T]) WithCollectionPath(p string) *Resource[T] {
	out := *r
	out.collectionPath = p
	return &out
}

func (r *Resource[T]) Path() string { return r.path }

func (r *Resource[T]) member(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

// List fetches the collection. A null payload is an empty collection.
func (r *Resource[T]) List(ctx context.Context, c *apiclient.Client) ([]T, error) {
	items, err := apiclient.Get[[]T](ctx, c, r.collectionPath, nil)
	if err != nil {
		return nil, fmt.Errorf("crud: list %s: %w", r.path, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (r *Resource[T]) Get(ctx context.Context, c *apiclient.Client, id string) (T, error) {
	item, err := apiclient.Get[T](ctx, c, r.member(id), nil)
	if err != nil {
		return item, fmt.Errorf("crud: get %s: %w", r.member(id), err)
	}
	return item, nil
}

func (r *Resource[T]) Create(ctx context.Context, c *apiclient.Client, payload T) (T, error) {
	item, err := apiclient.Post[T](ctx, c, r.collectionPath, payload)
	if err != nil {
		return item, fmt.Errorf("crud: create %s: %w", r.path, err)
	}
	return item, nil
}

func (r *Resource[T]) Update(ctx context.Context, c *apiclient.Client, id string, payload T) (T, error) {
	item, err := apiclient.Put[T](ctx, c, r.member(id), payload)
	if err != nil {
		return item, fmt.Errorf("crud: update %s: %w", r.member(id), err)
	}
	return item, nil
}

// Delete removes one member; the request has no body.
func (r *Resource[T]) Delete(ctx context.Context, c *apiclient.Client, id string) error {
	if err := apiclient.Delete(ctx, c, r.member(id)); err != nil {
		return fmt.Errorf("crud: delete %s: %w", r.member(id), err)
	}
	return nil
}
