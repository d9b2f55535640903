package firebase

import (
	"context"

	"firebase.google.com/go/v4/db"
)

// database is the subset of Realtime Database operations the store relies on,
// addressed by absolute path
type database interface {
	Get(ctx context.Context, path string, v interface{}) error
	GetWithETag(ctx context.Context, path string, v interface{}) (string, error)
	GetIfChanged(ctx context.Context, path, etag string, v interface{}) (bool, string, error)
	Set(ctx context.Context, path string, v interface{}) error
	Delete(ctx context.Context, path string) error
}

type rtdb struct {
	client *db.Client
}

func (r *rtdb) Get(ctx context.Context, path string, v interface{}) error {
	return r.client.NewRef(path).Get(ctx, v)
}

func (r *rtdb) GetWithETag(ctx context.Context, path string, v interface{}) (string, error) {
	return r.client.NewRef(path).GetWithETag(ctx, v)
}

func (r *rtdb) GetIfChanged(ctx context.Context, path, etag string, v interface{}) (bool, string, error) {
	return r.client.NewRef(path).GetIfChanged(ctx, etag, v)
}

func (r *rtdb) Set(ctx context.Context, path string, v interface{}) error {
	return r.client.NewRef(path).Set(ctx, v)
}

func (r *rtdb) Delete(ctx context.Context, path string) error {
	return r.client.NewRef(path).Delete(ctx)
}
