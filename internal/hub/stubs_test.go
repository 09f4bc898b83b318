package hub

import (
	"context"
	"time"

	"collaborative-canvas/internal/repository"
)

type noopStore struct{}

func (noopStore) Get(context.Context, string, string) ([]byte, error) {
	return nil, repository.ErrNotFound
}
func (noopStore) Put(context.Context, string, string, []byte) error { return nil }
func (noopStore) Delete(context.Context, string, string) error { return nil }
func (noopStore) DeletePrefix(context.Context, string, string) error { return nil }
func (noopStore) List(context.Context, string, string) ([][]byte, error) { return nil, nil }
func (noopStore) DeleteAll(context.Context, string) error { return nil }

type noopWake struct{}

func (noopWake) SetWake(context.Context, string, time.Time) error { return nil }
func (noopWake) CancelWake(context.Context, string) error { return nil }
