package workgroup

import (
	"context"
	"errors"
	"testing"

	"gotest.tools/assert"
)

func TestFirstErrorCancelsPeers(t *testing.T) {
	group := WithContext(context.Background())
	failure := errors.New("worker failed")

	group.Work(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	group.Work(func(context.Context) error {
		return failure
	})

	assert.Equal(t, group.Wait(), failure)
	assert.Assert(t, group.Context().Err() != nil)
}

func TestCleanExit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	group := WithContext(ctx)
	group.Work(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	cancel()
	assert.NilError(t, group.Wait())
}
