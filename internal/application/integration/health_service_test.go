package integration

import (
	"context"
	"testing"

	"github.com/scafi/backend/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func liveModes() integration.ExecutionModes {
	return integration.ResolveModes(false, false, false)
}

func TestHealthService_Check(t *testing.T) {
	t.Run("both dependencies up", func(t *testing.T) {
		store := new(MockRecordStore)
		client := new(MockDownstreamClient)
		store.On("Ping", mock.Anything).Return(nil)
		client.On("Ping", mock.Anything).Return(nil)

		service := NewHealthService(store, client, zap.NewNop())
		status := service.Check(context.Background(), liveModes())

		assert.Equal(t, integration.SubsystemUp, status.Database)
		assert.Equal(t, integration.SubsystemUp, status.Downstream)
		assert.True(t, status.Ready())
	})

	t.Run("database down makes the adapter not ready", func(t *testing.T) {
		store := new(MockRecordStore)
		client := new(MockDownstreamClient)
		store.On("Ping", mock.Anything).Return(assert.AnError)
		client.On("Ping", mock.Anything).Return(nil)

		service := NewHealthService(store, client, zap.NewNop())
		status := service.Check(context.Background(), liveModes())

		assert.Equal(t, integration.SubsystemDown, status.Database)
		assert.False(t, status.Ready())
	})

	t.Run("downstream down makes the adapter not ready", func(t *testing.T) {
		store := new(MockRecordStore)
		client := new(MockDownstreamClient)
		store.On("Ping", mock.Anything).Return(nil)
		client.On("Ping", mock.Anything).Return(assert.AnError)

		service := NewHealthService(store, client, zap.NewNop())
		status := service.Check(context.Background(), liveModes())

		assert.Equal(t, integration.SubsystemDown, status.Downstream)
		assert.False(t, status.Ready())
	})

	t.Run("dry-run dependencies are skipped, not probed", func(t *testing.T) {
		store := new(MockRecordStore)
		client := new(MockDownstreamClient)

		service := NewHealthService(store, client, zap.NewNop())
		status := service.Check(context.Background(), integration.ResolveModes(true, true, false))

		assert.Equal(t, integration.SubsystemSkipped, status.Database)
		assert.Equal(t, integration.SubsystemSkipped, status.Downstream)
		assert.True(t, status.Ready())
		store.AssertNotCalled(t, "Ping", mock.Anything)
		client.AssertNotCalled(t, "Ping", mock.Anything)
	})

	t.Run("mixed modes probe only the live dependency", func(t *testing.T) {
		store := new(MockRecordStore)
		client := new(MockDownstreamClient)
		store.On("Ping", mock.Anything).Return(nil)

		service := NewHealthService(store, client, zap.NewNop())
		status := service.Check(context.Background(), integration.ResolveModes(false, true, false))

		assert.Equal(t, integration.SubsystemUp, status.Database)
		assert.Equal(t, integration.SubsystemSkipped, status.Downstream)
		client.AssertNotCalled(t, "Ping", mock.Anything)
	})
}
