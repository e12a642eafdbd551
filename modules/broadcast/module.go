package broadcast

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/task-tracker/events"
)

// BroadcastModule turns task change events into per-owner WebSocket
// pushes. It owns the hub; the API module registers connections into it.
type BroadcastModule struct {
	hub    *Hub
	cancel context.CancelFunc
}

// Compile-time interface checks.
var _ mono.Module = (*BroadcastModule)(nil)
var _ mono.EventConsumerModule = (*BroadcastModule)(nil)
var _ mono.HealthCheckableModule = (*BroadcastModule)(nil)

// NewModule creates a new broadcast module.
func NewModule() *BroadcastModule {
	return &BroadcastModule{
		hub: NewHub(),
	}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// Hub exposes the hub so the API module can register connections.
func (m *BroadcastModule) Hub() *Hub {
	return m.hub
}

// Start launches the hub loop.
func (m *BroadcastModule) Start(ctx context.Context) error {
	hubCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.hub.Run(hubCtx)

	log.Println("[broadcast] Module started")
	return nil
}

// Stop shuts down the hub and waits for it to close all connections.
func (m *BroadcastModule) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
		m.hub.Wait()
	}
	log.Println("[broadcast] Module stopped")
	return nil
}

// RegisterEventConsumers subscribes to the task change events.
func (m *BroadcastModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCreatedV1, m.handleTaskCreated, m); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskUpdatedV1, m.handleTaskUpdated, m); err != nil {
		return fmt.Errorf("failed to register TaskUpdated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskDeletedV1, m.handleTaskDeleted, m); err != nil {
		return fmt.Errorf("failed to register TaskDeleted consumer: %w", err)
	}
	return nil
}

// Health reports hub connectivity stats.
func (m *BroadcastModule) Health(ctx context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "Broadcast hub is running",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

func (m *BroadcastModule) handleTaskCreated(ctx context.Context, event events.TaskCreatedEvent, msg *mono.Msg) error {
	m.hub.Broadcast(event.OwnerID, "tasks:created", event.Task)
	return nil
}

func (m *BroadcastModule) handleTaskUpdated(ctx context.Context, event events.TaskUpdatedEvent, msg *mono.Msg) error {
	m.hub.Broadcast(event.OwnerID, "tasks:updated", event.Task)
	return nil
}

func (m *BroadcastModule) handleTaskDeleted(ctx context.Context, event events.TaskDeletedEvent, msg *mono.Msg) error {
	m.hub.Broadcast(event.OwnerID, "tasks:deleted", map[string]any{"id": event.TaskID})
	return nil
}
