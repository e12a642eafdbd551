package files

import (
	"context"
	"log"
	"os"

	"github.com/go-monolith/mono"
)

// Module owns the attachment blob store.
type Module struct {
	store *DiskStore
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new files module. The storage directory comes from
// UPLOAD_DIR, defaulting to a local uploads directory.
func NewModule() *Module {
	dir := os.Getenv("UPLOAD_DIR")
	if dir == "" {
		dir = "uploads"
	}
	return &Module{
		store: NewDiskStore(dir),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "files"
}

// Start creates the storage directory.
func (m *Module) Start(_ context.Context) error {
	if err := m.store.Init(); err != nil {
		return err
	}
	log.Printf("[files] Module started (blob directory: %s)", m.store.Dir())
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[files] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	info, err := os.Stat(m.store.Dir())
	if err != nil || !info.IsDir() {
		return mono.HealthStatus{
			Healthy: false,
			Message: "blob directory unavailable",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"directory": m.store.Dir(),
		},
	}
}

// Store returns the blob store for other modules to use.
func (m *Module) Store() BlobStore {
	return m.store
}
