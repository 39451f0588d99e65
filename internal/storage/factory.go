// internal/storage/factory.go
package storage

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/dohaibbur/CYBER-HERO/internal/logging"
	gormstorage "github.com/dohaibbur/CYBER-HERO/internal/storage/gorm"
	"github.com/dohaibbur/CYBER-HERO/internal/storage/memory"
)

// NewBackend creates a storage backend by configured type.
func NewBackend(backendType string, db *gorm.DB, logManager *logging.SlogManager) (Backend, error) {
	switch backendType {
	case "database":
		return gormstorage.New(gormstorage.Dependencies{
			DB:         db,
			LogManager: logManager,
		}), nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", backendType)
	}
}

var (
	_ Backend = (*gormstorage.Backend)(nil)
	_ Backend = (*memory.Backend)(nil)
)
