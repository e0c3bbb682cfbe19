package system

import (
	"context"
	"time"

	coresys "github.com/l1jgo/scenegraph/internal/core/system"
	"github.com/l1jgo/scenegraph/internal/scene"
	"github.com/l1jgo/scenegraph/internal/serial"
	"go.uber.org/zap"
)

// SnapshotStore is the subset of persist.SnapshotRepo used for autosave.
type SnapshotStore interface {
	Save(ctx context.Context, name string, body []byte, entities int) (bool, error)
}

// PersistenceSystem periodically serializes the scene and stores it as a
// snapshot. Unchanged scenes are skipped by the store. Phase 4 (Persist).
type PersistenceSystem struct {
	scene    *scene.Scene
	ser      *serial.Serializer
	store    SnapshotStore
	log      *zap.Logger
	interval time.Duration
	elapsed  time.Duration
}

func NewPersistenceSystem(s *scene.Scene, ser *serial.Serializer, store SnapshotStore, interval time.Duration, log *zap.Logger) *PersistenceSystem {
	return &PersistenceSystem{
		scene:    s,
		ser:      ser,
		store:    store,
		log:      log,
		interval: interval,
	}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(dt time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.elapsed += dt
	if s.elapsed < s.interval {
		return
	}
	s.elapsed = 0
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.Save(ctx); err != nil {
		s.log.Error("autosave failed", zap.String("scene", s.scene.Name()), zap.Error(err))
	}
}

// Save stores the scene now. Called on shutdown so no changes are lost.
func (s *PersistenceSystem) Save(ctx context.Context) (bool, error) {
	body, err := s.ser.Marshal(s.scene)
	if err != nil {
		return false, err
	}
	saved, err := s.store.Save(ctx, s.scene.Name(), body, s.scene.Len()-s.scene.QueuedCount())
	if err != nil {
		return false, err
	}
	if saved {
		s.log.Info("scene saved", zap.String("scene", s.scene.Name()), zap.Int("bytes", len(body)))
	}
	return saved, nil
}
