package reconcile

import (
	"context"
	"time"

	"auditoria-backend/internal/config"
	"auditoria-backend/internal/database"

	"github.com/bsm/redislock"
)

const lockTTL = 30 * time.Second

// acquireReferenceLock serializa las reconciliaciones por código de referencia
// entre todas las instancias del servidor. Devuelve la función de liberación.
// Lock ya tomado → ErrBusy: el llamador decide si reintenta o deja que el
// siguiente guardado de conteo vuelva a disparar la reconciliación.
func acquireReferenceLock(ctx context.Context, code string) (func(), error) {
	locker := database.RedisLocker()
	if locker == nil {
		// Redis sin inicializar (tests unitarios): se continúa sin lock.
		config.GetLogger().WithField("reference", code).
			Warn("redis locker no inicializado; reconciliación sin lock distribuido")
		return func() {}, nil
	}

	lock, err := locker.Obtain(ctx, "reconcile:"+code, lockTTL, nil)
	if err == redislock.ErrNotObtained {
		return nil, ErrBusy
	}
	if err != nil {
		return nil, err
	}

	return func() { _ = lock.Release(ctx) }, nil
}
