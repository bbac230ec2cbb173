package render

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/voxedit/internal/cache"
	"github.com/annel0/voxedit/internal/logging"
	"github.com/annel0/voxedit/internal/voxel"
	"github.com/prometheus/client_golang/prometheus"
)

// Effects — конфигурация эффектов, с которой запекается буфер.
// Разные эффекты дают независимые записи кеша для одного меша.
type Effects uint32

const (
	EffectNone    Effects = 0
	EffectShadows Effects = 1 << iota
	EffectOutline
)

// MeshCache — потребитель ключей мешей: хранит запечённые буферы граней
// и перестраивает их только при несовпадении наблюдаемого ключа с
// последним запечённым. Меши никогда не мутируются.
//
// Тот же механизм обслуживает pick-буферы и экспорт: содержимое
// адресуется ключом, поэтому запись не может устареть незаметно.
type MeshCache struct {
	mu      sync.Mutex
	entries map[entryKey]*entry
	bake    cache.BakeCache // может быть nil — без межпроцессного кеша

	rebuilds prometheus.Counter
	hits     prometheus.Counter
}

type entryKey struct {
	holder  int // id слоя или другого владельца меша
	effects Effects
}

type entry struct {
	meshKey uint64
	faces   []Face
}

var (
	cacheMetricsOnce sync.Once
	cacheRebuilds    prometheus.Counter
	cacheHits        prometheus.Counter
)

// NewMeshCache создаёт кеш. bake может быть nil.
func NewMeshCache(bake cache.BakeCache) *MeshCache {
	cacheMetricsOnce.Do(func() {
		cacheRebuilds = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxedit",
			Name:      "render_rebuilds_total",
			Help:      "Количество перестроений буферов граней.",
		})
		cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxedit",
			Name:      "render_key_hits_total",
			Help:      "Обращений, обслуженных без перестроения (ключ совпал).",
		})
		prometheus.MustRegister(cacheRebuilds, cacheHits)
	})
	return &MeshCache{
		entries:  make(map[entryKey]*entry),
		bake:     bake,
		rebuilds: cacheRebuilds,
		hits:     cacheHits,
	}
}

// Faces возвращает буфер граней меша, перестраивая его только когда
// наблюдаемый ключ отличается от последнего запечённого.
func (rc *MeshCache) Faces(ctx context.Context, holder int, m *voxel.Mesh, effects Effects) []Face {
	key := m.Key()
	ek := entryKey{holder: holder, effects: effects}

	rc.mu.Lock()
	defer rc.mu.Unlock()

	if e, ok := rc.entries[ek]; ok && e.meshKey == key {
		rc.hits.Inc()
		return e.faces
	}

	faces := rc.build(ctx, key, m, effects)
	rc.entries[ek] = &entry{meshKey: key, faces: faces}
	return faces
}

// build достаёт буфер из bake-кеша либо извлекает грани заново
func (rc *MeshCache) build(ctx context.Context, key uint64, m *voxel.Mesh, effects Effects) []Face {
	bakeKey := fmt.Sprintf("%016x:%d", key, effects)

	if rc.bake != nil {
		if data, err := rc.bake.Get(ctx, bakeKey); err == nil {
			if faces, err := DecodeFaces(data); err == nil {
				return faces
			}
			logging.Warn("Повреждённый буфер в bake-кеше, перестраиваем: %s", bakeKey)
		}
	}

	rc.rebuilds.Inc()
	faces := ExtractFaces(m)

	if rc.bake != nil {
		if err := rc.bake.Set(ctx, bakeKey, EncodeFaces(faces), 24*time.Hour); err != nil {
			logging.Warn("Не удалось записать буфер в bake-кеш: %v", err)
		}
	}
	return faces
}

// Invalidate удаляет запись владельца (например, при удалении слоя)
func (rc *MeshCache) Invalidate(holder int) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	for ek := range rc.entries {
		if ek.holder == holder {
			delete(rc.entries, ek)
		}
	}
}
