package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/annel0/voxedit/internal/image"
	"github.com/annel0/voxedit/internal/vec"
	"github.com/annel0/voxedit/internal/voxel"
	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"
)

// DocumentStorage — хранилище документов редактора поверх BadgerDB.
//
// Метаданные изображения (список слоёв, камеры, активные ссылки)
// сериализуются в JSON под одним ключом; сырые данные каждого непустого
// блока сжимаются zstd и хранятся под собственным ключом. Формат обмена
// с внешними редакторами сюда не входит.
type DocumentStorage struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// imageMeta — сериализуемые метаданные изображения
type imageMeta struct {
	Layers         []layerMeta     `json:"layers"`
	ActiveLayerID  int             `json:"active_layer"`
	Cameras        []*image.Camera `json:"cameras"`
	ActiveCameraID int             `json:"active_camera"`
	Selection      vec.Box         `json:"selection"`
	Path           string          `json:"path"`
	NextLayerID    int             `json:"next_layer_id"`
	NextCameraID   int             `json:"next_camera_id"`
	Key            uint64          `json:"key"`
}

// layerMeta — сериализуемые метаданные слоя плюс координаты его блоков
type layerMeta struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Visible     bool        `json:"visible"`
	Mat         [16]float64 `json:"mat"`
	Mode        int         `json:"mode"`
	BaseID      int         `json:"base_id,omitempty"`
	BaseMeshKey uint64      `json:"base_mesh_key,omitempty"`
	Blocks      []vec.Vec3  `json:"blocks"`
}

// NewDocumentStorage открывает хранилище документов
func NewDocumentStorage(dataPath string) (*DocumentStorage, error) {
	dbPath := filepath.Join(dataPath, "documents")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd-компрессор: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd-декомпрессор: %w", err)
	}

	return &DocumentStorage{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
		enc:     enc,
		dec:     dec,
	}, nil
}

// Close закрывает хранилище
func (ds *DocumentStorage) Close() error {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	if !ds.isReady {
		return nil
	}
	ds.isReady = false
	ds.enc.Close()
	ds.dec.Close()
	return ds.db.Close()
}

func metaKey(docID string) []byte {
	return []byte(fmt.Sprintf("img:%s:meta", docID))
}

func blockKey(docID string, layerID int, bc vec.Vec3) []byte {
	return []byte(fmt.Sprintf("img:%s:blk:%d:%d:%d:%d", docID, layerID, bc.X, bc.Y, bc.Z))
}

// SaveImage сохраняет изображение документа целиком: старые ключи
// документа удаляются, затем записываются метаданные и блоки всех слоёв.
func (ds *DocumentStorage) SaveImage(docID string, img *image.Image) error {
	ds.mutex.RLock()
	defer ds.mutex.RUnlock()

	if !ds.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	// Удаляем прежнее содержимое документа: набор блоков мог сжаться.
	if err := ds.dropPrefix(fmt.Sprintf("img:%s:", docID)); err != nil {
		return err
	}

	meta := imageMeta{
		ActiveLayerID:  img.ActiveLayerID,
		Cameras:        img.Cameras,
		ActiveCameraID: img.ActiveCameraID,
		Selection:      img.Selection,
		Path:           img.Path,
		NextLayerID:    img.NextLayerID,
		NextCameraID:   img.NextCameraID,
		Key:            img.Key(),
	}

	wb := ds.db.NewWriteBatch()
	defer wb.Cancel()

	for _, l := range img.Layers {
		lm := layerMeta{
			ID:          l.ID,
			Name:        l.Name,
			Visible:     l.Visible,
			Mat:         l.Mat,
			Mode:        int(l.Mode),
			BaseID:      l.BaseID,
			BaseMeshKey: l.BaseMeshKey,
		}
		var iterErr error
		l.Mesh.IterateBlocks(func(bc vec.Vec3, b *voxel.Block) bool {
			lm.Blocks = append(lm.Blocks, bc)
			compressed := ds.enc.EncodeAll(b.Data(), nil)
			if err := wb.Set(blockKey(docID, l.ID, bc), compressed); err != nil {
				iterErr = err
				return false
			}
			return true
		})
		if iterErr != nil {
			return fmt.Errorf("ошибка записи блоков слоя %d: %w", l.ID, iterErr)
		}
		meta.Layers = append(meta.Layers, lm)
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("ошибка сериализации метаданных: %w", err)
	}
	if err := wb.Set(metaKey(docID), data); err != nil {
		return fmt.Errorf("ошибка записи метаданных: %w", err)
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

// LoadImage загружает изображение документа. Отсутствующий документ —
// ошибка badger.ErrKeyNotFound в обёртке.
func (ds *DocumentStorage) LoadImage(docID string) (*image.Image, error) {
	ds.mutex.RLock()
	defer ds.mutex.RUnlock()

	if !ds.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var meta imageMeta
	err := ds.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(docID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения документа %s: %w", docID, err)
	}

	img := &image.Image{
		ActiveLayerID:  meta.ActiveLayerID,
		Cameras:        meta.Cameras,
		ActiveCameraID: meta.ActiveCameraID,
		Selection:      meta.Selection,
		Path:           meta.Path,
		SavedKey:       meta.Key,
		NextLayerID:    meta.NextLayerID,
		NextCameraID:   meta.NextCameraID,
	}

	for _, lm := range meta.Layers {
		l := image.NewLayer(lm.ID, lm.Name)
		l.Visible = lm.Visible
		l.Mat = lm.Mat
		l.Mode = voxel.MergeOp(lm.Mode)
		l.BaseID = lm.BaseID
		l.BaseMeshKey = lm.BaseMeshKey
		for _, bc := range lm.Blocks {
			raw, err := ds.loadBlock(docID, lm.ID, bc)
			if err != nil {
				return nil, err
			}
			if err := l.Mesh.InsertBlock(bc, raw); err != nil {
				return nil, fmt.Errorf("ошибка вставки блока %v слоя %d: %w", bc, lm.ID, err)
			}
		}
		img.Layers = append(img.Layers, l)
	}

	return img, nil
}

// loadBlock читает и распаковывает один блок
func (ds *DocumentStorage) loadBlock(docID string, layerID int, bc vec.Vec3) ([]byte, error) {
	var raw []byte
	err := ds.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blockKey(docID, layerID, bc))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			raw, err = ds.dec.DecodeAll(val, nil)
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения блока %v: %w", bc, err)
	}
	return raw, nil
}

// DeleteImage удаляет документ из хранилища
func (ds *DocumentStorage) DeleteImage(docID string) error {
	ds.mutex.RLock()
	defer ds.mutex.RUnlock()

	if !ds.isReady {
		return fmt.Errorf("хранилище не готово")
	}
	return ds.dropPrefix(fmt.Sprintf("img:%s:", docID))
}

// ListDocuments возвращает идентификаторы сохранённых документов
func (ds *DocumentStorage) ListDocuments() ([]string, error) {
	ds.mutex.RLock()
	defer ds.mutex.RUnlock()

	if !ds.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var ids []string
	err := ds.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte("img:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			if strings.HasSuffix(key, ":meta") {
				id := strings.TrimSuffix(strings.TrimPrefix(key, "img:"), ":meta")
				ids = append(ids, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка перечисления документов: %w", err)
	}
	return ids, nil
}

// dropPrefix удаляет все ключи с указанным префиксом
func (ds *DocumentStorage) dropPrefix(prefix string) error {
	var keys [][]byte
	err := ds.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ошибка обхода ключей %s: %w", prefix, err)
	}
	if len(keys) == 0 {
		return nil
	}

	wb := ds.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return fmt.Errorf("ошибка удаления ключа: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("ошибка удаления документа: %w", err)
	}
	return nil
}
