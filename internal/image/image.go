package image

import (
	"fmt"

	"github.com/annel0/voxedit/internal/vec"
	"github.com/annel0/voxedit/internal/voxel"
)

// Image представляет документ редактора: упорядоченный список слоёв,
// камеры, рамка выделения и буфер обмена.
//
// Слои и камеры хранятся в срезах со стабильными числовыми id; активные
// ссылки держатся как id, а не указатели, поэтому снапшоты истории могут
// безопасно разделять и восстанавливать их. Значение Image явно
// передаётся во все операции — глобального документа нет.
type Image struct {
	Layers        []*Layer
	ActiveLayerID int

	Cameras        []*Camera
	ActiveCameraID int

	Selection vec.Box
	Clipboard *voxel.Mesh

	Path     string // путь файла документа (пустой — не сохранялся)
	SavedKey uint64 // ключ изображения на момент последнего сохранения

	NextLayerID  int
	NextCameraID int
}

// New создаёт изображение с одним пустым слоем
func New() *Image {
	img := &Image{
		Selection:    vec.EmptyBox(),
		NextLayerID:  1,
		NextCameraID: 1,
	}
	img.AddLayer()
	return img
}

// --- Слои ---

// LayerByID возвращает слой по id
func (img *Image) LayerByID(id int) (*Layer, bool) {
	for _, l := range img.Layers {
		if l.ID == id {
			return l, true
		}
	}
	return nil, false
}

// layerIndex возвращает индекс слоя в списке (-1, если не найден)
func (img *Image) layerIndex(id int) int {
	for i, l := range img.Layers {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// ActiveLayer возвращает активный слой. После New() и любой операции
// над слоями активная ссылка всегда указывает на существующий слой.
func (img *Image) ActiveLayer() *Layer {
	if l, ok := img.LayerByID(img.ActiveLayerID); ok {
		return l
	}
	// Не должно происходить: операции над слоями обязаны переназначать
	// активный слой. Восстанавливаемся, чтобы ссылка не повисла.
	if len(img.Layers) == 0 {
		return img.AddLayer()
	}
	img.ActiveLayerID = img.Layers[0].ID
	return img.Layers[0]
}

// AddLayer добавляет новый пустой слой поверх остальных и делает его
// активным.
func (img *Image) AddLayer() *Layer {
	l := NewLayer(img.NextLayerID, fmt.Sprintf("layer %d", img.NextLayerID))
	img.NextLayerID++
	img.Layers = append(img.Layers, l)
	img.ActiveLayerID = l.ID
	return l
}

// AddCloneLayer добавляет clone-слой, отслеживающий содержимое базового
// слоя. Меш клона разделяет блоки с базой (copy-on-write) и
// пересинхронизируется при изменении её ключа.
func (img *Image) AddCloneLayer(baseID int) (*Layer, error) {
	base, ok := img.LayerByID(baseID)
	if !ok {
		return nil, fmt.Errorf("базовый слой %d не найден", baseID)
	}
	l := NewLayer(img.NextLayerID, fmt.Sprintf("clone of %s", base.Name))
	img.NextLayerID++
	l.Mesh = base.Mesh.Copy()
	l.BaseID = base.ID
	l.BaseMeshKey = base.Mesh.Key()
	img.Layers = append(img.Layers, l)
	img.ActiveLayerID = l.ID
	return l, nil
}

// DeleteLayer удаляет слой. Если удалён активный слой, активным
// становится следующий за ним, иначе предыдущий; если список опустел,
// создаётся свежий пустой слой. Активная ссылка никогда не повисает.
func (img *Image) DeleteLayer(id int) error {
	idx := img.layerIndex(id)
	if idx < 0 {
		return fmt.Errorf("слой %d не найден", id)
	}
	l := img.Layers[idx]
	l.Mesh.Release()
	img.Layers = append(img.Layers[:idx], img.Layers[idx+1:]...)

	if len(img.Layers) == 0 {
		img.AddLayer()
		return nil
	}
	if img.ActiveLayerID == id {
		if idx < len(img.Layers) {
			img.ActiveLayerID = img.Layers[idx].ID
		} else {
			img.ActiveLayerID = img.Layers[len(img.Layers)-1].ID
		}
	}
	return nil
}

// MoveLayer перемещает слой на одну позицию в списке
// (d > 0 — вверх, d < 0 — вниз).
func (img *Image) MoveLayer(id int, d int) error {
	idx := img.layerIndex(id)
	if idx < 0 {
		return fmt.Errorf("слой %d не найден", id)
	}
	to := idx + 1
	if d < 0 {
		to = idx - 1
	}
	if to < 0 || to >= len(img.Layers) {
		return nil // уже на краю списка
	}
	img.Layers[idx], img.Layers[to] = img.Layers[to], img.Layers[idx]
	return nil
}

// DuplicateLayer создаёт полностью независимую копию слоя: меш
// копируется глубоко, блоки с оригиналом не разделяются, последующие
// правки любой из копий изолированы. Копия clone-слоя становится
// обычным слоем.
func (img *Image) DuplicateLayer(id int) (*Layer, error) {
	src, ok := img.LayerByID(id)
	if !ok {
		return nil, fmt.Errorf("слой %d не найден", id)
	}
	nl := NewLayer(img.NextLayerID, src.Name+" copy")
	img.NextLayerID++
	nl.Mesh = src.Mesh.DeepCopy()
	nl.Visible = src.Visible
	nl.Mat = src.Mat
	nl.Mode = src.Mode
	img.Layers = append(img.Layers, nl)
	img.ActiveLayerID = nl.ID
	return nl, nil
}

// MergeVisibleLayers сводит все видимые слои в один: меши по порядку
// вливаются в аккумулятор операцией слоя. Невидимые слои сохраняются.
func (img *Image) MergeVisibleLayers() *Layer {
	acc := voxel.NewMesh()
	kept := make([]*Layer, 0, len(img.Layers))
	merged := false
	for _, l := range img.Layers {
		if !l.Visible {
			kept = append(kept, l)
			continue
		}
		acc.Merge(l.Mesh, l.Mode)
		l.Mesh.Release()
		merged = true
	}
	if !merged {
		return img.ActiveLayer()
	}
	nl := NewLayer(img.NextLayerID, "merged")
	img.NextLayerID++
	nl.Mesh = acc
	img.Layers = append(kept, nl)
	img.ActiveLayerID = nl.ID
	return nl
}

// CanEditLayer возвращает true, если слой можно редактировать: слой
// должен быть активным и не быть clone-слоем (правки клона были бы
// перезаписаны пересинхронизацией). Проверяется до любой мутации.
func (img *Image) CanEditLayer(id int) bool {
	l, ok := img.LayerByID(id)
	if !ok {
		return false
	}
	return id == img.ActiveLayerID && !l.IsClone()
}

// ResyncClones пересинхронизирует clone-слои с их базами. Клон, база
// которого удалена, деградирует до замороженной независимой копии.
func (img *Image) ResyncClones() {
	for _, l := range img.Layers {
		if !l.IsClone() {
			continue
		}
		base, ok := img.LayerByID(l.BaseID)
		if !ok {
			// База удалена: содержимое остаётся как есть.
			l.BaseID = 0
			l.BaseMeshKey = 0
			continue
		}
		baseKey := base.Mesh.Key()
		if baseKey != l.BaseMeshKey {
			l.Mesh.Release()
			l.Mesh = base.Mesh.Copy()
			l.BaseMeshKey = baseKey
		}
	}
}

// --- Камеры ---

// AddCamera добавляет камеру и делает её активной
func (img *Image) AddCamera(name string) *Camera {
	if name == "" {
		name = fmt.Sprintf("camera %d", img.NextCameraID)
	}
	c := NewCamera(img.NextCameraID, name)
	img.NextCameraID++
	img.Cameras = append(img.Cameras, c)
	img.ActiveCameraID = c.ID
	return c
}

// CameraByID возвращает камеру по id
func (img *Image) CameraByID(id int) (*Camera, bool) {
	for _, c := range img.Cameras {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// DeleteCamera удаляет камеру, переназначая активную по тем же
// правилам, что и для слоёв. Пустой список камер допустим.
func (img *Image) DeleteCamera(id int) error {
	idx := -1
	for i, c := range img.Cameras {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("камера %d не найдена", id)
	}
	img.Cameras = append(img.Cameras[:idx], img.Cameras[idx+1:]...)
	if img.ActiveCameraID == id {
		if len(img.Cameras) == 0 {
			img.ActiveCameraID = 0
		} else if idx < len(img.Cameras) {
			img.ActiveCameraID = img.Cameras[idx].ID
		} else {
			img.ActiveCameraID = img.Cameras[len(img.Cameras)-1].ID
		}
	}
	return nil
}

// --- Снапшоты и ключи ---

// Snapshot создаёт копию изображения для истории: структура слоёв и
// камер дублируется, меши разделяют блоки с оригиналом. Байтово
// идентичные меши остаются общими до copy-on-write при следующей
// правке конкретного блока.
func (img *Image) Snapshot() *Image {
	ni := &Image{
		Layers:         make([]*Layer, len(img.Layers)),
		ActiveLayerID:  img.ActiveLayerID,
		Cameras:        make([]*Camera, len(img.Cameras)),
		ActiveCameraID: img.ActiveCameraID,
		Selection:      img.Selection,
		Path:           img.Path,
		SavedKey:       img.SavedKey,
		NextLayerID:    img.NextLayerID,
		NextCameraID:   img.NextCameraID,
	}
	for i, l := range img.Layers {
		ni.Layers[i] = l.snapshot()
	}
	for i, c := range img.Cameras {
		ni.Cameras[i] = c.Clone()
	}
	if img.Clipboard != nil {
		ni.Clipboard = img.Clipboard.Copy()
	}
	return ni
}

// Release отпускает меши всех слоёв изображения. Вызывается для
// снапшотов, выбывающих из истории.
func (img *Image) Release() {
	for _, l := range img.Layers {
		l.Mesh.Release()
	}
	if img.Clipboard != nil {
		img.Clipboard.Release()
		img.Clipboard = nil
	}
	img.Layers = nil
	img.Cameras = nil
}

// Key возвращает отпечаток изображения: меняется при любом структурном
// изменении (слои, камеры, выделение, активные ссылки).
func (img *Image) Key() uint64 {
	parts := make([]uint64, 0, len(img.Layers)+len(img.Cameras)+4)
	for _, l := range img.Layers {
		parts = append(parts, l.Key())
	}
	parts = append(parts, uint64(img.ActiveLayerID))
	for _, c := range img.Cameras {
		parts = append(parts, c.Key())
	}
	parts = append(parts, uint64(img.ActiveCameraID))
	parts = append(parts, boxKey(img.Selection))
	return voxel.CombineKeys(parts...)
}

// Modified возвращает true, если изображение изменилось с момента
// последнего сохранения (индикатор «есть несохранённые изменения»).
func (img *Image) Modified() bool {
	return img.Key() != img.SavedKey
}

// MarkSaved фиксирует текущий ключ как сохранённый
func (img *Image) MarkSaved(path string) {
	img.Path = path
	img.SavedKey = img.Key()
}

func boxKey(b vec.Box) uint64 {
	if b.Empty {
		return 0
	}
	return voxel.CombineKeys(
		uint64(int64(b.Min.X)), uint64(int64(b.Min.Y)), uint64(int64(b.Min.Z)),
		uint64(int64(b.Max.X)), uint64(int64(b.Max.Y)), uint64(int64(b.Max.Z)),
	)
}
