package image

import (
	"testing"

	"github.com/annel0/voxedit/internal/vec"
	"github.com/annel0/voxedit/internal/voxel"
)

var red = voxel.Color{255, 0, 0, 255}

func TestNewImageHasActiveLayer(t *testing.T) {
	img := New()
	defer img.Release()

	if len(img.Layers) != 1 {
		t.Fatalf("Ожидался 1 слой, получено %d", len(img.Layers))
	}
	if img.ActiveLayer() != img.Layers[0] {
		t.Error("Активный слой не совпадает с единственным")
	}
}

func TestDeleteLayerReassignsActive(t *testing.T) {
	img := New()
	defer img.Release()

	first := img.Layers[0]
	second := img.AddLayer()
	third := img.AddLayer()

	// Удаляем активный средний слой: активным становится следующий.
	img.ActiveLayerID = second.ID
	if err := img.DeleteLayer(second.ID); err != nil {
		t.Fatalf("DeleteLayer: %v", err)
	}
	if img.ActiveLayerID != third.ID {
		t.Errorf("Ожидался активный слой %d, получен %d", third.ID, img.ActiveLayerID)
	}

	// Удаляем активный последний: активным становится предыдущий.
	img.ActiveLayerID = third.ID
	if err := img.DeleteLayer(third.ID); err != nil {
		t.Fatalf("DeleteLayer: %v", err)
	}
	if img.ActiveLayerID != first.ID {
		t.Errorf("Ожидался активный слой %d, получен %d", first.ID, img.ActiveLayerID)
	}

	// Удаление последнего слоя создаёт свежий пустой.
	if err := img.DeleteLayer(first.ID); err != nil {
		t.Fatalf("DeleteLayer: %v", err)
	}
	if len(img.Layers) != 1 {
		t.Fatalf("Ожидался свежий слой, слоёв: %d", len(img.Layers))
	}
	if img.ActiveLayer() == nil || !img.ActiveLayer().Mesh.IsEmpty() {
		t.Error("Свежий слой должен быть пустым и активным")
	}
}

func TestDuplicateLayerIndependent(t *testing.T) {
	img := New()
	defer img.Release()

	p := vec.Vec3{X: 1, Y: 2, Z: 3}
	src := img.ActiveLayer()
	src.Mesh.SetVoxel(p, red)

	dup, err := img.DuplicateLayer(src.ID)
	if err != nil {
		t.Fatalf("DuplicateLayer: %v", err)
	}
	if dup.Mesh.GetVoxel(p) != red {
		t.Fatal("Копия не содержит вокселей оригинала")
	}

	// Правка оригинала не затрагивает копию.
	src.Mesh.SetVoxel(p, voxel.Empty)
	if dup.Mesh.GetVoxel(p) != red {
		t.Error("Правка оригинала просочилась в копию")
	}
}

func TestCloneLayerResync(t *testing.T) {
	img := New()
	defer img.Release()

	base := img.ActiveLayer()
	p := vec.Vec3{X: 0, Y: 0, Z: 0}
	base.Mesh.SetVoxel(p, red)

	clone, err := img.AddCloneLayer(base.ID)
	if err != nil {
		t.Fatalf("AddCloneLayer: %v", err)
	}
	if !clone.IsClone() {
		t.Fatal("Слой не распознан как clone")
	}
	if clone.Mesh.GetVoxel(p) != red {
		t.Fatal("Clone-слой не отражает содержимое базы")
	}

	// Правка базы видна в клоне после пересинхронизации.
	p2 := vec.Vec3{X: 5, Y: 5, Z: 5}
	base.Mesh.SetVoxel(p2, red)
	img.ResyncClones()
	if clone.Mesh.GetVoxel(p2) != red {
		t.Error("Clone-слой не пересинхронизировался с базой")
	}
}

func TestCloneLayerDegradesWhenBaseDeleted(t *testing.T) {
	img := New()
	defer img.Release()

	base := img.ActiveLayer()
	p := vec.Vec3{X: 1, Y: 1, Z: 1}
	base.Mesh.SetVoxel(p, red)

	clone, err := img.AddCloneLayer(base.ID)
	if err != nil {
		t.Fatalf("AddCloneLayer: %v", err)
	}

	if err := img.DeleteLayer(base.ID); err != nil {
		t.Fatalf("DeleteLayer: %v", err)
	}
	img.ResyncClones()

	// Клон деградирует до замороженной независимой копии.
	if clone.IsClone() {
		t.Error("Clone-слой не деградировал после удаления базы")
	}
	if clone.Mesh.GetVoxel(p) != red {
		t.Error("Содержимое клона потеряно при деградации")
	}
}

func TestCanEditLayer(t *testing.T) {
	img := New()
	defer img.Release()

	base := img.ActiveLayer()
	if !img.CanEditLayer(base.ID) {
		t.Error("Активный обычный слой должен быть редактируемым")
	}

	clone, err := img.AddCloneLayer(base.ID)
	if err != nil {
		t.Fatalf("AddCloneLayer: %v", err)
	}
	// Clone-слой активен, но недоступен для правки.
	if img.CanEditLayer(clone.ID) {
		t.Error("Clone-слой не должен быть редактируемым")
	}
	// Неактивный слой недоступен для правки.
	if img.CanEditLayer(base.ID) {
		t.Error("Неактивный слой не должен быть редактируемым")
	}
}

func TestMergeVisibleLayers(t *testing.T) {
	img := New()
	defer img.Release()

	a := img.ActiveLayer()
	a.Mesh.SetVoxel(vec.Vec3{X: 0, Y: 0, Z: 0}, red)

	b := img.AddLayer()
	b.Mesh.SetVoxel(vec.Vec3{X: 1, Y: 0, Z: 0}, red)

	hidden := img.AddLayer()
	hidden.Visible = false
	hidden.Mesh.SetVoxel(vec.Vec3{X: 2, Y: 0, Z: 0}, red)

	merged := img.MergeVisibleLayers()

	if merged.Mesh.VoxelCount() != 2 {
		t.Errorf("Ожидалось 2 вокселя в сведённом слое, получено %d", merged.Mesh.VoxelCount())
	}
	if len(img.Layers) != 2 {
		t.Errorf("Ожидалось 2 слоя (скрытый + сведённый), получено %d", len(img.Layers))
	}
	if _, ok := img.LayerByID(hidden.ID); !ok {
		t.Error("Скрытый слой потерян при сведении")
	}
	if img.ActiveLayerID != merged.ID {
		t.Error("Сведённый слой должен стать активным")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	img := New()
	defer img.Release()

	p := vec.Vec3{X: 3, Y: 3, Z: 3}
	img.ActiveLayer().Mesh.SetVoxel(p, red)
	key := img.Key()

	snap := img.Snapshot()
	defer snap.Release()

	// Правка оригинала не затрагивает снапшот.
	img.ActiveLayer().Mesh.SetVoxel(p, voxel.Empty)
	if snap.Layers[0].Mesh.GetVoxel(p) != red {
		t.Error("Правка оригинала просочилась в снапшот")
	}
	if snap.Key() != key {
		t.Error("Ключ снапшота изменился после правки оригинала")
	}
}

func TestImageKeyReflectsSelection(t *testing.T) {
	img := New()
	defer img.Release()

	key := img.Key()
	img.Selection = vec.EmptyBox().Extend(vec.Vec3{X: 0, Y: 0, Z: 0}).Extend(vec.Vec3{X: 5, Y: 5, Z: 5})
	if img.Key() == key {
		t.Error("Ключ изображения не отражает выделение")
	}
}

func TestModifiedAndMarkSaved(t *testing.T) {
	img := New()
	defer img.Release()

	img.MarkSaved("doc-1")
	if img.Modified() {
		t.Error("Изображение сразу после сохранения считается изменённым")
	}
	img.ActiveLayer().Mesh.SetVoxel(vec.Vec3{X: 0, Y: 0, Z: 0}, red)
	if !img.Modified() {
		t.Error("Правка не отразилась в признаке изменённости")
	}
}

func TestClipboardCopyCutPaste(t *testing.T) {
	img := New()
	defer img.Release()

	l := img.ActiveLayer()
	inside := vec.Vec3{X: 1, Y: 1, Z: 1}
	outside := vec.Vec3{X: 30, Y: 30, Z: 30}
	l.Mesh.SetVoxel(inside, red)
	l.Mesh.SetVoxel(outside, red)

	img.Selection = vec.EmptyBox().Extend(vec.Vec3{X: 0, Y: 0, Z: 0}).Extend(vec.Vec3{X: 5, Y: 5, Z: 5})

	// Вырезание стирает только выделенное.
	img.CutSelection()
	if !l.Mesh.GetVoxel(inside).IsEmpty() {
		t.Error("Выделенный воксель не вырезан")
	}
	if l.Mesh.GetVoxel(outside) != red {
		t.Error("Воксель вне выделения пострадал при вырезании")
	}

	// Вставка возвращает содержимое буфера.
	img.Paste()
	if l.Mesh.GetVoxel(inside) != red {
		t.Error("Вставка не вернула вырезанное содержимое")
	}
}

func TestCamerasAddDelete(t *testing.T) {
	img := New()
	defer img.Release()

	c1 := img.AddCamera("front")
	c2 := img.AddCamera("top")
	if img.ActiveCameraID != c2.ID {
		t.Error("Новая камера должна становиться активной")
	}

	if err := img.DeleteCamera(c2.ID); err != nil {
		t.Fatalf("DeleteCamera: %v", err)
	}
	if img.ActiveCameraID != c1.ID {
		t.Errorf("Ожидалась активная камера %d, получена %d", c1.ID, img.ActiveCameraID)
	}

	if err := img.DeleteCamera(c1.ID); err != nil {
		t.Fatalf("DeleteCamera: %v", err)
	}
	if len(img.Cameras) != 0 || img.ActiveCameraID != 0 {
		t.Error("Пустой список камер должен быть допустим")
	}

	if err := img.DeleteCamera(99); err == nil {
		t.Error("Ожидалась ошибка удаления несуществующей камеры")
	}
}
