package storage

import (
	"testing"

	"github.com/annel0/voxedit/internal/image"
	"github.com/annel0/voxedit/internal/vec"
	"github.com/annel0/voxedit/internal/voxel"
)

var red = voxel.Color{255, 0, 0, 255}

func newStorage(t *testing.T) *DocumentStorage {
	t.Helper()
	ds, err := NewDocumentStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewDocumentStorage: %v", err)
	}
	t.Cleanup(func() { ds.Close() })
	return ds
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ds := newStorage(t)

	img := image.New()
	defer img.Release()

	l := img.ActiveLayer()
	l.Name = "основа"
	l.Mesh.SetVoxel(vec.Vec3{X: 1, Y: 2, Z: 3}, red)
	l.Mesh.SetVoxel(vec.Vec3{X: -20, Y: 0, Z: 0}, red)

	second := img.AddLayer()
	second.Visible = false
	second.Mesh.SetVoxel(vec.Vec3{X: 100, Y: 100, Z: 100}, red)

	img.AddCamera("front")
	img.Selection = vec.EmptyBox().Extend(vec.Vec3{}).Extend(vec.Vec3{X: 5, Y: 5, Z: 5})

	if err := ds.SaveImage("doc-1", img); err != nil {
		t.Fatalf("SaveImage: %v", err)
	}

	loaded, err := ds.LoadImage("doc-1")
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	defer loaded.Release()

	if len(loaded.Layers) != 2 {
		t.Fatalf("Ожидалось 2 слоя, получено %d", len(loaded.Layers))
	}
	ll := loaded.Layers[0]
	if ll.Name != "основа" || !ll.Visible {
		t.Errorf("Метаданные слоя искажены: %+v", ll)
	}
	if got := ll.Mesh.GetVoxel(vec.Vec3{X: 1, Y: 2, Z: 3}); got != red {
		t.Errorf("Воксель не восстановлен: %v", got)
	}
	if got := ll.Mesh.GetVoxel(vec.Vec3{X: -20, Y: 0, Z: 0}); got != red {
		t.Errorf("Воксель в отрицательных координатах не восстановлен: %v", got)
	}
	if ll.Mesh.Key() != l.Mesh.Key() {
		t.Error("Ключ меша после загрузки не совпал с исходным")
	}

	if loaded.Layers[1].Visible {
		t.Error("Скрытость слоя потеряна")
	}
	if loaded.ActiveLayerID != img.ActiveLayerID {
		t.Errorf("Активный слой: ожидался %d, получен %d", img.ActiveLayerID, loaded.ActiveLayerID)
	}
	if len(loaded.Cameras) != 1 || loaded.Cameras[0].Name != "front" {
		t.Error("Камеры не восстановлены")
	}
	if loaded.Selection.Empty || !loaded.Selection.Max.Equals(vec.Vec3{X: 6, Y: 6, Z: 6}) {
		t.Error("Выделение не восстановлено")
	}
	if loaded.Modified() {
		t.Error("Только что загруженный документ считается изменённым")
	}
}

func TestSaveOverwritesPrevious(t *testing.T) {
	ds := newStorage(t)

	img := image.New()
	defer img.Release()
	img.ActiveLayer().Mesh.SetVoxel(vec.Vec3{X: 0, Y: 0, Z: 0}, red)
	if err := ds.SaveImage("doc-1", img); err != nil {
		t.Fatalf("SaveImage: %v", err)
	}

	// Стираем воксель и сохраняем снова: старый блок не должен воскреснуть.
	img.ActiveLayer().Mesh.SetVoxel(vec.Vec3{X: 0, Y: 0, Z: 0}, voxel.Empty)
	if err := ds.SaveImage("doc-1", img); err != nil {
		t.Fatalf("Повторный SaveImage: %v", err)
	}

	loaded, err := ds.LoadImage("doc-1")
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	defer loaded.Release()
	if !loaded.Layers[0].Mesh.IsEmpty() {
		t.Error("Стёртые воксели воскресли после перезаписи")
	}
}

func TestListAndDeleteDocuments(t *testing.T) {
	ds := newStorage(t)

	for _, id := range []string{"a", "b"} {
		img := image.New()
		img.ActiveLayer().Mesh.SetVoxel(vec.Vec3{X: 0, Y: 0, Z: 0}, red)
		if err := ds.SaveImage(id, img); err != nil {
			t.Fatalf("SaveImage(%s): %v", id, err)
		}
		img.Release()
	}

	ids, err := ds.ListDocuments()
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("Ожидалось 2 документа, получено %d: %v", len(ids), ids)
	}

	if err := ds.DeleteImage("a"); err != nil {
		t.Fatalf("DeleteImage: %v", err)
	}
	ids, err = ds.ListDocuments()
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(ids) != 1 || ids[0] != "b" {
		t.Errorf("Ожидался только документ b, получено %v", ids)
	}

	if _, err := ds.LoadImage("a"); err == nil {
		t.Error("Загрузка удалённого документа должна возвращать ошибку")
	}
}

func TestLoadMissingDocument(t *testing.T) {
	ds := newStorage(t)
	if _, err := ds.LoadImage("нет"); err == nil {
		t.Error("Ожидалась ошибка для несуществующего документа")
	}
}
