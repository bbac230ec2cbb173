package voxel

import (
	"testing"

	"github.com/annel0/voxedit/internal/vec"
)

var (
	red  = Color{255, 0, 0, 255}
	blue = Color{0, 0, 255, 255}
)

func TestMeshSetGetVoxel(t *testing.T) {
	m := NewMesh()
	defer m.Release()

	p := vec.Vec3{X: 5, Y: -3, Z: 100}
	if got := m.GetVoxel(p); !got.IsEmpty() {
		t.Errorf("Ожидался пустой воксель, получен %v", got)
	}

	m.SetVoxel(p, red)
	if got := m.GetVoxel(p); got != red {
		t.Errorf("Ожидался %v, получен %v", red, got)
	}
	if m.VoxelCount() != 1 {
		t.Errorf("Ожидался 1 воксель, получено %d", m.VoxelCount())
	}
}

func TestMeshKeyStableOnNoopWrite(t *testing.T) {
	m := NewMesh()
	defer m.Release()

	p := vec.Vec3{X: 1, Y: 2, Z: 3}
	m.SetVoxel(p, red)
	key := m.Key()

	// Запись того же цвета не должна менять ключ.
	m.SetVoxel(p, red)
	if m.Key() != key {
		t.Error("Ключ изменился после записи того же цвета")
	}

	// Стирание пустого вокселя — тоже no-op.
	m.SetVoxel(vec.Vec3{X: 50, Y: 50, Z: 50}, Empty)
	if m.Key() != key {
		t.Error("Ключ изменился после стирания пустого вокселя")
	}
}

func TestMeshKeyTracksContent(t *testing.T) {
	m := NewMesh()
	defer m.Release()

	emptyKey := m.Key()
	p := vec.Vec3{X: 0, Y: 0, Z: 0}

	m.SetVoxel(p, red)
	filledKey := m.Key()
	if filledKey == emptyKey {
		t.Error("Ключ не изменился после записи вокселя")
	}

	// Равное содержимое даёт равный ключ: после стирания меш снова пуст.
	m.SetVoxel(p, Empty)
	if m.Key() != emptyKey {
		t.Error("Ключ пустого меша не восстановился после стирания")
	}

	// Независимый меш с тем же содержимым имеет тот же ключ.
	m2 := NewMesh()
	defer m2.Release()
	m2.SetVoxel(p, red)
	if m2.Key() != filledKey {
		t.Error("Равное содержимое дало разные ключи")
	}
}

func TestMeshBlockPruning(t *testing.T) {
	m := NewMesh()
	defer m.Release()

	p := vec.Vec3{X: 20, Y: 20, Z: 20}
	m.SetVoxel(p, red)
	if m.BlockCount() != 1 {
		t.Fatalf("Ожидался 1 блок, получено %d", m.BlockCount())
	}

	m.SetVoxel(p, Empty)
	if m.BlockCount() != 0 {
		t.Errorf("Пустой блок не удалён, блоков: %d", m.BlockCount())
	}
	if !m.IsEmpty() {
		t.Error("Меш должен быть пустым")
	}
}

func TestMeshCopyOnWrite(t *testing.T) {
	m := NewMesh()
	defer m.Release()

	p := vec.Vec3{X: 1, Y: 1, Z: 1}
	m.SetVoxel(p, red)

	cp := m.Copy()
	defer cp.Release()
	if cp.Key() != m.Key() {
		t.Fatal("Копия имеет другой ключ")
	}

	// Правка оригинала не должна затрагивать копию.
	m.SetVoxel(p, blue)
	if got := cp.GetVoxel(p); got != red {
		t.Errorf("Правка оригинала просочилась в копию: %v", got)
	}
	if cp.Key() == m.Key() {
		t.Error("Ключи не разошлись после правки оригинала")
	}
}

func TestMeshDeepCopyIndependent(t *testing.T) {
	m := NewMesh()
	defer m.Release()
	p := vec.Vec3{X: 0, Y: 0, Z: 0}
	m.SetVoxel(p, red)

	dc := m.DeepCopy()
	defer dc.Release()

	m.SetVoxel(p, blue)
	if got := dc.GetVoxel(p); got != red {
		t.Errorf("Глубокая копия изменилась вместе с оригиналом: %v", got)
	}
}

func TestMeshIterateBlocksOrder(t *testing.T) {
	m := NewMesh()
	defer m.Release()

	// Три блока, заданы в произвольном порядке.
	m.SetVoxel(vec.Vec3{X: 17, Y: 0, Z: 0}, red)
	m.SetVoxel(vec.Vec3{X: 0, Y: 0, Z: 0}, red)
	m.SetVoxel(vec.Vec3{X: 0, Y: 17, Z: 0}, red)

	want := []vec.Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: 0, Y: 16, Z: 0},
		{X: 16, Y: 0, Z: 0},
	}
	var got []vec.Vec3
	m.IterateBlocks(func(coord vec.Vec3, b *Block) bool {
		got = append(got, coord)
		return true
	})
	if len(got) != len(want) {
		t.Fatalf("Ожидалось %d блоков, получено %d", len(want), len(got))
	}
	for i := range want {
		if !got[i].Equals(want[i]) {
			t.Errorf("Блок %d: ожидался %v, получен %v", i, want[i], got[i])
		}
	}
}

func TestMeshBoundingBox(t *testing.T) {
	m := NewMesh()
	defer m.Release()

	if box := m.BoundingBox(); !box.Empty {
		t.Error("Ожидался пустой AABB для пустого меша")
	}

	m.SetVoxel(vec.Vec3{X: -5, Y: 2, Z: 0}, red)
	m.SetVoxel(vec.Vec3{X: 10, Y: -1, Z: 33}, blue)

	box := m.BoundingBox()
	if box.Empty {
		t.Fatal("AABB не должен быть пустым")
	}
	if !box.Min.Equals(vec.Vec3{X: -5, Y: -1, Z: 0}) || !box.Max.Equals(vec.Vec3{X: 11, Y: 3, Z: 34}) {
		t.Errorf("Неверный AABB: min=%v max=%v", box.Min, box.Max)
	}
}

func TestCombineKeysOrderSignificant(t *testing.T) {
	if CombineKeys(1, 2) == CombineKeys(2, 1) {
		t.Error("CombineKeys не различает порядок аргументов")
	}
	if CombineKeys(1, 2) != CombineKeys(1, 2) {
		t.Error("CombineKeys недетерминирован")
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff0080")
	if err != nil {
		t.Fatalf("Ошибка разбора цвета: %v", err)
	}
	if c != (Color{255, 0, 128, 255}) {
		t.Errorf("Неверный цвет: %v", c)
	}

	c, err = ParseColor("#01020304")
	if err != nil {
		t.Fatalf("Ошибка разбора цвета с альфой: %v", err)
	}
	if c != (Color{1, 2, 3, 4}) {
		t.Errorf("Неверный цвет с альфой: %v", c)
	}

	for _, bad := range []string{"", "ff0000", "#ff00", "#zz0000"} {
		if _, err := ParseColor(bad); err == nil {
			t.Errorf("Ожидалась ошибка для %q", bad)
		}
	}

	if got := (Color{255, 0, 128, 255}).Hex(); got != "#ff0080ff" {
		t.Errorf("Неверное hex-представление: %s", got)
	}
}
