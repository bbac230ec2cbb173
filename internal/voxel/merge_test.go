package voxel

import (
	"testing"

	"github.com/annel0/voxedit/internal/vec"
)

func TestMergeAdd(t *testing.T) {
	a := NewMesh()
	b := NewMesh()
	defer a.Release()
	defer b.Release()

	a.SetVoxel(vec.Vec3{X: 0, Y: 0, Z: 0}, red)
	a.SetVoxel(vec.Vec3{X: 1, Y: 0, Z: 0}, red)
	b.SetVoxel(vec.Vec3{X: 1, Y: 0, Z: 0}, blue) // перекрытие
	b.SetVoxel(vec.Vec3{X: 100, Y: 0, Z: 0}, blue)

	a.Merge(b, OpAdd)

	if a.VoxelCount() != 3 {
		t.Errorf("Ожидалось 3 вокселя, получено %d", a.VoxelCount())
	}
	// При перекрытии побеждает источник.
	if got := a.GetVoxel(vec.Vec3{X: 1, Y: 0, Z: 0}); got != blue {
		t.Errorf("Перекрытие: ожидался %v, получен %v", blue, got)
	}
	if got := a.GetVoxel(vec.Vec3{X: 100, Y: 0, Z: 0}); got != blue {
		t.Errorf("Дальний блок не влит: %v", got)
	}
}

func TestMergeSubtractSelf(t *testing.T) {
	m := NewMesh()
	defer m.Release()
	for i := 0; i < 40; i++ {
		m.SetVoxel(vec.Vec3{X: i, Y: 0, Z: 0}, red)
	}

	// Вычитание меша из самого себя опустошает его.
	m.Merge(m, OpSubtract)
	if !m.IsEmpty() {
		t.Errorf("Меш не пуст после вычитания из самого себя: %d вокселей", m.VoxelCount())
	}
	if m.Key() != NewMesh().Key() {
		t.Error("Ключ опустевшего меша не равен ключу пустого")
	}
}

func TestMergeSubtractOutsideUntouched(t *testing.T) {
	a := NewMesh()
	b := NewMesh()
	defer a.Release()
	defer b.Release()

	a.SetVoxel(vec.Vec3{X: 0, Y: 0, Z: 0}, red)
	a.SetVoxel(vec.Vec3{X: 200, Y: 0, Z: 0}, red)
	b.SetVoxel(vec.Vec3{X: 0, Y: 0, Z: 0}, blue)

	a.Merge(b, OpSubtract)

	if !a.GetVoxel(vec.Vec3{X: 0, Y: 0, Z: 0}).IsEmpty() {
		t.Error("Воксель в объёме источника не стёрт")
	}
	if got := a.GetVoxel(vec.Vec3{X: 200, Y: 0, Z: 0}); got != red {
		t.Errorf("Воксель вне объёма источника изменён: %v", got)
	}
}

func TestMergePaint(t *testing.T) {
	a := NewMesh()
	b := NewMesh()
	defer a.Release()
	defer b.Release()

	a.SetVoxel(vec.Vec3{X: 0, Y: 0, Z: 0}, red)
	b.SetVoxel(vec.Vec3{X: 0, Y: 0, Z: 0}, blue)
	b.SetVoxel(vec.Vec3{X: 1, Y: 0, Z: 0}, blue) // в приёмнике пусто

	a.Merge(b, OpPaint)

	if got := a.GetVoxel(vec.Vec3{X: 0, Y: 0, Z: 0}); got != blue {
		t.Errorf("Существующий воксель не перекрашен: %v", got)
	}
	// Paint не создаёт новых вокселей.
	if !a.GetVoxel(vec.Vec3{X: 1, Y: 0, Z: 0}).IsEmpty() {
		t.Error("Paint создал воксель на пустом месте")
	}
}

func TestMergeIntersect(t *testing.T) {
	a := NewMesh()
	b := NewMesh()
	defer a.Release()
	defer b.Release()

	a.SetVoxel(vec.Vec3{X: 0, Y: 0, Z: 0}, red)
	a.SetVoxel(vec.Vec3{X: 1, Y: 0, Z: 0}, red)
	a.SetVoxel(vec.Vec3{X: 100, Y: 0, Z: 0}, red) // блок без пары в источнике
	b.SetVoxel(vec.Vec3{X: 1, Y: 0, Z: 0}, blue)

	a.Merge(b, OpIntersect)

	if a.VoxelCount() != 1 {
		t.Fatalf("Ожидался 1 воксель в пересечении, получено %d", a.VoxelCount())
	}
	// Пересечение сохраняет цвет приёмника.
	if got := a.GetVoxel(vec.Vec3{X: 1, Y: 0, Z: 0}); got != red {
		t.Errorf("Цвет приёмника не сохранён: %v", got)
	}
	if a.BlockCount() != 1 {
		t.Errorf("Блоки без пары не стёрты, блоков: %d", a.BlockCount())
	}
}

func TestParseMergeOp(t *testing.T) {
	for _, name := range []string{"add", "subtract", "paint", "intersect"} {
		op, err := ParseMergeOp(name)
		if err != nil {
			t.Errorf("ParseMergeOp(%q): %v", name, err)
		}
		if op.String() != name {
			t.Errorf("Round-trip %q -> %q", name, op.String())
		}
	}
	if _, err := ParseMergeOp("union"); err == nil {
		t.Error("Ожидалась ошибка для неизвестной операции")
	}
}
