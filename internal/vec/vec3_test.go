package vec

import (
	"testing"
)

func TestToBlockCoords(t *testing.T) {
	cases := []struct {
		in    Vec3
		block Vec3
		local Vec3
	}{
		{Vec3{X: 0, Y: 0, Z: 0}, Vec3{X: 0, Y: 0, Z: 0}, Vec3{X: 0, Y: 0, Z: 0}},
		{Vec3{X: 15, Y: 15, Z: 15}, Vec3{X: 0, Y: 0, Z: 0}, Vec3{X: 15, Y: 15, Z: 15}},
		{Vec3{X: 16, Y: 17, Z: 31}, Vec3{X: 16, Y: 16, Z: 16}, Vec3{X: 0, Y: 1, Z: 15}},
		{Vec3{X: -1, Y: -16, Z: -17}, Vec3{X: -16, Y: -16, Z: -32}, Vec3{X: 15, Y: 0, Z: 15}},
	}
	for _, c := range cases {
		if got := c.in.ToBlockCoords(); !got.Equals(c.block) {
			t.Errorf("ToBlockCoords(%v): ожидалось %v, получено %v", c.in, c.block, got)
		}
		if got := c.in.LocalInBlock(); !got.Equals(c.local) {
			t.Errorf("LocalInBlock(%v): ожидалось %v, получено %v", c.in, c.local, got)
		}
	}
}

func TestBlockAlignmentRoundTrip(t *testing.T) {
	// Блочная координата плюс локальная должны восстанавливать исходную.
	for _, p := range []Vec3{
		{X: 5, Y: -3, Z: 100},
		{X: -100, Y: 0, Z: -1},
		{X: 16, Y: 16, Z: 16},
	} {
		got := p.ToBlockCoords().Add(p.LocalInBlock())
		if !got.Equals(p) {
			t.Errorf("Разложение %v не восстановилось: получено %v", p, got)
		}
	}
}

func TestVec3Less(t *testing.T) {
	// Порядок: сначала X, затем Y, затем Z.
	ordered := []Vec3{
		{X: -1, Y: 100, Z: 100},
		{X: 0, Y: -5, Z: 0},
		{X: 0, Y: 0, Z: -1},
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: -100, Z: -100},
	}
	for i := 0; i < len(ordered)-1; i++ {
		if !ordered[i].Less(ordered[i+1]) {
			t.Errorf("Ожидалось %v < %v", ordered[i], ordered[i+1])
		}
		if ordered[i+1].Less(ordered[i]) {
			t.Errorf("Не ожидалось %v < %v", ordered[i+1], ordered[i])
		}
	}
}

func TestBoxExtendContains(t *testing.T) {
	box := EmptyBox()
	if !box.Empty {
		t.Fatal("Ожидался пустой бокс")
	}
	if box.Contains(Vec3{}) {
		t.Error("Пустой бокс не должен содержать точек")
	}

	box = box.Extend(Vec3{X: 1, Y: 2, Z: 3})
	box = box.Extend(Vec3{X: -1, Y: 0, Z: 5})

	if box.Empty {
		t.Fatal("Бокс не должен быть пустым после Extend")
	}
	// Правая граница полуинтервала [Min, Max) лежит на единицу дальше
	// последней добавленной точки.
	if !box.Min.Equals(Vec3{X: -1, Y: 0, Z: 3}) || !box.Max.Equals(Vec3{X: 2, Y: 3, Z: 6}) {
		t.Errorf("Неверные границы бокса: min=%v max=%v", box.Min, box.Max)
	}
	if !box.Contains(Vec3{X: 0, Y: 1, Z: 4}) {
		t.Error("Точка внутри бокса не обнаружена")
	}
	if !box.Contains(Vec3{X: 1, Y: 2, Z: 5}) {
		t.Error("Добавленная в бокс точка не обнаружена")
	}
	if box.Contains(Vec3{X: 2, Y: 1, Z: 4}) {
		t.Error("Точка на правой границе ошибочно обнаружена")
	}
}

func TestBoxUnion(t *testing.T) {
	a := EmptyBox().Extend(Vec3{X: 0, Y: 0, Z: 0})
	b := EmptyBox().Extend(Vec3{X: 10, Y: 10, Z: 10})

	u := a.Union(b)
	if !u.Min.Equals(Vec3{}) || !u.Max.Equals(Vec3{X: 11, Y: 11, Z: 11}) {
		t.Errorf("Неверное объединение: min=%v max=%v", u.Min, u.Max)
	}

	// Объединение с пустым боксом возвращает непустой аргумент.
	if u2 := a.Union(EmptyBox()); u2.Empty || !u2.Min.Equals(a.Min) {
		t.Errorf("Объединение с пустым боксом искажено: %+v", u2)
	}
}
