package proc

import (
	"strings"
	"testing"

	"github.com/annel0/voxedit/internal/vec"
	"github.com/annel0/voxedit/internal/voxel"
)

func TestParseErrorReportsLine(t *testing.T) {
	p := New()
	src := "seed 1\nsphere 0 0 0 бум #ff0000"
	err := p.Parse(src)
	if err == nil {
		t.Fatal("Ожидалась ошибка разбора")
	}
	if p.State() != ParseError {
		t.Errorf("Ожидалось состояние parse_error, получено %s", p.State())
	}
	if !strings.Contains(err.Error(), "строка 2") {
		t.Errorf("Диагностика не содержит номера строки: %v", err)
	}
	if p.Err() == nil {
		t.Error("Err() должен возвращать ошибку разбора")
	}
}

func TestParseSkipsCommentsAndBlank(t *testing.T) {
	p := New()
	src := "; комментарий\n\nbox 0 0 0 2 2 1 #00ff00\n"
	if err := p.Parse(src); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.State() != Ready {
		t.Errorf("Ожидалось состояние ready, получено %s", p.State())
	}
}

func TestIterResumable(t *testing.T) {
	p := New()
	if err := p.Parse("sphere 0 0 0 3 #ff0000"); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	// Сфера радиуса 3 занимает 7 срезов; бюджет 1 срез на кадр.
	steps := 0
	for !p.Iter(1) {
		steps++
		if p.State() != Running {
			t.Fatalf("Ожидалось состояние running, получено %s", p.State())
		}
		if steps > 10 {
			t.Fatal("Программа не завершилась за разумное число кадров")
		}
	}
	if p.State() != Done {
		t.Fatalf("Ожидалось состояние done, получено %s", p.State())
	}
	if steps != 6 {
		t.Errorf("Ожидалось 6 промежуточных кадров, получено %d", steps)
	}

	out := p.Result()
	if out.GetVoxel(vec.Vec3{X: 0, Y: 0, Z: 0}).IsEmpty() {
		t.Error("Центр сферы пуст")
	}
	if !out.GetVoxel(vec.Vec3{X: 3, Y: 3, Z: 3}).IsEmpty() {
		t.Error("Угол за пределами сферы заполнен")
	}
}

func TestIterBudgetlessRunsToCompletion(t *testing.T) {
	p := New()
	if err := p.Parse("box 0 0 0 4 4 4 #0000ff"); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !p.Iter(0) {
		t.Fatal("Iter без бюджета должен выполнить программу целиком")
	}
	if p.Result().VoxelCount() != 64 {
		t.Errorf("Ожидалось 64 вокселя, получено %d", p.Result().VoxelCount())
	}
}

func TestNoiseDeterministic(t *testing.T) {
	src := "seed 42\nnoise 0 0 0 16 16 8 0.1 0.5 #808080"

	run := func() uint64 {
		p := New()
		if err := p.Parse(src); err != nil {
			t.Fatalf("Parse: %v", err)
		}
		for !p.Iter(2) {
		}
		return p.Result().Key()
	}

	if run() != run() {
		t.Error("Одинаковый seed дал разные результаты")
	}

	// Другой seed даёт другой результат.
	p := New()
	if err := p.Parse(strings.Replace(src, "seed 42", "seed 7", 1)); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for !p.Iter(0) {
	}
	if p.Result().Key() == run() {
		t.Error("Разные seed дали одинаковые результаты")
	}
}

func TestRewindResetsExecution(t *testing.T) {
	p := New()
	if err := p.Parse("box 0 0 0 2 2 2 #ffffff"); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for !p.Iter(0) {
	}
	first := p.Result().Key()

	p.Rewind()
	if p.State() != Ready {
		t.Fatalf("Ожидалось состояние ready после Rewind, получено %s", p.State())
	}
	for !p.Iter(1) {
	}
	if p.Result().Key() != first {
		t.Error("Повторное выполнение дало другой результат")
	}
}

func TestMergeIntoRequiresDone(t *testing.T) {
	p := New()
	if err := p.Parse("box 0 0 0 2 2 2 #ffffff"); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	dst := voxel.NewMesh()
	defer dst.Release()

	if err := p.MergeInto(dst, voxel.OpAdd); err == nil {
		t.Error("MergeInto до завершения должен возвращать ошибку")
	}

	for !p.Iter(0) {
	}
	if err := p.MergeInto(dst, voxel.OpAdd); err != nil {
		t.Fatalf("MergeInto: %v", err)
	}
	if dst.VoxelCount() != 8 {
		t.Errorf("Ожидалось 8 вокселей, получено %d", dst.VoxelCount())
	}
}

func TestShouldRerun(t *testing.T) {
	p := New()
	if !p.ShouldRerun(100) {
		t.Error("Первый ключ должен требовать выполнения")
	}
	if p.ShouldRerun(100) {
		t.Error("Неизменный ключ не должен требовать выполнения")
	}
	if !p.ShouldRerun(200) {
		t.Error("Изменённый ключ должен требовать выполнения")
	}
}
