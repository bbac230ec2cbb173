package voxel

import (
	"fmt"

	"github.com/annel0/voxedit/internal/vec"
)

// MergeOp определяет операцию повоксельного слияния двух мешей
type MergeOp int

const (
	OpAdd       MergeOp = iota // объём источника поверх приёмника
	OpSubtract                 // стирание объёма источника
	OpPaint                    // перекраска существующих вокселей
	OpIntersect                // пересечение объёмов
)

// String возвращает строковое представление операции
func (op MergeOp) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSubtract:
		return "subtract"
	case OpPaint:
		return "paint"
	case OpIntersect:
		return "intersect"
	default:
		return "unknown"
	}
}

// ParseMergeOp разбирает имя операции слияния
func ParseMergeOp(s string) (MergeOp, error) {
	switch s {
	case "add":
		return OpAdd, nil
	case "subtract":
		return OpSubtract, nil
	case "paint":
		return OpPaint, nil
	case "intersect":
		return OpIntersect, nil
	default:
		return 0, fmt.Errorf("неизвестная операция слияния: %q", s)
	}
}

// applyOp комбинирует воксель приёмника a с вокселем источника b
func applyOp(op MergeOp, a, b Color) Color {
	switch op {
	case OpAdd:
		if !b.IsEmpty() {
			return b
		}
		return a
	case OpSubtract:
		if !b.IsEmpty() {
			return Empty
		}
		return a
	case OpPaint:
		if !b.IsEmpty() && !a.IsEmpty() {
			return b
		}
		return a
	case OpIntersect:
		if b.IsEmpty() {
			return Empty
		}
		return a
	}
	return a
}

// Merge повоксельно сливает меш other в m операцией op.
//
// Для add обходится объединение блоков операндов, для subtract и paint —
// только пересечение (вне его приёмник не меняется), для intersect блоки
// приёмника без пары в источнике стираются целиком. Опустевшие блоки
// удаляются из хранилища; нетронутые блоки не переписываются.
//
// Слияние меша с самим собой допустимо (subtract даёт пустой меш).
func (m *Mesh) Merge(other *Mesh, op MergeOp) {
	switch op {
	case OpAdd:
		for _, bc := range other.blockCoords() {
			m.mergeBlock(bc, other.blocks[bc], op)
		}
	case OpSubtract, OpPaint:
		for _, bc := range other.blockCoords() {
			if _, ok := m.blocks[bc]; ok {
				m.mergeBlock(bc, other.blocks[bc], op)
			}
		}
	case OpIntersect:
		for _, bc := range m.blockCoords() {
			ob, ok := other.blocks[bc]
			if !ok {
				m.touch(bc)
				b := m.blocks[bc]
				delete(m.blocks, bc)
				b.Release()
				m.lastBlock = nil
				m.bboxOK = false
				continue
			}
			m.mergeBlock(bc, ob, op)
		}
	}
}

// mergeBlock комбинирует один блок источника с соответствующим блоком
// приёмника. Результат собирается в свежий блок и подменяет старый
// целиком, поэтому частично применённых состояний не бывает.
func (m *Mesh) mergeBlock(bc vec.Vec3, ob *Block, op MergeOp) {
	mine := m.blocks[bc]

	res := NewBlock()
	changed := false
	for z := 0; z < BlockSize; z++ {
		for y := 0; y < BlockSize; y++ {
			for x := 0; x < BlockSize; x++ {
				local := vec.Vec3{X: x, Y: y, Z: z}
				a := Empty
				if mine != nil {
					a = mine.Get(local)
				}
				r := applyOp(op, a, ob.Get(local))
				if r != a {
					changed = true
				}
				if !r.IsEmpty() {
					res.Set(local, r)
				}
			}
		}
	}
	if !changed {
		return
	}

	m.touch(bc)
	if mine != nil {
		delete(m.blocks, bc)
		mine.Release()
	}
	if !res.IsEmpty() {
		m.blocks[bc] = res
	}
	m.lastBlock = nil
	m.bboxOK = false
}
