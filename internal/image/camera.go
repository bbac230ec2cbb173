package image

import (
	"encoding/binary"
	"math"

	"github.com/annel0/voxedit/internal/voxel"
)

// Camera представляет именованную камеру изображения.
// Позиция камеры строится из дистанции, кватерниона поворота и смещения.
type Camera struct {
	ID    int        `json:"id"`
	Name  string     `json:"name"`
	Ortho bool       `json:"ortho"` // ортографическая проекция
	Dist  float64    `json:"dist"`
	Rot   [4]float64 `json:"rot"` // кватернион
	Ofs   [3]float64 `json:"ofs"`
	Fovy  float64    `json:"fovy"`
}

// NewCamera создаёт камеру с настройками по умолчанию
func NewCamera(id int, name string) *Camera {
	return &Camera{
		ID:   id,
		Name: name,
		Dist: 128,
		Rot:  [4]float64{1, 0, 0, 0},
		Fovy: 20,
	}
}

// Set копирует позицию из другой камеры, сохраняя идентичность
func (c *Camera) Set(other *Camera) {
	c.Ortho = other.Ortho
	c.Dist = other.Dist
	c.Rot = other.Rot
	c.Ofs = other.Ofs
	c.Fovy = other.Fovy
}

// Clone возвращает независимую копию камеры
func (c *Camera) Clone() *Camera {
	nc := *c
	return &nc
}

// Key возвращает отпечаток камеры: меняется при любом изменении позиции
func (c *Camera) Key() uint64 {
	buf := make([]byte, 0, 96)
	var tmp [8]byte
	put := func(f float64) {
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(f))
		buf = append(buf, tmp[:]...)
	}
	put(c.Dist)
	for _, f := range c.Rot {
		put(f)
	}
	for _, f := range c.Ofs {
		put(f)
	}
	put(c.Fovy)
	if c.Ortho {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return voxel.CombineKeys(uint64(c.ID), voxel.HashString(c.Name), voxel.HashBytes(buf))
}
