package image

import (
	"encoding/binary"
	"math"

	"github.com/annel0/voxedit/internal/voxel"
)

// Layer представляет именованный слой изображения с собственным мешем.
//
// Обычный слой — единственный владелец своего меша. Clone-слой хранит
// id базового слоя и последний наблюдавшийся ключ его меша; содержимое
// clone-слоя пересинхронизируется копией при изменении этого ключа
// (см. Image.ResyncClones). Для отличия обычного слоя BaseID == 0.
type Layer struct {
	ID      int
	Name    string
	Visible bool
	Mesh    *voxel.Mesh

	// Mat — трансформация слоя (матрица 4x4, row-major).
	Mat [16]float64

	// Mode — операция, которой слой вливается при сведении видимых слоёв.
	Mode voxel.MergeOp

	// Поля clone-слоя.
	BaseID      int
	BaseMeshKey uint64
}

// identityMat — единичная трансформация
var identityMat = [16]float64{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// NewLayer создаёт пустой видимый слой
func NewLayer(id int, name string) *Layer {
	return &Layer{
		ID:      id,
		Name:    name,
		Visible: true,
		Mesh:    voxel.NewMesh(),
		Mat:     identityMat,
		Mode:    voxel.OpAdd,
	}
}

// IsClone возвращает true для clone-слоя
func (l *Layer) IsClone() bool {
	return l.BaseID != 0
}

// snapshot возвращает копию слоя для снапшота истории: структура
// дублируется, меш разделяет блоки с оригиналом (copy-on-write).
func (l *Layer) snapshot() *Layer {
	nl := *l
	nl.Mesh = l.Mesh.Copy()
	return &nl
}

// Key возвращает отпечаток слоя: меняется при изменении содержимого
// меша, имени, видимости, трансформации или привязки клона.
func (l *Layer) Key() uint64 {
	buf := make([]byte, 0, 136)
	var tmp [8]byte
	for _, f := range l.Mat {
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(f))
		buf = append(buf, tmp[:]...)
	}
	if l.Visible {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return voxel.CombineKeys(
		l.Mesh.Key(),
		uint64(l.ID),
		voxel.HashString(l.Name),
		voxel.HashBytes(buf),
		uint64(l.BaseID),
		uint64(l.Mode),
	)
}
