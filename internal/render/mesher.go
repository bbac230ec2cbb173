package render

import (
	"encoding/binary"
	"fmt"

	"github.com/annel0/voxedit/internal/vec"
	"github.com/annel0/voxedit/internal/voxel"
)

// Face — видимая грань вокселя: позиция вокселя, индекс направления
// нормали (0..5: ±X, ±Y, ±Z) и цвет.
type Face struct {
	Pos    vec.Vec3
	Normal uint8
	Color  voxel.Color
}

// directions — смещения шести соседей вокселя
var directions = [6]vec.Vec3{
	{X: 1}, {X: -1},
	{Y: 1}, {Y: -1},
	{Z: 1}, {Z: -1},
}

// ExtractFaces строит список видимых граней меша: грань вокселя видна,
// если сосед в её направлении пуст. Меш только читается.
func ExtractFaces(m *voxel.Mesh) []Face {
	var faces []Face
	m.IterateBlocks(func(bc vec.Vec3, b *voxel.Block) bool {
		for z := 0; z < voxel.BlockSize; z++ {
			for y := 0; y < voxel.BlockSize; y++ {
				for x := 0; x < voxel.BlockSize; x++ {
					local := vec.Vec3{X: x, Y: y, Z: z}
					c := b.Get(local)
					if c.IsEmpty() {
						continue
					}
					p := bc.Add(local)
					for n, d := range directions {
						if m.GetVoxel(p.Add(d)).IsEmpty() {
							faces = append(faces, Face{Pos: p, Normal: uint8(n), Color: c})
						}
					}
				}
			}
		}
		return true
	})
	return faces
}

// faceRecordSize — размер одной грани в сериализованном буфере
const faceRecordSize = 3*4 + 1 + 4

// EncodeFaces сериализует грани в компактный буфер для запекания
func EncodeFaces(faces []Face) []byte {
	buf := make([]byte, 4, 4+len(faces)*faceRecordSize)
	binary.LittleEndian.PutUint32(buf, uint32(len(faces)))
	var rec [faceRecordSize]byte
	for _, f := range faces {
		binary.LittleEndian.PutUint32(rec[0:], uint32(int32(f.Pos.X)))
		binary.LittleEndian.PutUint32(rec[4:], uint32(int32(f.Pos.Y)))
		binary.LittleEndian.PutUint32(rec[8:], uint32(int32(f.Pos.Z)))
		rec[12] = f.Normal
		copy(rec[13:], f.Color[:])
		buf = append(buf, rec[:]...)
	}
	return buf
}

// DecodeFaces восстанавливает грани из сериализованного буфера
func DecodeFaces(data []byte) ([]Face, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("буфер граней повреждён: %d байт", len(data))
	}
	n := int(binary.LittleEndian.Uint32(data))
	if len(data) != 4+n*faceRecordSize {
		return nil, fmt.Errorf("буфер граней повреждён: ожидалось %d граней", n)
	}
	faces := make([]Face, n)
	for i := 0; i < n; i++ {
		rec := data[4+i*faceRecordSize:]
		faces[i] = Face{
			Pos: vec.Vec3{
				X: int(int32(binary.LittleEndian.Uint32(rec[0:]))),
				Y: int(int32(binary.LittleEndian.Uint32(rec[4:]))),
				Z: int(int32(binary.LittleEndian.Uint32(rec[8:]))),
			},
			Normal: rec[12],
		}
		copy(faces[i].Color[:], rec[13:17])
	}
	return faces, nil
}
