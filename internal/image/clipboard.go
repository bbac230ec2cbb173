package image

import (
	"github.com/annel0/voxedit/internal/vec"
	"github.com/annel0/voxedit/internal/voxel"
)

// CopySelection копирует содержимое активного слоя в буфер обмена.
// При непустом выделении копируются только воксели внутри рамки,
// иначе — весь меш (копией по ссылке, без дублирования блоков).
func (img *Image) CopySelection() {
	l := img.ActiveLayer()
	if img.Clipboard != nil {
		img.Clipboard.Release()
	}
	if img.Selection.Empty {
		img.Clipboard = l.Mesh.Copy()
		return
	}
	cb := voxel.NewMesh()
	l.Mesh.IterateBlocks(func(bc vec.Vec3, b *voxel.Block) bool {
		for z := 0; z < voxel.BlockSize; z++ {
			for y := 0; y < voxel.BlockSize; y++ {
				for x := 0; x < voxel.BlockSize; x++ {
					local := vec.Vec3{X: x, Y: y, Z: z}
					p := bc.Add(local)
					if !img.Selection.Contains(p) {
						continue
					}
					if c := b.Get(local); !c.IsEmpty() {
						cb.SetVoxel(p, c)
					}
				}
			}
		}
		return true
	})
	img.Clipboard = cb
}

// CutSelection копирует выделение в буфер обмена и стирает его из
// активного слоя.
func (img *Image) CutSelection() {
	img.CopySelection()
	if img.Clipboard == nil || img.Clipboard.IsEmpty() {
		return
	}
	img.ActiveLayer().Mesh.Merge(img.Clipboard, voxel.OpSubtract)
}

// Paste вливает буфер обмена в активный слой операцией add.
// Пустой буфер — no-op.
func (img *Image) Paste() {
	if img.Clipboard == nil || img.Clipboard.IsEmpty() {
		return
	}
	img.ActiveLayer().Mesh.Merge(img.Clipboard, voxel.OpAdd)
}
