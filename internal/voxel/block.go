package voxel

import (
	"fmt"

	"github.com/annel0/voxedit/internal/vec"
	"github.com/cespare/xxhash/v2"
)

// BlockSize — размер стороны блока в вокселях. Может быть только 16.
const BlockSize = 16

// BlockBytes — размер сырых данных блока: 16³ вокселей по 4 байта RGBA.
const BlockBytes = BlockSize * BlockSize * BlockSize * 4

// Color представляет воксель: 4 канала RGBA. Нулевая альфа означает
// отсутствие вокселя.
type Color [4]uint8

// Empty — пустой воксель
var Empty = Color{}

// IsEmpty возвращает true, если воксель пустой
func (c Color) IsEmpty() bool {
	return c[3] == 0
}

// Block представляет блок 16³ вокселей — атомарную единицу хранения
// и разделения между мешами.
//
// Блок, на который ссылается более одного владельца (refs > 1),
// неизменяем: любая запись сначала клонирует его (copy-on-write).
// Весь учёт ссылок происходит на главном потоке редактирования,
// поэтому счётчик не атомарный.
type Block struct {
	data   [BlockBytes]byte
	refs   int32
	hash   uint64
	hashOK bool
	filled int // количество непустых вокселей
}

// NewBlock создаёт новый пустой блок с одной ссылкой
func NewBlock() *Block {
	return &Block{refs: 1}
}

// offset возвращает смещение вокселя в данных блока
func offset(local vec.Vec3) int {
	return ((local.Z*BlockSize+local.Y)*BlockSize + local.X) * 4
}

// Get возвращает воксель по локальным координатам внутри блока
func (b *Block) Get(local vec.Vec3) Color {
	o := offset(local)
	return Color{b.data[o], b.data[o+1], b.data[o+2], b.data[o+3]}
}

// Set записывает воксель по локальным координатам.
// Вызывающий обязан убедиться, что блок не разделяется (refs == 1).
func (b *Block) Set(local vec.Vec3, c Color) {
	o := offset(local)
	wasEmpty := b.data[o+3] == 0
	b.data[o] = c[0]
	b.data[o+1] = c[1]
	b.data[o+2] = c[2]
	b.data[o+3] = c[3]
	if wasEmpty && !c.IsEmpty() {
		b.filled++
	} else if !wasEmpty && c.IsEmpty() {
		b.filled--
	}
	b.hashOK = false
}

// IsEmpty возвращает true, если все воксели блока пустые
func (b *Block) IsEmpty() bool {
	return b.filled == 0
}

// Filled возвращает количество непустых вокселей блока
func (b *Block) Filled() int {
	return b.filled
}

// ContentHash возвращает хеш содержимого блока. Значение кешируется
// и пересчитывается только после изменения данных.
func (b *Block) ContentHash() uint64 {
	if !b.hashOK {
		b.hash = xxhash.Sum64(b.data[:])
		b.hashOK = true
	}
	return b.hash
}

// Clone создаёт независимую копию блока с одной ссылкой
func (b *Block) Clone() *Block {
	nb := &Block{
		data:   b.data,
		refs:   1,
		hash:   b.hash,
		hashOK: b.hashOK,
		filled: b.filled,
	}
	return nb
}

// Retain увеличивает счётчик ссылок блока
func (b *Block) Retain() {
	b.refs++
}

// Release уменьшает счётчик ссылок. Память освобождает сборщик мусора;
// счётчик нужен только для решения clone-before-write.
func (b *Block) Release() {
	b.refs--
}

// Shared возвращает true, если на блок ссылается более одного владельца
func (b *Block) Shared() bool {
	return b.refs > 1
}

// Data возвращает копию сырых данных блока (для сериализации)
func (b *Block) Data() []byte {
	out := make([]byte, BlockBytes)
	copy(out, b.data[:])
	return out
}

// blockFromData восстанавливает блок из сырых данных (для загрузки)
func blockFromData(data []byte) (*Block, error) {
	if len(data) != BlockBytes {
		return nil, fmt.Errorf("некорректный размер данных блока: %d, ожидалось %d", len(data), BlockBytes)
	}
	b := NewBlock()
	copy(b.data[:], data)
	for o := 3; o < BlockBytes; o += 4 {
		if b.data[o] != 0 {
			b.filled++
		}
	}
	return b, nil
}
