package voxel

import (
	"sort"

	"github.com/annel0/voxedit/internal/vec"
)

// Mesh представляет разреженное хранилище вокселей: отображение
// координаты блока (выровненной по сетке 16) на ссылку на блок.
//
// Меш поддерживает copy-on-write: Copy() разделяет блоки между копиями,
// а первая запись в разделяемый блок сначала клонирует его. Блок, все
// воксели которого пусты, удаляется из хранилища.
//
// Вся работа с мешем происходит синхронно на потоке редактирования,
// внутренних блокировок нет (см. модель конкурентности документа).
type Mesh struct {
	blocks map[vec.Vec3]*Block

	// Инкрементальный ключ: XOR вкладов всех блоков. pending хранит
	// вклад блока на момент первой правки с последнего Key().
	key     uint64
	pending map[vec.Vec3]uint64

	// Кэш последнего блока для локальности обращений.
	lastCoord vec.Vec3
	lastBlock *Block

	bbox   vec.Box
	bboxOK bool
}

// NewMesh создаёт пустой меш
func NewMesh() *Mesh {
	return &Mesh{
		blocks:  make(map[vec.Vec3]*Block),
		key:     emptyMeshKey,
		pending: make(map[vec.Vec3]uint64),
	}
}

// blockAt возвращает блок по выровненной координате, используя кэш
// последнего обращения.
func (m *Mesh) blockAt(bc vec.Vec3) *Block {
	if m.lastBlock != nil && m.lastCoord.Equals(bc) {
		return m.lastBlock
	}
	b := m.blocks[bc]
	if b != nil {
		m.lastCoord = bc
		m.lastBlock = b
	}
	return b
}

// GetVoxel возвращает воксель по глобальным координатам,
// либо пустой воксель, если он не задан.
func (m *Mesh) GetVoxel(p vec.Vec3) Color {
	b := m.blockAt(p.ToBlockCoords())
	if b == nil {
		return Empty
	}
	return b.Get(p.LocalInBlock())
}

// touch запоминает вклад блока в ключ до первой правки. Вызывается
// перед любой мутацией блока с координатой bc.
func (m *Mesh) touch(bc vec.Vec3) {
	if _, ok := m.pending[bc]; ok {
		return
	}
	m.pending[bc] = m.contribOf(bc)
}

// contribOf возвращает текущий вклад блока в ключ меша (0 — блока нет)
func (m *Mesh) contribOf(bc vec.Vec3) uint64 {
	b, ok := m.blocks[bc]
	if !ok {
		return 0
	}
	return blockContrib(bc, b.ContentHash())
}

// SetVoxel записывает воксель по глобальным координатам.
//
// Запись того же цвета — no-op: не выделяет память, не меняет ключ.
// Первая запись в разделяемый блок клонирует его (copy-on-write),
// запись последнего пустого вокселя удаляет блок из хранилища.
func (m *Mesh) SetVoxel(p vec.Vec3, c Color) {
	bc := p.ToBlockCoords()
	local := p.LocalInBlock()

	b := m.blocks[bc]
	if b == nil {
		if c.IsEmpty() {
			return
		}
		m.touch(bc)
		b = NewBlock()
		b.Set(local, c)
		m.blocks[bc] = b
		m.lastCoord, m.lastBlock = bc, b
		m.bboxOK = false
		return
	}

	// Сравниваем до copy-on-write: no-op не должен клонировать блок.
	if b.Get(local) == c {
		return
	}

	m.touch(bc)
	if b.Shared() {
		b.Release()
		b = b.Clone()
		m.blocks[bc] = b
	}
	b.Set(local, c)

	if b.IsEmpty() {
		delete(m.blocks, bc)
		b.Release()
		m.lastBlock = nil
	} else {
		m.lastCoord, m.lastBlock = bc, b
	}
	m.bboxOK = false
}

// Key возвращает ключ меша: быстрый отпечаток структурного содержимого.
// Равное содержимое всегда даёт равный ключ; любое изменение с
// подавляющей вероятностью меняет его. Пересчёт после правки стоит
// хеширования затронутых блоков плюс O(1) на комбинирование.
func (m *Mesh) Key() uint64 {
	for bc, old := range m.pending {
		m.key ^= old ^ m.contribOf(bc)
	}
	if len(m.pending) > 0 {
		m.pending = make(map[vec.Vec3]uint64)
	}
	return m.key
}

// IsEmpty возвращает true, если в меше нет ни одного вокселя
func (m *Mesh) IsEmpty() bool {
	return len(m.blocks) == 0
}

// BlockCount возвращает количество непустых блоков
func (m *Mesh) BlockCount() int {
	return len(m.blocks)
}

// VoxelCount возвращает количество непустых вокселей
func (m *Mesh) VoxelCount() int {
	n := 0
	for _, b := range m.blocks {
		n += b.Filled()
	}
	return n
}

// Copy создаёт копию меша, разделяющую блоки с оригиналом.
// Копия дешёвая: дублируется только карта блоков, счётчики ссылок
// блоков увеличиваются. Последующие правки любой из копий изолированы
// механизмом copy-on-write.
func (m *Mesh) Copy() *Mesh {
	key := m.Key() // сбрасываем pending, чтобы не делить его с копией
	nm := &Mesh{
		blocks:  make(map[vec.Vec3]*Block, len(m.blocks)),
		key:     key,
		pending: make(map[vec.Vec3]uint64),
		bbox:    m.bbox,
		bboxOK:  m.bboxOK,
	}
	for bc, b := range m.blocks {
		b.Retain()
		nm.blocks[bc] = b
	}
	return nm
}

// DeepCopy создаёт полностью независимую копию меша: каждый блок
// клонируется, ссылки с оригиналом не разделяются.
func (m *Mesh) DeepCopy() *Mesh {
	key := m.Key()
	nm := &Mesh{
		blocks:  make(map[vec.Vec3]*Block, len(m.blocks)),
		key:     key,
		pending: make(map[vec.Vec3]uint64),
		bbox:    m.bbox,
		bboxOK:  m.bboxOK,
	}
	for bc, b := range m.blocks {
		nm.blocks[bc] = b.Clone()
	}
	return nm
}

// Release отпускает все блоки меша. Вызывается при уничтожении
// владельца (слоя или снапшота истории).
func (m *Mesh) Release() {
	for bc, b := range m.blocks {
		b.Release()
		delete(m.blocks, bc)
	}
	m.key = emptyMeshKey
	m.pending = make(map[vec.Vec3]uint64)
	m.lastBlock = nil
	m.bboxOK = false
}

// blockCoords возвращает координаты блоков в детерминированном порядке
// (X, затем Y, затем Z) — для воспроизводимого обхода и сериализации.
func (m *Mesh) blockCoords() []vec.Vec3 {
	coords := make([]vec.Vec3, 0, len(m.blocks))
	for bc := range m.blocks {
		coords = append(coords, bc)
	}
	sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })
	return coords
}

// IterateBlocks обходит непустые блоки в детерминированном порядке
// координат. Обход прекращается, если fn возвращает false.
// Блоки передаются только для чтения.
func (m *Mesh) IterateBlocks(fn func(coord vec.Vec3, b *Block) bool) {
	for _, bc := range m.blockCoords() {
		if !fn(bc, m.blocks[bc]) {
			return
		}
	}
}

// InsertBlock вставляет блок из сырых данных (массовая загрузка при
// десериализации). Полностью пустые данные игнорируются.
func (m *Mesh) InsertBlock(coord vec.Vec3, data []byte) error {
	b, err := blockFromData(data)
	if err != nil {
		return err
	}
	m.touch(coord)
	if old, ok := m.blocks[coord]; ok {
		old.Release()
		delete(m.blocks, coord)
	}
	if !b.IsEmpty() {
		m.blocks[coord] = b
	}
	m.lastBlock = nil
	m.bboxOK = false
	return nil
}

// BoundingBox возвращает AABB непустых вокселей меша.
// Результат кешируется до следующей правки.
func (m *Mesh) BoundingBox() vec.Box {
	if m.bboxOK {
		return m.bbox
	}
	box := vec.EmptyBox()
	for bc, b := range m.blocks {
		for z := 0; z < BlockSize; z++ {
			for y := 0; y < BlockSize; y++ {
				for x := 0; x < BlockSize; x++ {
					local := vec.Vec3{X: x, Y: y, Z: z}
					if !b.Get(local).IsEmpty() {
						box = box.Extend(bc.Add(local))
					}
				}
			}
		}
	}
	m.bbox = box
	m.bboxOK = true
	return box
}
