package history

import (
	"github.com/annel0/voxedit/internal/image"
)

// State описывает состояние истории
type State int

const (
	NoHistory         State = iota // ничего не захвачено
	HasPast                        // есть куда откатываться
	HasPastAndFuture               // есть и undo, и redo
)

// String возвращает строковое представление состояния истории
func (s State) String() string {
	switch s {
	case NoHistory:
		return "no_history"
	case HasPast:
		return "has_past"
	case HasPastAndFuture:
		return "has_past_and_future"
	default:
		return "unknown"
	}
}

// DefaultLimit — количество снапшотов, хранимых по умолчанию
const DefaultLimit = 256

// History хранит линейную цепочку снапшотов изображения для undo/redo.
//
// Вместо связного списка с prev/next-указателями используется срез с
// индексом текущей позиции: снапшоты стабильны и безопасно разделяются.
// Снапшот дублирует только структуру списков слоёв и камер и берёт новые
// ссылки на существующие блоки; байтово идентичные меши остаются общими
// между снапшотами до copy-on-write при следующей правке.
//
// Вызывающий код обязан склеивать Push до одного на жест редактирования
// (нажатие-протяжка-отпускание), история сама быстрые Push не
// дедуплицирует.
type History struct {
	snapshots []*image.Image
	keys      []uint64
	pos       int // индекс снапшота текущего состояния
	limit     int
}

// New создаёт историю с указанным пределом хранения снапшотов.
// limit <= 0 означает DefaultLimit.
func New(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{pos: -1, limit: limit}
}

// Len возвращает количество снапшотов в истории
func (h *History) Len() int {
	return len(h.snapshots)
}

// Pos возвращает индекс текущего снапшота (-1, если история пуста)
func (h *History) Pos() int {
	return h.pos
}

// State возвращает состояние истории
func (h *History) State() State {
	switch {
	case len(h.snapshots) == 0:
		return NoHistory
	case h.pos < len(h.snapshots)-1:
		return HasPastAndFuture
	default:
		return HasPast
	}
}

// Push захватывает снапшот изображения после текущей позиции.
// Существующая ветка redo при этом отбрасывается; при превышении
// предела хранения выбывают самые старые снапшоты.
func (h *History) Push(img *image.Image) {
	// Отбрасываем будущее.
	for i := h.pos + 1; i < len(h.snapshots); i++ {
		h.snapshots[i].Release()
	}
	h.snapshots = h.snapshots[:h.pos+1]
	h.keys = h.keys[:h.pos+1]

	h.snapshots = append(h.snapshots, img.Snapshot())
	h.keys = append(h.keys, img.Key())
	h.pos = len(h.snapshots) - 1

	// Предел хранения: выбывают самые старые.
	for len(h.snapshots) > h.limit {
		h.snapshots[0].Release()
		h.snapshots = h.snapshots[1:]
		h.keys = h.keys[1:]
		h.pos--
	}
}

// Undo возвращает копию предыдущего состояния. Если текущее изображение
// ещё не захвачено (отличается от снапшота текущей позиции), оно
// сохраняется, чтобы redo могло к нему вернуться. Когда откатываться
// некуда, возвращается (nil, false) — безвредный no-op, не ошибка.
func (h *History) Undo(current *image.Image) (*image.Image, bool) {
	if len(h.snapshots) == 0 || current.Key() != h.keys[h.pos] {
		h.Push(current)
	}
	if h.pos == 0 {
		return nil, false
	}
	h.pos--
	return h.snapshots[h.pos].Snapshot(), true
}

// Redo возвращает копию следующего состояния, либо (nil, false),
// если будущего нет — безвредный no-op.
func (h *History) Redo() (*image.Image, bool) {
	if h.pos < 0 || h.pos >= len(h.snapshots)-1 {
		return nil, false
	}
	h.pos++
	return h.snapshots[h.pos].Snapshot(), true
}

// Clear освобождает все снапшоты
func (h *History) Clear() {
	for _, s := range h.snapshots {
		s.Release()
	}
	h.snapshots = nil
	h.keys = nil
	h.pos = -1
}
