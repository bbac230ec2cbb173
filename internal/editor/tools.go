package editor

import (
	"github.com/annel0/voxedit/internal/voxel"
)

// ToolDescriptor описывает инструмент редактирования. Инструменты
// регистрируются явно из упорядоченного списка дескрипторов при
// инициализации — никакой саморегистрации через init().
type ToolDescriptor struct {
	Name         string
	Op           voxel.MergeOp // операция, которой инструмент вливает форму
	RequiresEdit bool          // инструмент правит слой — нужна проверка политики
}

// ToolRegistry хранит инструменты в порядке регистрации.
type ToolRegistry struct {
	order []string
	tools map[string]ToolDescriptor
}

// NewToolRegistry создаёт регистр из упорядоченного списка дескрипторов.
// Повторная регистрация имени перезаписывает дескриптор, сохраняя
// исходную позицию в порядке.
func NewToolRegistry(descs []ToolDescriptor) *ToolRegistry {
	tr := &ToolRegistry{tools: make(map[string]ToolDescriptor, len(descs))}
	for _, d := range descs {
		if _, exists := tr.tools[d.Name]; !exists {
			tr.order = append(tr.order, d.Name)
		}
		tr.tools[d.Name] = d
	}
	return tr
}

// Get возвращает дескриптор инструмента по имени
func (tr *ToolRegistry) Get(name string) (ToolDescriptor, bool) {
	d, ok := tr.tools[name]
	return d, ok
}

// Names возвращает имена инструментов в порядке регистрации
func (tr *ToolRegistry) Names() []string {
	out := make([]string, len(tr.order))
	copy(out, tr.order)
	return out
}

// DefaultTools возвращает стандартный набор инструментов редактора.
func DefaultTools() []ToolDescriptor {
	return []ToolDescriptor{
		{Name: "brush", Op: voxel.OpAdd, RequiresEdit: true},
		{Name: "eraser", Op: voxel.OpSubtract, RequiresEdit: true},
		{Name: "paint", Op: voxel.OpPaint, RequiresEdit: true},
		{Name: "carve", Op: voxel.OpIntersect, RequiresEdit: true},
		{Name: "picker", Op: voxel.OpAdd, RequiresEdit: false},
	}
}
