package editor

import (
	"context"
	"time"

	"github.com/annel0/voxedit/internal/eventbus"
	"github.com/annel0/voxedit/internal/history"
	"github.com/annel0/voxedit/internal/image"
	"github.com/annel0/voxedit/internal/logging"
	"github.com/annel0/voxedit/internal/vec"
	"github.com/annel0/voxedit/internal/voxel"
	"github.com/google/uuid"
)

// Document представляет сессию редактирования: изображение, историю и
// регистр инструментов. Документ — явно владеемое значение, передаваемое
// по ссылке во все операции: глобального документа нет, тесты и
// несколько открытых документов получают изолированные экземпляры.
//
// Вся мутация документа происходит синхронно на потоке редактирования,
// внутренних блокировок нет. Фоновые потребители (рендер, экспорт)
// держат собственные ссылки на меши и изолированы copy-on-write.
type Document struct {
	ID      string
	Image   *image.Image
	History *history.History
	Tools   *ToolRegistry

	bus eventbus.EventBus // может быть nil
	m   *editorMetrics
}

// NewDocument создаёт пустой документ с одним слоем. bus может быть nil.
func NewDocument(historyLimit int, bus eventbus.EventBus) *Document {
	d := &Document{
		ID:      uuid.NewString(),
		Image:   image.New(),
		History: history.New(historyLimit),
		Tools:   NewToolRegistry(DefaultTools()),
		bus:     bus,
		m:       getMetrics(),
	}
	// Начальное состояние — первый снапшот.
	d.History.Push(d.Image)
	return d
}

// NewDocumentFrom оборачивает загруженное из хранилища изображение в
// документ с чистой историей.
func NewDocumentFrom(id string, img *image.Image, historyLimit int, bus eventbus.EventBus) *Document {
	d := &Document{
		ID:      id,
		Image:   img,
		History: history.New(historyLimit),
		Tools:   NewToolRegistry(DefaultTools()),
		bus:     bus,
		m:       getMetrics(),
	}
	d.History.Push(d.Image)
	return d
}

// GetVoxel возвращает воксель активного слоя
func (d *Document) GetVoxel(p vec.Vec3) voxel.Color {
	return d.Image.ActiveLayer().Mesh.GetVoxel(p)
}

// checkEditable отклоняет правку, запрещённую политикой, до любой
// мутации документа.
func (d *Document) checkEditable() error {
	if !d.Image.CanEditLayer(d.Image.ActiveLayerID) {
		d.m.refused.Inc()
		return ErrLayerNotEditable
	}
	return nil
}

// SetVoxel записывает воксель в активный слой. Запись того же цвета —
// no-op: не меняет ключ и не считается изменением для истории.
func (d *Document) SetVoxel(p vec.Vec3, c voxel.Color) error {
	if err := d.checkEditable(); err != nil {
		return err
	}
	d.Image.ActiveLayer().Mesh.SetVoxel(p, c)
	d.m.edits.WithLabelValues("set_voxel").Inc()
	return nil
}

// ApplyMesh вливает меш src в активный слой операцией op. Слияние
// атомарно на уровне блоков: либо применяется целиком, либо документ
// не меняется.
func (d *Document) ApplyMesh(src *voxel.Mesh, op voxel.MergeOp) error {
	if err := d.checkEditable(); err != nil {
		return err
	}
	start := time.Now()
	d.Image.ActiveLayer().Mesh.Merge(src, op)
	d.m.mergeDur.Observe(time.Since(start).Seconds())
	d.m.edits.WithLabelValues(op.String()).Inc()
	return nil
}

// ApplyTool вливает форму инструмента в активный слой операцией
// инструмента.
func (d *Document) ApplyTool(name string, shape *voxel.Mesh) error {
	tool, ok := d.Tools.Get(name)
	if !ok {
		return ErrUnknownTool
	}
	if !tool.RequiresEdit {
		return nil
	}
	return d.ApplyMesh(shape, tool.Op)
}

// Commit фиксирует жест редактирования: пересинхронизирует clone-слои,
// захватывает снапшот истории и публикует событие. Вызывается один раз
// на логический жест (протяжка-отпускание), не на каждый воксель.
func (d *Document) Commit(ctx context.Context) {
	d.Image.ResyncClones()
	d.History.Push(d.Image)
	d.m.commits.Inc()
	d.m.snapshots.Set(float64(d.History.Len()))
	d.publish(ctx, eventbus.EventEditCommitted)
}

// Undo откатывает документ к предыдущему снапшоту. Отсутствие прошлого —
// безвредный no-op, возвращается false.
func (d *Document) Undo(ctx context.Context) bool {
	prev, ok := d.History.Undo(d.Image)
	if !ok {
		d.m.undoRedo.WithLabelValues("undo", "noop").Inc()
		return false
	}
	d.Image.Release()
	d.Image = prev
	d.m.undoRedo.WithLabelValues("undo", "ok").Inc()
	d.publish(ctx, eventbus.EventUndoRedo)
	return true
}

// Redo возвращает документ к следующему снапшоту, если он есть.
func (d *Document) Redo(ctx context.Context) bool {
	next, ok := d.History.Redo()
	if !ok {
		d.m.undoRedo.WithLabelValues("redo", "noop").Inc()
		return false
	}
	d.Image.Release()
	d.Image = next
	d.m.undoRedo.WithLabelValues("redo", "ok").Inc()
	d.publish(ctx, eventbus.EventUndoRedo)
	return true
}

// Key возвращает текущий ключ изображения
func (d *Document) Key() uint64 {
	return d.Image.Key()
}

// Frame выполняет покадровое обслуживание документа между кадрами:
// пересинхронизацию clone-слоёв.
func (d *Document) Frame() {
	d.Image.ResyncClones()
}

// --- Операции над слоями: каждая является законченным жестом и сама
// фиксирует снапшот. ---

// AddLayer добавляет пустой слой и фиксирует изменение
func (d *Document) AddLayer(ctx context.Context) *image.Layer {
	l := d.Image.AddLayer()
	d.commitLayers(ctx)
	return l
}

// AddCloneLayer добавляет clone-слой базового слоя
func (d *Document) AddCloneLayer(ctx context.Context, baseID int) (*image.Layer, error) {
	l, err := d.Image.AddCloneLayer(baseID)
	if err != nil {
		return nil, err
	}
	d.commitLayers(ctx)
	return l, nil
}

// DeleteLayer удаляет слой
func (d *Document) DeleteLayer(ctx context.Context, id int) error {
	if err := d.Image.DeleteLayer(id); err != nil {
		return err
	}
	d.commitLayers(ctx)
	return nil
}

// MoveLayer перемещает слой в списке
func (d *Document) MoveLayer(ctx context.Context, id, dir int) error {
	if err := d.Image.MoveLayer(id, dir); err != nil {
		return err
	}
	d.commitLayers(ctx)
	return nil
}

// DuplicateLayer создаёт независимую копию слоя
func (d *Document) DuplicateLayer(ctx context.Context, id int) (*image.Layer, error) {
	l, err := d.Image.DuplicateLayer(id)
	if err != nil {
		return nil, err
	}
	d.commitLayers(ctx)
	return l, nil
}

// MergeVisibleLayers сводит видимые слои в один
func (d *Document) MergeVisibleLayers(ctx context.Context) *image.Layer {
	start := time.Now()
	l := d.Image.MergeVisibleLayers()
	d.m.mergeDur.Observe(time.Since(start).Seconds())
	d.commitLayers(ctx)
	return l
}

// Paste вливает буфер обмена в активный слой
func (d *Document) Paste(ctx context.Context) error {
	if err := d.checkEditable(); err != nil {
		return err
	}
	d.Image.Paste()
	d.Commit(ctx)
	return nil
}

func (d *Document) commitLayers(ctx context.Context) {
	d.Image.ResyncClones()
	d.History.Push(d.Image)
	d.m.commits.Inc()
	d.m.snapshots.Set(float64(d.History.Len()))
	d.publish(ctx, eventbus.EventLayerChanged)
}

// publish отправляет событие документа в шину, если она подключена
func (d *Document) publish(ctx context.Context, eventType string) {
	if d.bus == nil {
		return
	}
	ev := eventbus.NewEnvelope("editor", eventType, d.ID, d.Image.Key(), nil)
	if err := d.bus.Publish(ctx, ev); err != nil {
		logging.Warn("Не удалось опубликовать событие %s: %v", eventType, err)
	}
}
