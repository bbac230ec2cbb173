package editor

import (
	"context"
	"fmt"
	"sync"

	"github.com/annel0/voxedit/internal/eventbus"
	"github.com/annel0/voxedit/internal/logging"
	"github.com/annel0/voxedit/internal/storage"
)

// Manager владеет множеством открытых документов и хранилищем.
// Документ сам по себе не потокобезопасен; менеджер сериализует
// доступ к нему через With, поэтому REST-обработчики могут работать
// с документами из разных goroutine.
type Manager struct {
	mu           sync.Mutex
	docs         map[string]*Document
	store        *storage.DocumentStorage // может быть nil (in-memory режим)
	bus          eventbus.EventBus
	historyLimit int
}

// DocumentInfo краткая сводка открытого документа для списков.
type DocumentInfo struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	Layers   int    `json:"layers"`
	Modified bool   `json:"modified"`
}

// NewManager создаёт менеджер документов. store и bus могут быть nil.
func NewManager(store *storage.DocumentStorage, bus eventbus.EventBus, historyLimit int) *Manager {
	return &Manager{
		docs:         make(map[string]*Document),
		store:        store,
		bus:          bus,
		historyLimit: historyLimit,
	}
}

// Create открывает новый пустой документ.
func (m *Manager) Create() *Document {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := NewDocument(m.historyLimit, m.bus)
	m.docs[d.ID] = d
	logging.Info("Создан документ %s", d.ID)
	return d
}

// With выполняет fn над документом под блокировкой менеджера.
// Все обращения к документу извне потока редактирования идут через With.
func (m *Manager) With(id string, fn func(*Document) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.docs[id]
	if !ok {
		return fmt.Errorf("документ %s не открыт", id)
	}
	return fn(d)
}

// List возвращает сводку по всем открытым документам.
func (m *Manager) List() []DocumentInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]DocumentInfo, 0, len(m.docs))
	for _, d := range m.docs {
		infos = append(infos, DocumentInfo{
			ID:       d.ID,
			Key:      fmt.Sprintf("%016x", d.Image.Key()),
			Layers:   len(d.Image.Layers),
			Modified: d.Image.Modified(),
		})
	}
	return infos
}

// Save сохраняет документ в хранилище и публикует событие.
func (m *Manager) Save(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.docs[id]
	if !ok {
		return fmt.Errorf("документ %s не открыт", id)
	}
	if m.store == nil {
		return fmt.Errorf("хранилище не настроено")
	}
	if err := m.store.SaveImage(d.ID, d.Image); err != nil {
		return fmt.Errorf("сохранение документа %s: %w", id, err)
	}
	d.Image.MarkSaved(d.ID)
	if m.bus != nil {
		ev := eventbus.NewEnvelope("manager", eventbus.EventDocumentSaved, d.ID, d.Image.Key(), nil)
		if err := m.bus.Publish(ctx, ev); err != nil {
			logging.Warn("Не удалось опубликовать DocumentSaved: %v", err)
		}
	}
	return nil
}

// Open загружает документ из хранилища. Уже открытый документ
// возвращается как есть.
func (m *Manager) Open(id string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok := m.docs[id]; ok {
		return d, nil
	}
	if m.store == nil {
		return nil, fmt.Errorf("хранилище не настроено")
	}
	img, err := m.store.LoadImage(id)
	if err != nil {
		return nil, fmt.Errorf("загрузка документа %s: %w", id, err)
	}
	d := NewDocumentFrom(id, img, m.historyLimit, m.bus)
	m.docs[id] = d
	logging.Info("Открыт документ %s (%d слоёв)", id, len(img.Layers))
	return d, nil
}

// Close закрывает документ, освобождая его меши и историю.
// Несохранённые изменения теряются.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.docs[id]
	if !ok {
		return fmt.Errorf("документ %s не открыт", id)
	}
	d.History.Clear()
	d.Image.Release()
	delete(m.docs, id)
	logging.Info("Закрыт документ %s", id)
	return nil
}

// Delete удаляет документ из хранилища и закрывает его, если открыт.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok := m.docs[id]; ok {
		d.History.Clear()
		d.Image.Release()
		delete(m.docs, id)
	}
	if m.store == nil {
		return nil
	}
	if err := m.store.DeleteImage(id); err != nil {
		return fmt.Errorf("удаление документа %s: %w", id, err)
	}
	return nil
}

// Stored возвращает идентификаторы документов в хранилище.
func (m *Manager) Stored() ([]string, error) {
	if m.store == nil {
		return nil, nil
	}
	return m.store.ListDocuments()
}

// Shutdown закрывает все документы. Хранилище закрывает вызывающий.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, d := range m.docs {
		d.History.Clear()
		d.Image.Release()
		delete(m.docs, id)
	}
}
