package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/voxedit/internal/editor"
	"github.com/annel0/voxedit/internal/image"
	"github.com/annel0/voxedit/internal/logging"
	"github.com/annel0/voxedit/internal/middleware"
	"github.com/annel0/voxedit/internal/proc"
	"github.com/annel0/voxedit/internal/render"
	"github.com/annel0/voxedit/internal/vec"
	"github.com/annel0/voxedit/internal/voxel"
)

// RestServer представляет REST API сервер редактора
type RestServer struct {
	router  *gin.Engine
	mgr     *editor.Manager
	render  *render.MeshCache
	port    string
	metrics *ServerMetrics
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port        string            // порт для запуска сервера
	Manager     *editor.Manager   // менеджер документов
	RenderCache *render.MeshCache // кэш граней для отдачи геометрии
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8080"
	}

	// Устанавливаем режим релиза для gin
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	loggerMw := middleware.NewRequestLogger()
	router.Use(loggerMw.Handler())

	router.Use(otelgin.Middleware("rest_api"))

	promMw := middleware.NewPrometheusMiddleware("rest_api")
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	server := &RestServer{
		router:  router,
		mgr:     config.Manager,
		render:  config.RenderCache,
		port:    config.Port,
		metrics: NewServerMetrics(),
	}

	// Настраиваем маршруты
	server.setupRoutes()

	return server
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	// Middleware для CORS
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	api := rs.router.Group("/api")

	api.GET("/status", rs.handleStatus)

	docs := api.Group("/documents")
	{
		docs.GET("", rs.handleListDocuments)
		docs.POST("", rs.handleCreateDocument)
		docs.GET("/:id", rs.handleGetDocument)
		docs.POST("/:id/open", rs.handleOpenDocument)
		docs.POST("/:id/save", rs.handleSaveDocument)
		docs.POST("/:id/close", rs.handleCloseDocument)
		docs.DELETE("/:id", rs.handleDeleteDocument)

		// Правки
		docs.POST("/:id/voxels", rs.handleSetVoxels)
		docs.GET("/:id/voxel", rs.handleGetVoxel)
		docs.POST("/:id/tool", rs.handleApplyTool)
		docs.POST("/:id/undo", rs.handleUndo)
		docs.POST("/:id/redo", rs.handleRedo)

		// Слои
		docs.POST("/:id/layers", rs.handleAddLayer)
		docs.PUT("/:id/layers/:lid", rs.handleUpdateLayer)
		docs.DELETE("/:id/layers/:lid", rs.handleDeleteLayer)
		docs.POST("/:id/layers/:lid/move", rs.handleMoveLayer)
		docs.POST("/:id/layers/:lid/duplicate", rs.handleDuplicateLayer)
		docs.POST("/:id/layers/merge", rs.handleMergeLayers)
		docs.GET("/:id/layers/:lid/faces", rs.handleLayerFaces)

		// Выделение и буфер обмена
		docs.PUT("/:id/selection", rs.handleSetSelection)
		docs.POST("/:id/clipboard/:op", rs.handleClipboard)

		// Процедурная генерация
		docs.POST("/:id/proc", rs.handleRunProc)

		// Камеры
		docs.POST("/:id/cameras", rs.handleAddCamera)
		docs.DELETE("/:id/cameras/:cid", rs.handleDeleteCamera)
	}

	// Health check
	rs.router.GET("/health", rs.handleHealth)
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "ok", Data: data})
}

func fail(c *gin.Context, status int, err error) {
	c.JSON(status, GenericResponse{Success: false, Message: err.Error()})
}

// withDoc выполняет fn над документом из маршрута, отвечая 404 если он
// не открыт.
func (rs *RestServer) withDoc(c *gin.Context, fn func(d *editor.Document) error) {
	id := c.Param("id")
	if err := rs.mgr.With(id, fn); err != nil {
		if c.Writer.Written() {
			return
		}
		fail(c, http.StatusNotFound, err)
	}
}

// --- Документы ---

func (rs *RestServer) handleListDocuments(c *gin.Context) {
	stored, err := rs.mgr.Stored()
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	ok(c, gin.H{"open": rs.mgr.List(), "stored": stored})
}

func (rs *RestServer) handleCreateDocument(c *gin.Context) {
	d := rs.mgr.Create()
	ok(c, gin.H{"id": d.ID, "key": keyHex(d.Key())})
}

type layerInfo struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
	Mode    string `json:"mode"`
	Clone   bool   `json:"clone"`
	Key     string `json:"key"`
}

func (rs *RestServer) handleGetDocument(c *gin.Context) {
	rs.withDoc(c, func(d *editor.Document) error {
		layers := make([]layerInfo, 0, len(d.Image.Layers))
		for _, l := range d.Image.Layers {
			layers = append(layers, layerInfo{
				ID:      l.ID,
				Name:    l.Name,
				Visible: l.Visible,
				Mode:    l.Mode.String(),
				Clone:   l.IsClone(),
				Key:     keyHex(l.Key()),
			})
		}
		ok(c, gin.H{
			"id":            d.ID,
			"key":           keyHex(d.Key()),
			"modified":      d.Image.Modified(),
			"active_layer":  d.Image.ActiveLayerID,
			"layers":        layers,
			"history_state": d.History.State().String(),
			"history_len":   d.History.Len(),
		})
		return nil
	})
}

func (rs *RestServer) handleOpenDocument(c *gin.Context) {
	d, err := rs.mgr.Open(c.Param("id"))
	if err != nil {
		fail(c, http.StatusNotFound, err)
		return
	}
	ok(c, gin.H{"id": d.ID, "key": keyHex(d.Key())})
}

func (rs *RestServer) handleSaveDocument(c *gin.Context) {
	if err := rs.mgr.Save(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	ok(c, nil)
}

func (rs *RestServer) handleCloseDocument(c *gin.Context) {
	if err := rs.mgr.Close(c.Param("id")); err != nil {
		fail(c, http.StatusNotFound, err)
		return
	}
	ok(c, nil)
}

func (rs *RestServer) handleDeleteDocument(c *gin.Context) {
	if err := rs.mgr.Delete(c.Param("id")); err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	ok(c, nil)
}

// --- Правки ---

// VoxelEdit одна запись вокселя. Пустой цвет стирает воксель.
type VoxelEdit struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
	Color string `json:"color"`
}

// SetVoxelsRequest пакет правок одного жеста
type SetVoxelsRequest struct {
	Voxels []VoxelEdit `json:"voxels" binding:"required"`
	Commit bool        `json:"commit"`
}

func (rs *RestServer) handleSetVoxels(c *gin.Context) {
	var req SetVoxelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	// Батч разбирается целиком до каких-либо правок: ошибка в любой
	// записи отклоняет весь жест, документ остаётся нетронутым.
	type edit struct {
		pos vec.Vec3
		col voxel.Color
	}
	edits := make([]edit, 0, len(req.Voxels))
	for _, v := range req.Voxels {
		col := voxel.Empty
		if v.Color != "" {
			var err error
			col, err = voxel.ParseColor(v.Color)
			if err != nil {
				fail(c, http.StatusBadRequest, err)
				return
			}
		}
		edits = append(edits, edit{pos: vec.Vec3{X: v.X, Y: v.Y, Z: v.Z}, col: col})
	}
	rs.withDoc(c, func(d *editor.Document) error {
		for _, e := range edits {
			// Редактируемость активного слоя не меняется внутри батча,
			// поэтому отказ возможен только до первой записи.
			if err := d.SetVoxel(e.pos, e.col); err != nil {
				fail(c, http.StatusConflict, err)
				return err
			}
		}
		if req.Commit {
			d.Commit(c.Request.Context())
		}
		ok(c, gin.H{"key": keyHex(d.Key())})
		return nil
	})
}

func (rs *RestServer) handleGetVoxel(c *gin.Context) {
	p, err := parseVec3Query(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	rs.withDoc(c, func(d *editor.Document) error {
		col := d.GetVoxel(p)
		ok(c, gin.H{"color": col.Hex(), "empty": col.IsEmpty()})
		return nil
	})
}

// ApplyToolRequest мазок инструмента: имя и форма в виде списка вокселей
type ApplyToolRequest struct {
	Tool   string      `json:"tool" binding:"required"`
	Voxels []VoxelEdit `json:"voxels" binding:"required"`
	Commit bool        `json:"commit"`
}

func (rs *RestServer) handleApplyTool(c *gin.Context) {
	var req ApplyToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	shape := voxel.NewMesh()
	defer shape.Release()
	for _, v := range req.Voxels {
		col, err := voxel.ParseColor(v.Color)
		if err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}
		shape.SetVoxel(vec.Vec3{X: v.X, Y: v.Y, Z: v.Z}, col)
	}
	rs.withDoc(c, func(d *editor.Document) error {
		if err := d.ApplyTool(req.Tool, shape); err != nil {
			fail(c, http.StatusConflict, err)
			return err
		}
		if req.Commit {
			d.Commit(c.Request.Context())
		}
		ok(c, gin.H{"key": keyHex(d.Key())})
		return nil
	})
}

func (rs *RestServer) handleUndo(c *gin.Context) {
	rs.withDoc(c, func(d *editor.Document) error {
		done := d.Undo(c.Request.Context())
		ok(c, gin.H{"done": done, "key": keyHex(d.Key())})
		return nil
	})
}

func (rs *RestServer) handleRedo(c *gin.Context) {
	rs.withDoc(c, func(d *editor.Document) error {
		done := d.Redo(c.Request.Context())
		ok(c, gin.H{"done": done, "key": keyHex(d.Key())})
		return nil
	})
}

// --- Слои ---

// AddLayerRequest запрос на создание слоя; base_id > 0 создаёт clone-слой
type AddLayerRequest struct {
	Name   string `json:"name"`
	BaseID int    `json:"base_id"`
}

func (rs *RestServer) handleAddLayer(c *gin.Context) {
	var req AddLayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	rs.withDoc(c, func(d *editor.Document) error {
		var l *image.Layer
		var err error
		if req.BaseID > 0 {
			l, err = d.AddCloneLayer(c.Request.Context(), req.BaseID)
			if err != nil {
				fail(c, http.StatusNotFound, err)
				return err
			}
		} else {
			l = d.AddLayer(c.Request.Context())
		}
		if req.Name != "" {
			l.Name = req.Name
		}
		ok(c, gin.H{"id": l.ID, "name": l.Name})
		return nil
	})
}

// UpdateLayerRequest частичное обновление свойств слоя
type UpdateLayerRequest struct {
	Name    *string `json:"name"`
	Visible *bool   `json:"visible"`
	Mode    *string `json:"mode"`
	Active  *bool   `json:"active"`
}

func (rs *RestServer) handleUpdateLayer(c *gin.Context) {
	lid, err := strconv.Atoi(c.Param("lid"))
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	var req UpdateLayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	rs.withDoc(c, func(d *editor.Document) error {
		l, found := d.Image.LayerByID(lid)
		if !found {
			err := fmt.Errorf("слой %d не найден", lid)
			fail(c, http.StatusNotFound, err)
			return err
		}
		if req.Name != nil {
			l.Name = *req.Name
		}
		if req.Visible != nil {
			l.Visible = *req.Visible
		}
		if req.Mode != nil {
			op, err := voxel.ParseMergeOp(*req.Mode)
			if err != nil {
				fail(c, http.StatusBadRequest, err)
				return err
			}
			l.Mode = op
		}
		if req.Active != nil && *req.Active {
			d.Image.ActiveLayerID = l.ID
		}
		d.Commit(c.Request.Context())
		ok(c, gin.H{"key": keyHex(d.Key())})
		return nil
	})
}

func (rs *RestServer) handleDeleteLayer(c *gin.Context) {
	lid, err := strconv.Atoi(c.Param("lid"))
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	rs.withDoc(c, func(d *editor.Document) error {
		if err := d.DeleteLayer(c.Request.Context(), lid); err != nil {
			fail(c, http.StatusNotFound, err)
			return err
		}
		if rs.render != nil {
			rs.render.Invalidate(lid)
		}
		ok(c, nil)
		return nil
	})
}

// MoveLayerRequest направление перестановки слоя: +1 вверх, -1 вниз
type MoveLayerRequest struct {
	Dir int `json:"dir" binding:"required"`
}

func (rs *RestServer) handleMoveLayer(c *gin.Context) {
	lid, err := strconv.Atoi(c.Param("lid"))
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	var req MoveLayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	rs.withDoc(c, func(d *editor.Document) error {
		if err := d.MoveLayer(c.Request.Context(), lid, req.Dir); err != nil {
			fail(c, http.StatusNotFound, err)
			return err
		}
		ok(c, nil)
		return nil
	})
}

func (rs *RestServer) handleDuplicateLayer(c *gin.Context) {
	lid, err := strconv.Atoi(c.Param("lid"))
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	rs.withDoc(c, func(d *editor.Document) error {
		l, err := d.DuplicateLayer(c.Request.Context(), lid)
		if err != nil {
			fail(c, http.StatusNotFound, err)
			return err
		}
		ok(c, gin.H{"id": l.ID, "name": l.Name})
		return nil
	})
}

func (rs *RestServer) handleMergeLayers(c *gin.Context) {
	rs.withDoc(c, func(d *editor.Document) error {
		l := d.MergeVisibleLayers(c.Request.Context())
		ok(c, gin.H{"id": l.ID, "key": keyHex(l.Key())})
		return nil
	})
}

// handleLayerFaces отдаёт видимые грани слоя в бинарном формате.
// Повторный запрос с неизменным ключом меша обслуживается из кэша.
func (rs *RestServer) handleLayerFaces(c *gin.Context) {
	lid, err := strconv.Atoi(c.Param("lid"))
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	rs.withDoc(c, func(d *editor.Document) error {
		l, found := d.Image.LayerByID(lid)
		if !found {
			err := fmt.Errorf("слой %d не найден", lid)
			fail(c, http.StatusNotFound, err)
			return err
		}
		var faces []render.Face
		if rs.render != nil {
			faces = rs.render.Faces(c.Request.Context(), l.ID, l.Mesh, render.EffectNone)
		} else {
			faces = render.ExtractFaces(l.Mesh)
		}
		c.Header("X-Mesh-Key", keyHex(l.Mesh.Key()))
		c.Data(http.StatusOK, "application/octet-stream", render.EncodeFaces(faces))
		return nil
	})
}

// --- Выделение и буфер обмена ---

// SelectionRequest прямоугольное выделение; clear сбрасывает его
type SelectionRequest struct {
	Min   [3]int `json:"min"`
	Max   [3]int `json:"max"`
	Clear bool   `json:"clear"`
}

func (rs *RestServer) handleSetSelection(c *gin.Context) {
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	rs.withDoc(c, func(d *editor.Document) error {
		if req.Clear {
			d.Image.Selection = vec.EmptyBox()
		} else {
			d.Image.Selection = vec.Box{
				Min: vec.Vec3{X: req.Min[0], Y: req.Min[1], Z: req.Min[2]},
				Max: vec.Vec3{X: req.Max[0], Y: req.Max[1], Z: req.Max[2]},
			}
		}
		ok(c, nil)
		return nil
	})
}

func (rs *RestServer) handleClipboard(c *gin.Context) {
	op := c.Param("op")
	rs.withDoc(c, func(d *editor.Document) error {
		switch op {
		case "copy":
			d.Image.CopySelection()
		case "cut":
			d.Image.CutSelection()
			d.Commit(c.Request.Context())
		case "paste":
			if err := d.Paste(c.Request.Context()); err != nil {
				fail(c, http.StatusConflict, err)
				return err
			}
		default:
			err := fmt.Errorf("неизвестная операция буфера %q", op)
			fail(c, http.StatusBadRequest, err)
			return err
		}
		ok(c, gin.H{"key": keyHex(d.Key())})
		return nil
	})
}

// --- Процедурная генерация ---

// RunProcRequest исходник процедурной программы и операция вливания
type RunProcRequest struct {
	Source string `json:"source" binding:"required"`
	Op     string `json:"op"`
}

func (rs *RestServer) handleRunProc(c *gin.Context) {
	var req RunProcRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	mergeOp := voxel.OpAdd
	if req.Op != "" {
		var err error
		mergeOp, err = voxel.ParseMergeOp(req.Op)
		if err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}
	}
	prog := proc.New()
	if err := prog.Parse(req.Source); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	rs.withDoc(c, func(d *editor.Document) error {
		prog.Rewind()
		for !prog.Iter(64) {
		}
		if err := prog.Err(); err != nil {
			fail(c, http.StatusBadRequest, err)
			return err
		}
		if err := d.ApplyMesh(prog.Result(), mergeOp); err != nil {
			fail(c, http.StatusConflict, err)
			return err
		}
		d.Commit(c.Request.Context())
		ok(c, gin.H{"key": keyHex(d.Key())})
		return nil
	})
}

// --- Камеры ---

// AddCameraRequest имя новой камеры
type AddCameraRequest struct {
	Name string `json:"name"`
}

func (rs *RestServer) handleAddCamera(c *gin.Context) {
	var req AddCameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	rs.withDoc(c, func(d *editor.Document) error {
		cam := d.Image.AddCamera(req.Name)
		ok(c, gin.H{"id": cam.ID, "name": cam.Name})
		return nil
	})
}

func (rs *RestServer) handleDeleteCamera(c *gin.Context) {
	cid, err := strconv.Atoi(c.Param("cid"))
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	rs.withDoc(c, func(d *editor.Document) error {
		if err := d.Image.DeleteCamera(cid); err != nil {
			fail(c, http.StatusNotFound, err)
			return err
		}
		ok(c, nil)
		return nil
	})
}

// --- Служебные ---

func (rs *RestServer) handleStatus(c *gin.Context) {
	memoryMB, _ := rs.metrics.GetMemoryUsage()
	cpuPercent, err := rs.metrics.GetCPUUsage()
	if err != nil {
		logging.Debug("Не удалось получить CPU метрики: %v", err)
		cpuPercent = 0
	}
	ok(c, gin.H{
		"uptime":         rs.metrics.GetUptime(),
		"memory_mb":      memoryMB,
		"cpu_percent":    cpuPercent,
		"memory_details": rs.metrics.GetDetailedMemoryStats(),
		"documents":      rs.mgr.List(),
	})
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Handler возвращает http.Handler сервера (для httptest)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// Start запускает сервер (блокирующий вызов)
func (rs *RestServer) Start() error {
	logging.Info("REST API сервер запускается на порту %s", rs.port)
	return rs.router.Run(rs.port)
}

func keyHex(k uint64) string {
	return fmt.Sprintf("%016x", k)
}

func parseVec3Query(c *gin.Context) (vec.Vec3, error) {
	var p vec.Vec3
	for _, q := range []struct {
		name string
		dst  *int
	}{{"x", &p.X}, {"y", &p.Y}, {"z", &p.Z}} {
		v, err := strconv.Atoi(c.Query(q.name))
		if err != nil {
			return vec.Vec3{}, fmt.Errorf("некорректный параметр %s: %w", q.name, err)
		}
		*q.dst = v
	}
	return p, nil
}
