package proc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/annel0/voxedit/internal/vec"
	"github.com/annel0/voxedit/internal/voxel"
	"github.com/aquilax/go-perlin"
)

// State описывает состояние процедурной программы
type State int

const (
	Init       State = iota // программа не загружена
	ParseError              // исходник не разобран
	Ready                   // разобрана, выполнение не начато
	Running                 // выполнение приостановлено между кадрами
	Done                    // результат готов
)

// String возвращает строковое представление состояния
func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case ParseError:
		return "parse_error"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Done:
		return "done"
	}
	return "unknown"
}

// Program — процедурная программа, наполняющая меш фигурами.
//
// Выполнение явно покадровое: Iter выполняет ограниченное число слоёв
// объёма и возвращает управление, сохраняя позицию. Состояния и точка
// возобновления явные, без скрытой передачи управления.
//
// Язык: одна команда на строку, комментарии начинаются с ';'.
//
//	seed 42
//	sphere x y z r #rrggbb[aa]
//	box x y z w h d #rrggbb[aa]
//	noise x y z w h d scale threshold #rrggbb[aa]
type Program struct {
	state State
	err   error

	cmds []command
	out  *voxel.Mesh

	// Точка возобновления: индекс команды и текущий срез Z внутри неё.
	pc   int
	curZ int

	seed  int64
	noise *perlin.Perlin

	// Последний наблюдавшийся ключ базового слоя — для решения о
	// повторном выполнении.
	baseKey uint64
}

type command struct {
	kind   string // sphere | box | noise
	pos    vec.Vec3
	size   vec.Vec3 // для sphere: r в X
	scale  float64
	thresh float64
	color  voxel.Color
	line   int
}

// New создаёт пустую программу в состоянии Init
func New() *Program {
	return &Program{state: Init}
}

// State возвращает текущее состояние программы
func (p *Program) State() State {
	return p.state
}

// Err возвращает ошибку разбора (nil вне ParseError)
func (p *Program) Err() error {
	return p.err
}

// Parse разбирает исходник программы. Успех переводит программу в
// Ready, ошибка — в ParseError с диагностикой номера строки.
func (p *Program) Parse(src string) error {
	p.cmds = nil
	p.seed = 0
	p.err = nil

	for i, raw := range strings.Split(src, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if err := p.parseLine(line, i+1); err != nil {
			p.err = err
			p.state = ParseError
			return err
		}
	}
	p.Rewind()
	return nil
}

func (p *Program) parseLine(line string, n int) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "seed":
		if len(fields) != 2 {
			return fmt.Errorf("строка %d: seed требует один аргумент", n)
		}
		v, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return fmt.Errorf("строка %d: некорректный seed: %w", n, err)
		}
		p.seed = v
		return nil
	case "sphere":
		if len(fields) != 6 {
			return fmt.Errorf("строка %d: sphere требует x y z r и цвет", n)
		}
		args, err := parseInts(fields[1:5])
		if err != nil {
			return fmt.Errorf("строка %d: %w", n, err)
		}
		col, err := voxel.ParseColor(fields[5])
		if err != nil {
			return fmt.Errorf("строка %d: %w", n, err)
		}
		p.cmds = append(p.cmds, command{
			kind:  "sphere",
			pos:   vec.Vec3{X: args[0], Y: args[1], Z: args[2]},
			size:  vec.Vec3{X: args[3]},
			color: col,
			line:  n,
		})
		return nil
	case "box":
		if len(fields) != 8 {
			return fmt.Errorf("строка %d: box требует x y z w h d и цвет", n)
		}
		args, err := parseInts(fields[1:7])
		if err != nil {
			return fmt.Errorf("строка %d: %w", n, err)
		}
		col, err := voxel.ParseColor(fields[7])
		if err != nil {
			return fmt.Errorf("строка %d: %w", n, err)
		}
		p.cmds = append(p.cmds, command{
			kind:  "box",
			pos:   vec.Vec3{X: args[0], Y: args[1], Z: args[2]},
			size:  vec.Vec3{X: args[3], Y: args[4], Z: args[5]},
			color: col,
			line:  n,
		})
		return nil
	case "noise":
		if len(fields) != 10 {
			return fmt.Errorf("строка %d: noise требует x y z w h d scale threshold и цвет", n)
		}
		args, err := parseInts(fields[1:7])
		if err != nil {
			return fmt.Errorf("строка %d: %w", n, err)
		}
		scale, err := strconv.ParseFloat(fields[7], 64)
		if err != nil {
			return fmt.Errorf("строка %d: некорректный scale: %w", n, err)
		}
		thresh, err := strconv.ParseFloat(fields[8], 64)
		if err != nil {
			return fmt.Errorf("строка %d: некорректный threshold: %w", n, err)
		}
		col, err := voxel.ParseColor(fields[9])
		if err != nil {
			return fmt.Errorf("строка %d: %w", n, err)
		}
		p.cmds = append(p.cmds, command{
			kind:   "noise",
			pos:    vec.Vec3{X: args[0], Y: args[1], Z: args[2]},
			size:   vec.Vec3{X: args[3], Y: args[4], Z: args[5]},
			scale:  scale,
			thresh: thresh,
			color:  col,
			line:   n,
		})
		return nil
	default:
		return fmt.Errorf("строка %d: неизвестная команда %q", n, fields[0])
	}
}

// Rewind сбрасывает выполнение к началу, сохраняя разобранную программу
func (p *Program) Rewind() {
	p.state = Ready
	p.err = nil
	p.pc = 0
	p.curZ = 0
	p.out = voxel.NewMesh()
	p.noise = perlin.NewPerlin(2.0, 2.0, 3, p.seed)
}

// Iter выполняет до budget срезов объёма и возвращает управление —
// точка покадрового возобновления. budget <= 0 выполняет всё сразу.
// Возвращает true, когда программа дошла до Done.
func (p *Program) Iter(budget int) bool {
	if p.state != Ready && p.state != Running {
		return p.state == Done
	}
	p.state = Running

	if budget <= 0 {
		budget = int(^uint(0) >> 1)
	}

	for p.pc < len(p.cmds) {
		c := p.cmds[p.pc]
		depth := c.depth()
		for p.curZ < depth {
			if budget == 0 {
				return false
			}
			p.execSlice(c, p.curZ)
			p.curZ++
			budget--
		}
		p.pc++
		p.curZ = 0
	}
	p.state = Done
	return true
}

// depth возвращает глубину объёма команды в срезах Z
func (c command) depth() int {
	if c.kind == "sphere" {
		return 2*c.size.X + 1
	}
	return c.size.Z
}

// execSlice выполняет один срез Z команды
func (p *Program) execSlice(c command, z int) {
	switch c.kind {
	case "sphere":
		r := c.size.X
		gz := c.pos.Z - r + z
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				dz := gz - c.pos.Z
				if dx*dx+dy*dy+dz*dz <= r*r {
					p.out.SetVoxel(vec.Vec3{X: c.pos.X + dx, Y: c.pos.Y + dy, Z: gz}, c.color)
				}
			}
		}
	case "box":
		gz := c.pos.Z + z
		for dy := 0; dy < c.size.Y; dy++ {
			for dx := 0; dx < c.size.X; dx++ {
				p.out.SetVoxel(vec.Vec3{X: c.pos.X + dx, Y: c.pos.Y + dy, Z: gz}, c.color)
			}
		}
	case "noise":
		gz := c.pos.Z + z
		for dy := 0; dy < c.size.Y; dy++ {
			for dx := 0; dx < c.size.X; dx++ {
				gx, gy := c.pos.X+dx, c.pos.Y+dy
				// Noise3D возвращает значение в [-1, 1], нормализуем.
				v := (p.noise.Noise3D(float64(gx)*c.scale, float64(gy)*c.scale, float64(gz)*c.scale) + 1) / 2
				if v > c.thresh {
					p.out.SetVoxel(vec.Vec3{X: gx, Y: gy, Z: gz}, c.color)
				}
			}
		}
	}
}

// Result возвращает построенный меш (валиден в состоянии Done)
func (p *Program) Result() *voxel.Mesh {
	return p.out
}

// MergeInto вливает результат программы в целевой меш операцией op.
// Допустимо только в состоянии Done.
func (p *Program) MergeInto(dst *voxel.Mesh, op voxel.MergeOp) error {
	if p.state != Done {
		return fmt.Errorf("программа не завершена: состояние %s", p.state)
	}
	dst.Merge(p.out, op)
	return nil
}

// ShouldRerun сравнивает ключ базового слоя с последним наблюдавшимся
// и запоминает новый. Повторное выполнение нужно только при изменении.
func (p *Program) ShouldRerun(baseLayerKey uint64) bool {
	if baseLayerKey == p.baseKey {
		return false
	}
	p.baseKey = baseLayerKey
	return true
}

func parseInts(fields []string) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("некорректное число %q: %w", f, err)
		}
		out[i] = v
	}
	return out, nil
}

