package vec

// BlockShift — степень двойки размера блока (16 = 1<<4).
const BlockShift = 4

// ToBlockCoords преобразует глобальные координаты вокселя в координаты
// блока, выровненные по сетке 16.
func (v Vec3) ToBlockCoords() Vec3 {
	return Vec3{
		X: (v.X >> BlockShift) << BlockShift,
		Y: (v.Y >> BlockShift) << BlockShift,
		Z: (v.Z >> BlockShift) << BlockShift,
	}
}

// LocalInBlock возвращает локальные координаты вокселя внутри его блока
func (v Vec3) LocalInBlock() Vec3 {
	return Vec3{X: v.X & 0xF, Y: v.Y & 0xF, Z: v.Z & 0xF}
}

// Box представляет целочисленный AABB [Min, Max) в координатах вокселей.
// Пустой бокс обозначается Empty == true.
type Box struct {
	Min   Vec3 `json:"min"`
	Max   Vec3 `json:"max"`
	Empty bool `json:"empty"`
}

// EmptyBox возвращает пустой бокс
func EmptyBox() Box {
	return Box{Empty: true}
}

// Extend расширяет бокс так, чтобы он включал точку p
func (b Box) Extend(p Vec3) Box {
	if b.Empty {
		return Box{Min: p, Max: p.Add(Vec3{X: 1, Y: 1, Z: 1})}
	}
	return Box{
		Min: b.Min.Min(p),
		Max: b.Max.Max(p.Add(Vec3{X: 1, Y: 1, Z: 1})),
	}
}

// Union объединяет два бокса
func (b Box) Union(other Box) Box {
	if b.Empty {
		return other
	}
	if other.Empty {
		return b
	}
	return Box{Min: b.Min.Min(other.Min), Max: b.Max.Max(other.Max)}
}

// Contains проверяет, лежит ли точка внутри бокса
func (b Box) Contains(p Vec3) bool {
	if b.Empty {
		return false
	}
	return p.X >= b.Min.X && p.X < b.Max.X &&
		p.Y >= b.Min.Y && p.Y < b.Max.Y &&
		p.Z >= b.Min.Z && p.Z < b.Max.Z
}
