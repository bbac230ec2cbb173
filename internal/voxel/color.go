package voxel

import (
	"fmt"
	"strconv"
)

// ParseColor разбирает цвет вида "#rrggbb" или "#rrggbbaa".
// Без альфа-компоненты подразумевается непрозрачный цвет.
func ParseColor(s string) (Color, error) {
	if len(s) == 0 || s[0] != '#' || (len(s) != 7 && len(s) != 9) {
		return Empty, fmt.Errorf("некорректный цвет %q", s)
	}
	var c Color
	c[3] = 255
	for i := 0; i*2+2 < len(s); i++ {
		v, err := strconv.ParseUint(s[1+i*2:3+i*2], 16, 8)
		if err != nil {
			return Empty, fmt.Errorf("некорректный цвет %q: %w", s, err)
		}
		c[i] = uint8(v)
	}
	return c, nil
}

// Hex возвращает цвет в виде "#rrggbbaa".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c[0], c[1], c[2], c[3])
}
