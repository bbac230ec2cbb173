package voxel

import (
	"encoding/binary"

	"github.com/annel0/voxedit/internal/vec"
	"github.com/cespare/xxhash/v2"
)

// emptyMeshKey — ключ пустого меша. Произвольная константа, чтобы
// пустой меш отличался от нулевого значения uint64.
const emptyMeshKey uint64 = 0x9e3779b97f4a7c15

// blockContrib возвращает вклад блока в ключ меша: хеш от координаты
// блока и хеша его содержимого. Вклады комбинируются XOR-ом, поэтому
// ключ не зависит от порядка обхода и обновляется за O(1) на блок.
func blockContrib(coord vec.Vec3, contentHash uint64) uint64 {
	var buf [32]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(int64(coord.X)))
	binary.LittleEndian.PutUint64(buf[8:], uint64(int64(coord.Y)))
	binary.LittleEndian.PutUint64(buf[16:], uint64(int64(coord.Z)))
	binary.LittleEndian.PutUint64(buf[24:], contentHash)
	return xxhash.Sum64(buf[:])
}

// CombineKeys сворачивает несколько ключей в один. Порядок аргументов
// значим: используется для ключей слоёв, камер и изображения.
func CombineKeys(parts ...uint64) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint64(buf[:], p)
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// HashBytes возвращает xxhash от произвольных данных
func HashBytes(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// HashString возвращает xxhash от строки
func HashString(s string) uint64 {
	return xxhash.Sum64String(s)
}
