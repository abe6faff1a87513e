package noise

import "math/rand"

const (
	f4 = 0.30901699437494745 // (sqrt(5)-1)/4
	g4 = 0.1381966011250105  // (5-sqrt(5))/20
)

var grad4 = [32][4]float64{
	{0, 1, 1, 1}, {0, 1, 1, -1}, {0, 1, -1, 1}, {0, 1, -1, -1},
	{0, -1, 1, 1}, {0, -1, 1, -1}, {0, -1, -1, 1}, {0, -1, -1, -1},
	{1, 0, 1, 1}, {1, 0, 1, -1}, {1, 0, -1, 1}, {1, 0, -1, -1},
	{-1, 0, 1, 1}, {-1, 0, 1, -1}, {-1, 0, -1, 1}, {-1, 0, -1, -1},
	{1, 1, 0, 1}, {1, 1, 0, -1}, {1, -1, 0, 1}, {1, -1, 0, -1},
	{-1, 1, 0, 1}, {-1, 1, 0, -1}, {-1, -1, 0, 1}, {-1, -1, 0, -1},
	{1, 1, 1, 0}, {1, 1, -1, 0}, {1, -1, 1, 0}, {1, -1, -1, 0},
	{-1, 1, 1, 0}, {-1, 1, -1, 0}, {-1, -1, 1, 0}, {-1, -1, -1, 0},
}

// Simplex is a seeded 4D simplex noise. The permutation table is shuffled
// once from the seed and never touched again, so a *Simplex is safe for
// concurrent use.
type Simplex struct {
	perm [512]uint8
}

// NewSimplex builds the permutation table for seed.
func NewSimplex(seed int64) *Simplex {
	s := &Simplex{}
	r := rand.New(rand.NewSource(seed))
	var p [256]uint8
	for i := range p {
		p[i] = uint8(i)
	}
	for i := 255; i > 0; i-- {
		j := r.Intn(i + 1)
		p[i], p[j] = p[j], p[i]
	}
	for i := range s.perm {
		s.perm[i] = p[i&255]
	}
	return s
}

func fastFloor(x float64) int {
	i := int(x)
	if x < float64(i) {
		return i - 1
	}
	return i
}

// Sample4D returns simplex noise in roughly [-1, 1].
func (s *Simplex) Sample4D(x, y, z, w float64) float64 {
	in := [4]float64{x, y, z, w}

	// Skew into the simplex lattice and find the containing cell.
	skew := (x + y + z + w) * f4
	var cell [4]int
	cellSum := 0
	for a := range in {
		cell[a] = fastFloor(in[a] + skew)
		cellSum += cell[a]
	}
	unskew := float64(cellSum) * g4

	var d0 [4]float64
	for a := range in {
		d0[a] = in[a] - (float64(cell[a]) - unskew)
	}

	// Rank the axes by magnitude of the offset; the rank decides in which
	// order the walk through the simplex corners steps along each axis.
	var rank [4]int
	for a := 0; a < 4; a++ {
		for b := a + 1; b < 4; b++ {
			if d0[a] > d0[b] {
				rank[a]++
			} else {
				rank[b]++
			}
		}
	}

	var masked [4]int
	for a := range cell {
		masked[a] = cell[a] & 255
	}

	sum := 0.0
	for corner := 0; corner < 5; corner++ {
		var step [4]int
		var d [4]float64
		for a := range d {
			if rank[a] >= 4-corner {
				step[a] = 1
			}
			d[a] = d0[a] - float64(step[a]) + float64(corner)*g4
		}

		falloff := 0.6 - d[0]*d[0] - d[1]*d[1] - d[2]*d[2] - d[3]*d[3]
		if falloff <= 0 {
			continue
		}
		falloff *= falloff

		gi := s.hash(masked, step) % 32
		g := grad4[gi]
		sum += falloff * falloff * (g[0]*d[0] + g[1]*d[1] + g[2]*d[2] + g[3]*d[3])
	}

	return 27.0 * sum
}

func (s *Simplex) hash(cell, step [4]int) uint8 {
	h := s.perm[cell[3]+step[3]]
	h = s.perm[cell[2]+step[2]+int(h)]
	h = s.perm[cell[1]+step[1]+int(h)]
	return s.perm[cell[0]+step[0]+int(h)]
}
