package seqmodel

import "math"

// PositionalTable precomputes the fixed sinusoidal encoding for positions
// [0, maxLen): index 2i holds sin(p / 10000^(2i/d)), index 2i+1 holds the
// matching cosine. The table is built once for the longest token sequence a
// model will ever see and sliced to the actual token count.
func PositionalTable(maxLen, dModel int) [][]float32 {
	table := make([][]float32, maxLen)
	for p := 0; p < maxLen; p++ {
		row := make([]float32, dModel)
		for i := 0; i < dModel; i += 2 {
			angle := float64(p) / math.Pow(10000, float64(i)/float64(dModel))
			row[i] = float32(math.Sin(angle))
			if i+1 < dModel {
				row[i+1] = float32(math.Cos(angle))
			}
		}
		table[p] = row
	}
	return table
}
