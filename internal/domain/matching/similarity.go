package matching

import "math"

// Cosine devuelve dot(a,b)/(|a|·|b|) en [-1,1].
// Dimensiones distintas o vectores nulos devuelven 0.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	c := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// redondeo numérico puede pasar apenas de 1
	if c > 1 {
		return 1
	}
	if c < -1 {
		return -1
	}
	return c
}

// ImageSimilarity es Cosine recortado a [0,1] para reportar.
func ImageSimilarity(a, b []float64) float64 {
	return clampUnit(Cosine(a, b))
}

func clampUnit(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// BestOf devuelve la mejor similitud de query contra cualquiera de los vectores.
// Se usa la mejor imagen (no el promedio): un perfil acumula fotos con poses distintas.
func BestOf(query []float64, vectors [][]float64) (idx int, score float64) {
	idx = -1
	for i, v := range vectors {
		s := ImageSimilarity(query, v)
		if idx == -1 || s > score {
			idx, score = i, s
		}
	}
	return idx, score
}
