package cooccur

import "math"

// Jaccard returns the share of records containing a or b that contain both
//
// J(a,b) = N_ab / (N_a + N_b - N_ab)
//
// It is symmetric and 0 when the pair never co-occurs or both counts are 0.
func (c *Counter) Jaccard(a, b string) float64 {
	return Jaccard(c.PairCount(a, b), c.Count(a), c.Count(b))
}

// Jaccard computes the similarity from raw counts
func Jaccard(nAB, nA, nB int64) float64 {
	denom := nA + nB - nAB
	if denom <= 0 {
		return 0
	}
	return float64(nAB) / float64(denom)
}

// NPMI returns normalised pointwise mutual information in [-1, 1] with
// add-one smoothing, 0 for pairs that never co-occur.
//
// PMI(a,b)  = log((N_ab + ε) * N / ((N_a + ε)(N_b + ε)))
// NPMI(a,b) = PMI(a,b) / -log(P(a,b))
func (c *Counter) NPMI(a, b string) float64 {
	return NPMI(c.PairCount(a, b), c.Count(a), c.Count(b), c.N)
}

// NPMI computes normalised PMI from raw counts
func NPMI(nAB, nA, nB, n int64) float64 {
	const eps = 1.0
	if n == 0 || nAB == 0 {
		return 0
	}
	num := (float64(nAB) + eps) * float64(n)
	den := (float64(nA) + eps) * (float64(nB) + eps)
	pmi := math.Log(num / den)

	logPAB := math.Log((float64(nAB) + eps) / float64(n))
	if logPAB >= 0 {
		return 1
	}
	return math.Max(-1, math.Min(1, pmi/-logPAB))
}
