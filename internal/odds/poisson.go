package odds

import "math"

// poissonPMF evaluates P[X = k] for X ~ Poisson(lambda) in log space to stay
// stable for larger k.
func poissonPMF(k int, lambda float64) float64 {
	if lambda <= 0 {
		if k == 0 {
			return 1.0
		}
		return 0.0
	}
	logP := float64(k)*math.Log(lambda) - lambda - logFactorial(k)
	return math.Exp(logP)
}

// poissonCDF evaluates P[X <= k].
func poissonCDF(k int, lambda float64) float64 {
	sum := 0.0
	for i := 0; i <= k; i++ {
		sum += poissonPMF(i, lambda)
	}
	return sum
}

func logFactorial(n int) float64 {
	if n <= 1 {
		return 0
	}
	sum := 0.0
	for i := 2; i <= n; i++ {
		sum += math.Log(float64(i))
	}
	return sum
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
