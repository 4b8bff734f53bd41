package dice

// ChiSquare returns the Pearson goodness-of-fit statistic of freq against a
// uniform distribution over its keys. Empty or all-zero tables return 0.
func ChiSquare(freq map[int]int) float64 {
	total := 0
	for _, c := range freq {
		total += c
	}
	if total == 0 || len(freq) == 0 {
		return 0
	}
	expected := float64(total) / float64(len(freq))
	var stat float64
	for _, c := range freq {
		d := float64(c) - expected
		stat += d * d / expected
	}
	return stat
}

// chiSquare05 holds the chi-square critical values at p = 0.05 for 1..30
// degrees of freedom.
var chiSquare05 = [...]float64{
	3.841, 5.991, 7.815, 9.488, 11.070, 12.592, 14.067, 15.507, 16.919, 18.307,
	19.675, 21.026, 22.362, 23.685, 24.996, 26.296, 27.587, 28.869, 30.144, 31.410,
	32.671, 33.924, 35.172, 36.415, 37.652, 38.885, 40.113, 41.337, 42.557, 43.773,
}

// ChiSquareCritical05 returns the critical value for df degrees of freedom at
// the 0.05 significance level. A statistic below it means the p-value is
// above 0.05. ok is false when df is outside [1, 30].
func ChiSquareCritical05(df int) (value float64, ok bool) {
	if df < 1 || df > len(chiSquare05) {
		return 0, false
	}
	return chiSquare05[df-1], true
}
