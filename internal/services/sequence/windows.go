package sequence

import "math"

// Examples holds index-aligned windows and targets in chronological order.
// Anchors[k] is the position in the source series of Targets[k][0].
type Examples struct {
	Windows [][]float64
	Targets [][]float64
	Anchors []int
}

// Len returns the number of examples.
func (e *Examples) Len() int { return len(e.Windows) }

// BuildWindows slides one step at a time across normalized and emits one
// example per anchor i in [windowSize, len-horizon): the window is
// normalized[i-windowSize:i] and the target normalized[i:i+horizon].
func BuildWindows(normalized []float64, windowSize, horizon int) (*Examples, error) {
	if windowSize <= 0 {
		return nil, invalidRange("window size must be positive, got %d", windowSize)
	}
	if horizon <= 0 {
		return nil, invalidRange("forecast horizon must be positive, got %d", horizon)
	}
	required := windowSize + horizon + 1
	if len(normalized) < required {
		return nil, insufficient("build windows", required, len(normalized))
	}

	n := len(normalized) - windowSize - horizon
	ex := &Examples{
		Windows: make([][]float64, 0, n),
		Targets: make([][]float64, 0, n),
		Anchors: make([]int, 0, n),
	}
	for i := windowSize; i < len(normalized)-horizon; i++ {
		ex.Windows = append(ex.Windows, clone(normalized[i-windowSize:i]))
		ex.Targets = append(ex.Targets, clone(normalized[i:i+horizon]))
		ex.Anchors = append(ex.Anchors, i)
	}
	return ex, nil
}

// Split is a chronological train/eval partition. Index is the first eval
// position in the original example order.
type Split struct {
	TrainWindows [][]float64
	TrainTargets [][]float64
	EvalWindows  [][]float64
	EvalTargets  [][]float64
	Index        int
}

// TrainTestSplitChronological cuts windows/targets at floor(n*(1-testRatio)),
// clamped so both partitions hold at least one example. Order is preserved.
func TrainTestSplitChronological(windows, targets [][]float64, testRatio float64) (*Split, error) {
	if !(testRatio > 0 && testRatio < 1) {
		return nil, invalidRange("test ratio must be in (0, 1), got %v", testRatio)
	}
	if len(windows) != len(targets) {
		return nil, invalidRange("windows (%d) and targets (%d) differ in length", len(windows), len(targets))
	}
	n := len(windows)
	if n < 2 {
		return nil, insufficient("train test split", 2, n)
	}

	idx := int(math.Floor(float64(n) * (1 - testRatio)))
	if idx < 1 {
		idx = 1
	}
	if idx > n-1 {
		idx = n - 1
	}

	return &Split{
		TrainWindows: windows[:idx:idx],
		TrainTargets: targets[:idx:idx],
		EvalWindows:  windows[idx:n:n],
		EvalTargets:  targets[idx:n:n],
		Index:        idx,
	}, nil
}

// TrainLen returns the number of training examples.
func (s *Split) TrainLen() int { return len(s.TrainWindows) }

// EvalLen returns the number of evaluation examples.
func (s *Split) EvalLen() int { return len(s.EvalWindows) }

func clone(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	return out
}
