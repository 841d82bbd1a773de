package fibonacci

// ProgressUpdate carries the progress of one calculator to the UI.
type ProgressUpdate struct {
	// CalculatorIndex identifies the calculator among those running concurrently.
	CalculatorIndex int
	// Value is the normalized progress, from 0.0 to 1.0.
	Value float64
}

// ProgressReporter is a progress callback taking a value in [0, 1].
type ProgressReporter func(progress float64)
