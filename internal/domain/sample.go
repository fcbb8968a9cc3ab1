// Package domain holds the data types shared between collectors and publishers.
package domain

// Sample is a single counter reading taken at one collection tick.
// It is immutable once produced.
type Sample struct {
	Name      string
	Value     float64
	Timestamp int64
}
