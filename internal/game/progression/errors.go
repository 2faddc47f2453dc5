package progression

import "errors"

var (
	// ErrUnknownSkill is returned for a skill name outside AllSkills.
	ErrUnknownSkill = errors.New("unknown skill")
	// ErrNegativeAmount is returned when an operation only accepts amounts >= 0.
	ErrNegativeAmount = errors.New("amount must not be negative")
	// ErrInsufficientEnergy is returned when spending more energy than available.
	ErrInsufficientEnergy = errors.New("insufficient energy")
	// ErrInsufficientItems is returned when removing more items than held.
	ErrInsufficientItems = errors.New("insufficient items")
	// ErrPlotIndex is returned for a plot index outside [0, PlotCount).
	ErrPlotIndex = errors.New("plot index out of range")
	// ErrInvalidPlot is returned when a plot violates the plot invariants.
	ErrInvalidPlot = errors.New("invalid plot")
)
