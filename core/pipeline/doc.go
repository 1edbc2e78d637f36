// Package pipeline runs the five inference stages for one sensor reading.
//
// Stage graph:
//
//	soc ──► range
//	low_battery
//	discharge
//	health
//
// Range consumes the state of charge and is the only ordering constraint. In
// concurrent mode the soc→range chain and the three independent stages run on
// their own goroutines and are joined before aggregation. A run is
// all-or-nothing: the first failure cancels the remaining stages and no
// partial result is returned.
package pipeline
