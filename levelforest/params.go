package levelforest

import (
	"errors"
	"fmt"
)

// ErrConfiguration reports an invalid training parameter, a spec §7
// Configuration error, fatal at construction.
var ErrConfiguration = errors.New("levelforest: invalid configuration")

// Params are the four training parameters spec §6 tabulates.
type Params struct {
	// NumOfTrees is the number of trees in the forest. Must be >= 1.
	NumOfTrees int
	// TreeDepth is the max depth a tree may grow to. Must be >= 1.
	TreeDepth int
	// MinimumNumOfSamples is the leaf threshold by count. Must be >= 1.
	MinimumNumOfSamples int
	// MinimumInformationGain is the leaf threshold by gain. Must be >= 0.
	MinimumInformationGain float64
}

// Validate reports ErrConfiguration if any parameter violates spec §6's
// constraints.
func (p Params) Validate() error {
	if p.NumOfTrees < 1 {
		return fmt.Errorf("%w: num_of_trees must be >= 1, got %d", ErrConfiguration, p.NumOfTrees)
	}
	if p.TreeDepth < 1 {
		return fmt.Errorf("%w: tree_depth must be >= 1, got %d", ErrConfiguration, p.TreeDepth)
	}
	if p.MinimumNumOfSamples < 1 {
		return fmt.Errorf("%w: minimum_num_of_samples must be >= 1, got %d", ErrConfiguration, p.MinimumNumOfSamples)
	}
	if p.MinimumInformationGain < 0 {
		return fmt.Errorf("%w: minimum_information_gain must be >= 0, got %f", ErrConfiguration, p.MinimumInformationGain)
	}
	return nil
}
