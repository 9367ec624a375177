package logprocessing

import (
	"github.com/faceair/drain"
)

// DrainConfig holds the parameters of the Drain parse tree.
type DrainConfig struct {
	// LogClusterDepth is the depth of the parse tree (minimum 3).
	LogClusterDepth int

	// SimTh is the token similarity needed to join an existing template.
	SimTh float64

	// MaxChildren limits branches per tree node.
	MaxChildren int

	// MaxClusters limits the number of templates (0 = unlimited).
	MaxClusters int

	// ExtraDelimiters are token separators in addition to whitespace.
	ExtraDelimiters []string

	// ParamString is the wildcard written into templates.
	ParamString string
}

// DefaultDrainConfig returns settings tuned for short application error
// messages. Error messages are terse, so the tree is shallow and the
// similarity threshold is looser than for verbose service logs.
func DefaultDrainConfig() DrainConfig {
	return DrainConfig{
		LogClusterDepth: 4,
		SimTh:           0.5,
		MaxChildren:     100,
		MaxClusters:     0,
		ExtraDelimiters: []string{"_", "=", ":"},
		ParamString:     Wildcard,
	}
}

// DrainProcessor wraps the Drain algorithm.
type DrainProcessor struct {
	drain *drain.Drain
}

// NewDrainProcessor creates a new Drain processor with the given configuration.
func NewDrainProcessor(config DrainConfig) *DrainProcessor {
	return &DrainProcessor{
		drain: drain.New(&drain.Config{
			LogClusterDepth: config.LogClusterDepth,
			SimTh:           config.SimTh,
			MaxChildren:     config.MaxChildren,
			MaxClusters:     config.MaxClusters,
			ExtraDelimiters: config.ExtraDelimiters,
			ParamString:     config.ParamString,
		}),
	}
}

// Train adds a message to the tree and returns its cluster.
func (dp *DrainProcessor) Train(message string) *drain.LogCluster {
	return dp.drain.Train(message)
}

// Match returns the best cluster for message without updating the tree.
func (dp *DrainProcessor) Match(message string) *drain.LogCluster {
	return dp.drain.Match(message)
}
