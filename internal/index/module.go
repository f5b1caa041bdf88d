package index

import "go.uber.org/fx"

// Module provides the reactive order index and its stats aggregator.
var Module = fx.Provide(
	NewStatsAggregator,
	New,
)
