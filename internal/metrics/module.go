package metrics

import "go.uber.org/fx"

// Module provides the Prometheus collectors.
var Module = fx.Provide(New)
