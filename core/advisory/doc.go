// Package advisory defines the boundary to the external advisory service.
// The service turns a data snapshot into a recommendation or prediction; how
// it reasons is opaque to the simulator. Calls may fail at any time, and the
// simulator treats every failure as "no update this cycle".
package advisory
