package probe

import "runtime"

// defaultGOOS is split out so tests can document the override point.
var defaultGOOS = runtime.GOOS
