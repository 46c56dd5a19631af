package domain

import "errors"

// errNoLaunchTemplate is returned when a Strategy carries neither a
// per-service nor a global launch template.
var errNoLaunchTemplate = errors.New("strategy must define at least one launch template")

// errServiceNoTests is returned when a Service has an empty test list.
var errServiceNoTests = errors.New("service must define at least one test")
