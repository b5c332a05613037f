package kiosk

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var rawVersion string

// Version is the released version of the kiosk engine.
var Version = strings.TrimSpace(rawVersion)
