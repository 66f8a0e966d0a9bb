package tui

import "time"

const (
	// Used until the first WindowSizeMsg arrives.
	DefaultWidth  = 80
	DefaultHeight = 24

	// Requests from bridges queue here before reaching the program.
	UpdateChannelBufferSize = 100

	DefaultLoadingTimeout = 15 * time.Second

	// Rows of the estimates list shown at once.
	MaxVisibleRows = 14
)
