//go:build windows

package main

import "os"

// only os.Interrupt is delivered reliably on Windows
var shutdownSignals = []os.Signal{os.Interrupt}
