//go:build !windows

package main

import (
	"log"

	"latex-ocr/src/screenshot"
)

func enableDPIAwareness() {}

func logMonitorConfiguration() {
	if b, err := screenshot.VirtualBounds(); err == nil {
		log.Printf("MONITOR: Virtual screen - %v, primary %v", b, screenshot.PrimaryBounds())
	}
}
