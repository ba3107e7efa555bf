/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
)

func humanReadableSize(bytes int64) string {
	const unit = 1000

	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	size := float64(bytes)
	suffix := 0
	for size >= unit*unit && suffix < len("kMGTPE")-1 {
		size /= unit
		suffix++
	}

	return fmt.Sprintf("%.1f %cB", size/unit, "kMGTPE"[suffix])
}
