package ai

import (
	"log"
	"os"
	"strings"
)

var aiDebugEnabled = strings.EqualFold(os.Getenv("QUICKREF_DEBUG"), "1")

func debugLog(format string, args ...interface{}) {
	if aiDebugEnabled {
		log.Printf(format, args...)
	}
}
