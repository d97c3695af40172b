package main

import (
	"sort"
	"strings"

	"github.com/pkg/profile"
)

var pprofMode = map[string]func(*profile.Profile){
	"block":     profile.BlockProfile,
	"cpu":       profile.CPUProfile,
	"goroutine": profile.GoroutineProfile,
	"mem":       profile.MemProfile,
	"allocs":    profile.MemProfileAllocs,
	"heap":      profile.MemProfileHeap,
	"mutex":     profile.MutexProfile,
	"thread":    profile.ThreadcreationProfile,
	"trace":     profile.TraceProfile,
}

// pprofModes is the value of the pprof flag enum, the empty mode disables
// profiling.
func pprofModes() string {
	modes := make([]string, 0, len(pprofMode)+1)
	for m := range pprofMode {
		modes = append(modes, m)
	}
	sort.Strings(modes)
	return "," + strings.Join(modes, ",")
}

// startPprof profiles the process in mode until the returned function is
// called. Unknown modes do nothing.
func startPprof(mode, dir string) (stop func()) {
	fn, ok := pprofMode[mode]
	if !ok {
		return func() {}
	}
	opts := []func(*profile.Profile){fn, profile.Quiet, profile.NoShutdownHook}
	if dir != "" {
		opts = append(opts, profile.ProfilePath(dir))
	}
	return profile.Start(opts...).Stop
}
