package format

import (
	"path/filepath"
	"strings"
)

// DefaultPrefix names per-signal outputs when the config sets no PREFIX.
const DefaultPrefix = "rep"

var signalNameReplacer = strings.NewReplacer("/", "_", ":", "_", "%", "_")

// SanitizeSignalName makes a signal name safe for use in a file name.
func SanitizeSignalName(name string) string {
	return signalNameReplacer.Replace(name)
}

// SignalPrefix returns the per-signal output prefix relative to the output
// directory.
func SignalPrefix(prefix, signalName string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + "_" + SanitizeSignalName(signalName)
}

// IndexFile returns the index file name for an output prefix.
func IndexFile(prefix string) string { return prefix + ".idx" }

// DataFile returns the data file name for an output prefix.
func DataFile(prefix string) string { return prefix + ".data" }

// AllPidsFile returns the path of the all-pids list.
func AllPidsFile(dir, prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return filepath.Join(dir, prefix+"_all_pids.list")
}
