// Package convert builds a patient repository from raw per-signal text files.
//
// A run reads a directive file (see Config), loads the dictionaries and the
// signal catalog, and then performs a k-way merge over every input file. All
// inputs are sorted by leading patient id; each merge step takes the smallest
// pending pid, collects that patient's lines from every file positioned on it,
// and hands the decoded, sorted and de-duplicated records to the writer.
//
// Three input kinds are understood:
//
//	registry  pid <tab> date <tab> location <tab> stage
//	numeric   pid code field...          (tab or space separated)
//	string    pid code field... value    (tab separated, value from the
//	                                      dictionary section of the signal)
//
// Per-line problems are counted and judged at the end against Thresholds.
// Configuration, IO and threshold failures abort the run; every output file
// the run created is then removed and no repository_config is written.
package convert
