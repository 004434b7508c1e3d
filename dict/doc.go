// Package dict implements the code dictionaries of a patient repository.
//
// A Dictionary maps names to integer codes and back, and records named set
// membership (for example drug classes). A code may carry several names; the
// first name read for a code is its official name.
//
// Dictionary files are line oriented. Fields are tab separated when the line
// contains a tab, otherwise whitespace separated:
//
//	# comment
//	SECTION	DRUG,Drug_Class
//	DEF	100	ATC_A10
//	DEF	100	Metformin        (alias)
//	SET	ATC_A10	Diabetes_Drugs   (member, set)
//	100	ATC_A10                   (bare DEF)
//
// Sections partition the code space into independent namespaces. Section 0 is
// named "DEFAULT". A file joins a non-default section when a SECTION directive
// appears within its first 100 lines; a comma separated list names aliases of
// the same section.
//
// Lookups report absence with the comma-ok form rather than an error: an
// unknown name is an ordinary outcome for callers decoding raw data.
package dict
