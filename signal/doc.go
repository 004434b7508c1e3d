// Package signal defines the signal catalog and the fixed-width record types
// stored in a patient repository.
//
// # Record Types
//
// Every signal is declared with one of twelve type tags. Each tag has exactly one
// binary layout (little-endian, C struct padding, padding bytes zero):
//
//	Tag  Name              Fields                               Size
//	0    T_Value           val:f32                              4
//	1    T_DateVal         date:i32 val:f32                     8
//	2    T_TimeVal         time:i64 val:f32                     16
//	3    T_DateRangeVal    date:i32 date2:i32 val:f32           12
//	4    T_TimeStamp       time:u64                             8
//	5    T_TimeRangeVal    time:i64 time2:i64 val:f32           24
//	6    T_DateVal2        date:i32 val:f32 val2:u16            12
//	7    T_TimeLongVal     time:i64 long:i64                    16
//	8    T_DateShort2      date:i32 s1:i16 s2:i16               8
//	9    T_ValShort2       s1:i16 s2:i16                        4
//	10   T_ValShort4       s1:i16 s2:i16 s3:i16 s4:i16          8
//	11   T_CompactDateVal  cdate:u16 val:u16                    4
//
// The layout table in layout.go is the only place that knows these layouts: the
// converter's text decoding, the writer's binary encoding, the catalog's byte
// lengths and the repository reader's decoding all go through it.
//
// # Catalog
//
// A Catalog is loaded from signal files with lines of the form
//
//	SIGNAL	<name>	<sid>	<type>	[description]
//
// Lines with other directives are ignored, so a signal file can also be loaded
// as a dictionary file. A Catalog is read-only once loaded and safe for
// concurrent readers.
package signal
