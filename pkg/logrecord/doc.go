// Package logrecord reads multi-line log records from timestamped log files and writes them in
// the merged output format.
//
// # Input Format
//
// A physical line starts a new record if its first or second whitespace separated field is a
// timestamp token:
//
//	20220128/233741.111222 worker started
//	node-1 20220128/233741.111222 worker started
//
// Where:
//
//   - The token has the shape YYYYMMDD/HHMMSS.ffffff. One to six fraction digits are accepted,
//     so the resolution is one microsecond.
//   - The token is followed by whitespace or ends the line.
//   - A leading identifier (second form) is any run of non-whitespace characters.
//
// Every other line is a continuation line. It belongs to the record opened by the closest
// preceding record-starting line:
//
//	20220128/233741.111222 request failed
//	    at handler.go:12
//	    at server.go:80
//	20220128/233742.000000 next record
//
// The first line of an input must start a record. If it does not, or if a record-starting
// token is not a valid date-time (for example 20221340/250000.0), reading fails with a
// *ParseError that carries the source name, the physical line number and the line text.
//
// # Output Format
//
// Each record is written as
//
//	source first-line\n
//	continuation-line\n
//	...
//
// The source name and a single space prefix the first line only. Continuation lines are copied
// verbatim. Every record ends with exactly one newline.
package logrecord
