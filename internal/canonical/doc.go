// Package canonical renders plain Go values as canonical JSON and derives
// domain-separated content hashes from them.
//
// The output follows RFC 8785 ordering rules: object keys sort by UTF-16 code
// units, strings are NFC normalized, and HTML characters are left unescaped.
// Floats and nulls are rejected so that two equal values always hash the same.
//
// Template fingerprints and golden mutation traces are both built on this
// package. It imports nothing internal.
package canonical
