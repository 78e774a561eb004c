package table

import "strings"

// missingTokens are cell values read as "no value". The set matches what
// spreadsheet-style CSV loaders treat as NA by default.
var missingTokens = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

// IsMissing reports whether a raw cell value stands for an absent value.
func IsMissing(v string) bool {
	return missingTokens[strings.TrimSpace(v)]
}

// Cell returns the trimmed value of a cell, or "" when it is missing.
func Cell(v string) string {
	if IsMissing(v) {
		return ""
	}
	return strings.TrimSpace(v)
}
