package engine

import "unicode/utf8"

// normalizeValue implements spec's set() step 1: valid UTF-8 is kept exactly
// as received, so get(key) returns the same bytes set(key, value) was given;
// anything else degrades to null, matching the original source's behavior
// (original_source/src/db.rs, set: String::from_utf8(value).ok()).
func normalizeValue(value []byte) *string {
	if !utf8.Valid(value) {
		return nil
	}
	s := string(value)
	return &s
}
