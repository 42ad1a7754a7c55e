package engine

import "encoding/json"

// Record is one JSON line of the data file. A nil Value is the only legal
// state for a tombstone; a live record normally carries a non-nil Value. The
// exception is a client value that is not valid UTF-8: normalizeValue (in
// normalize.go) turns it into a nil Value before the Record is constructed.
type Record struct {
	Key         string  `json:"key"`
	Value       *string `json:"value"`
	Timestamp   uint64  `json:"timestamp"`
	IsTombstone bool    `json:"is_tombstone"`
}

// serialize renders r as one data-file line: a JSON object followed by a
// single newline. The returned length is exactly what the index must later
// store as an entry's length (offset is assigned by the caller, the appender).
func (r Record) serialize() ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	b = append(b, '\n')
	return b, nil
}

// decodeRecord parses one data-file line, newline included or not — trailing
// whitespace after a JSON value is legal per encoding/json.
func decodeRecord(b []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return Record{}, err
	}
	return r, nil
}
