package engine

import "testing"

func TestRecordSerializeDecodeRoundTrip(t *testing.T) {
	value := "hello"
	rec := Record{Key: "k", Value: &value, Timestamp: 1234, IsTombstone: false}

	b, err := rec.serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if b[len(b)-1] != '\n' {
		t.Fatal("serialized record does not end in newline")
	}

	got, err := decodeRecord(b)
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}
	if got.Key != rec.Key || got.Timestamp != rec.Timestamp || got.IsTombstone != rec.IsTombstone {
		t.Fatalf("got %+v, want %+v", got, rec)
	}
	if got.Value == nil || *got.Value != value {
		t.Fatalf("got value %v, want %q", got.Value, value)
	}
}

func TestRecordTombstoneHasNilValue(t *testing.T) {
	rec := Record{Key: "k", Value: nil, Timestamp: 1, IsTombstone: true}
	b, err := rec.serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	got, err := decodeRecord(b)
	if err != nil {
		t.Fatalf("decodeRecord: %v", err)
	}
	if !got.IsTombstone || got.Value != nil {
		t.Fatalf("got %+v, want tombstone with nil value", got)
	}
}

func TestDecodeRecordRejectsGarbage(t *testing.T) {
	if _, err := decodeRecord([]byte("not json\n")); err == nil {
		t.Fatal("decodeRecord accepted non-JSON input")
	}
}
