package frame

import "io"
import "strconv"

// EncodeTo writes f's wire representation to w. Arrays recurse into their
// elements; every other kind writes its descriptor, payload and trailing
// CRLF directly. Callers that want buffering/flushing (the common case over
// a socket) should pass a *bufio.Writer and flush once after EncodeTo
// returns, matching the one-flush-per-frame discipline the connection layer
// relies on.
func EncodeTo(w io.Writer, f Frame) error {
	switch f.Kind {
	case KindArray:
		if err := writeByte(w, descArray); err != nil {
			return err
		}
		if err := writeDecimalLine(w, uint64(len(f.Array))); err != nil {
			return err
		}
		for _, item := range f.Array {
			if err := EncodeTo(w, item); err != nil {
				return err
			}
		}
		return nil
	case KindSimple:
		if err := writeByte(w, descSimple); err != nil {
			return err
		}
		return writeLine(w, []byte(f.Simple))
	case KindError:
		if err := writeByte(w, descError); err != nil {
			return err
		}
		return writeLine(w, []byte(f.ErrKind.String()))
	case KindInteger:
		if err := writeByte(w, descInteger); err != nil {
			return err
		}
		return writeDecimalLine(w, f.Integer)
	case KindBulk:
		if err := writeByte(w, descBulk); err != nil {
			return err
		}
		if err := writeDecimalLine(w, uint64(len(f.Bulk))); err != nil {
			return err
		}
		return writeLine(w, f.Bulk)
	default:
		panic("frame: encode of unknown kind")
	}
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func writeLine(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}

func writeDecimalLine(w io.Writer, v uint64) error {
	return writeLine(w, []byte(strconv.FormatUint(v, 10)))
}
