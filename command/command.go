// Package command maps wire Frames to the four operations the server
// understands (PING, GET, SET, DELETE) and drives them against a Store.
package command

import "strings"

import "github.com/launix-de/kvdaemon/connection"
import "github.com/launix-de/kvdaemon/frame"

// Store is the subset of the storage engine the command layer depends on.
// Kept as an interface here (rather than importing engine's concrete type)
// so command dispatch can be tested against a fake without touching disk.
type Store interface {
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	Delete(key string) (existed bool, err error)
}

// Kind identifies which of the four request shapes a Command carries.
type Kind int

const (
	Ping Kind = iota
	Get
	Set
	Delete
)

// Command is the parsed, typed form of one request Array frame.
type Command struct {
	Kind  Kind
	Key   string
	Value []byte
}

// FromFrame parses a request Array frame into a Command. Missing arguments
// or trailing unexpected elements are protocol errors, per the wire grammar:
// strict parsing here is what lets the server close a misbehaving connection
// instead of guessing at intent.
func FromFrame(f frame.Frame) (Command, error) {
	if f.Kind != frame.KindArray || len(f.Array) == 0 {
		return Command{}, &frame.ProtocolError{Msg: "request frame must be a non-empty array"}
	}

	name, err := elementString(f.Array[0])
	if err != nil {
		return Command{}, err
	}
	name = strings.ToLower(name)

	switch name {
	case "ping":
		if len(f.Array) != 1 {
			return Command{}, &frame.ProtocolError{Msg: "ping takes no arguments"}
		}
		return Command{Kind: Ping}, nil

	case "get":
		if len(f.Array) != 2 {
			return Command{}, &frame.ProtocolError{Msg: "get requires exactly one argument"}
		}
		key, err := elementString(f.Array[1])
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: Get, Key: key}, nil

	case "set":
		if len(f.Array) != 3 {
			return Command{}, &frame.ProtocolError{Msg: "set requires exactly two arguments"}
		}
		key, err := elementString(f.Array[1])
		if err != nil {
			return Command{}, err
		}
		value, err := elementBytes(f.Array[2])
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: Set, Key: key, Value: value}, nil

	case "delete":
		if len(f.Array) != 2 {
			return Command{}, &frame.ProtocolError{Msg: "delete requires exactly one argument"}
		}
		key, err := elementString(f.Array[1])
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: Delete, Key: key}, nil

	default:
		return Command{}, &frame.ProtocolError{Msg: "unknown command " + name}
	}
}

func elementString(f frame.Frame) (string, error) {
	switch f.Kind {
	case frame.KindSimple:
		return f.Simple, nil
	case frame.KindBulk:
		return string(f.Bulk), nil
	default:
		return "", &frame.ProtocolError{Msg: "expected a simple or bulk string argument"}
	}
}

func elementBytes(f frame.Frame) ([]byte, error) {
	switch f.Kind {
	case frame.KindBulk:
		return f.Bulk, nil
	case frame.KindSimple:
		return []byte(f.Simple), nil
	default:
		return nil, &frame.ProtocolError{Msg: "expected a simple or bulk string argument"}
	}
}

// Apply executes c against store and writes exactly one response frame to
// conn. It does not own any state beyond what's passed in.
func (c Command) Apply(conn *connection.Connection, store Store) error {
	switch c.Kind {
	case Ping:
		return conn.WriteFrame(frame.Simple("PONG"))

	case Get:
		value, ok, err := store.Get(c.Key)
		if err != nil {
			return conn.WriteFrame(frame.Error(frame.InternalError))
		}
		if !ok {
			return conn.WriteFrame(frame.Error(frame.NotFound))
		}
		return conn.WriteFrame(frame.Bulk(value))

	case Set:
		if err := store.Set(c.Key, c.Value); err != nil {
			return conn.WriteFrame(frame.Error(frame.InternalError))
		}
		return conn.WriteFrame(frame.Simple("OK"))

	case Delete:
		existed, err := store.Delete(c.Key)
		if err != nil {
			return conn.WriteFrame(frame.Error(frame.InternalError))
		}
		if !existed {
			return conn.WriteFrame(frame.Error(frame.NotFound))
		}
		return conn.WriteFrame(frame.Simple("OK"))

	default:
		panic("command: Apply on a Command with unknown Kind")
	}
}
