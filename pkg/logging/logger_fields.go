package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Field helpers for common routing-control identifiers

func Component(name string) Field {
	return String("component", name)
}

func Prefix(p string) Field {
	return String("prefix", p)
}

func Peer(id string) Field {
	return String("peer", id)
}

func NextHop(nh string) Field {
	return String("next_hop", nh)
}

func Router(id string) Field {
	return String("router", id)
}

func Version(v uint64) Field {
	return Uint64("version", v)
}

func Operation(op string) Field {
	return String("operation", op)
}

func EventType(t string) Field {
	return String("event_type", t)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}

func Attempt(n int) Field {
	return Int("attempt", n)
}
