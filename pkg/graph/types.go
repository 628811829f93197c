package graph

import (
	"encoding/json"
	"fmt"
	"time"
)

// NodeID identifies a node. IDs are caller-assigned and stable: a prefix
// CIDR, a router ID, a peer address.
type NodeID string

// PeerID identifies the peer a piece of state was learned from. Edges
// carrying the same (from, to, kind) from different peers are distinct.
type PeerID string

// Kind is a node or edge type tag
type Kind string

// Version is the store's monotonically increasing commit counter
type Version uint64

// ValueType represents the type of an attribute value
type ValueType uint8

const (
	TypeString ValueType = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeStringList
)

// Value represents a typed attribute value
type Value struct {
	Type  ValueType
	Str   string
	Int   int64
	Float float64
	Bool  bool
	List  []string
}

// Helper functions to create typed values
func StringValue(s string) Value {
	return Value{Type: TypeString, Str: s}
}

func IntValue(i int64) Value {
	return Value{Type: TypeInt, Int: i}
}

func FloatValue(f float64) Value {
	return Value{Type: TypeFloat, Float: f}
}

func BoolValue(b bool) Value {
	return Value{Type: TypeBool, Bool: b}
}

func StringListValue(list []string) Value {
	cp := make([]string, len(list))
	copy(cp, list)
	return Value{Type: TypeStringList, List: cp}
}

// Decode methods
func (v Value) AsString() (string, error) {
	if v.Type != TypeString {
		return "", fmt.Errorf("value is not a string")
	}
	return v.Str, nil
}

func (v Value) AsInt() (int64, error) {
	if v.Type != TypeInt {
		return 0, fmt.Errorf("value is not an int")
	}
	return v.Int, nil
}

func (v Value) AsFloat() (float64, error) {
	if v.Type != TypeFloat {
		return 0, fmt.Errorf("value is not a float")
	}
	return v.Float, nil
}

func (v Value) AsBool() (bool, error) {
	if v.Type != TypeBool {
		return false, fmt.Errorf("value is not a bool")
	}
	return v.Bool, nil
}

func (v Value) AsStringList() ([]string, error) {
	if v.Type != TypeStringList {
		return nil, fmt.Errorf("value is not a string list")
	}
	cp := make([]string, len(v.List))
	copy(cp, v.List)
	return cp, nil
}

// Equal reports whether two values have the same type and content
func (v Value) Equal(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case TypeString:
		return v.Str == other.Str
	case TypeInt:
		return v.Int == other.Int
	case TypeFloat:
		return v.Float == other.Float
	case TypeBool:
		return v.Bool == other.Bool
	case TypeStringList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if v.List[i] != other.List[i] {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON renders the value as its underlying scalar
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case TypeString:
		return json.Marshal(v.Str)
	case TypeInt:
		return json.Marshal(v.Int)
	case TypeFloat:
		return json.Marshal(v.Float)
	case TypeBool:
		return json.Marshal(v.Bool)
	case TypeStringList:
		return json.Marshal(v.List)
	}
	return []byte("null"), nil
}

// AttrsEqual compares two attribute maps for content equality
func AttrsEqual(a, b map[string]Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || !va.Equal(vb) {
			return false
		}
	}
	return true
}

// CloneAttrs deep-copies an attribute map
func CloneAttrs(attrs map[string]Value) map[string]Value {
	if attrs == nil {
		return nil
	}
	cp := make(map[string]Value, len(attrs))
	for k, v := range attrs {
		if v.Type == TypeStringList {
			v = StringListValue(v.List)
		}
		cp[k] = v
	}
	return cp
}

// Node represents a vertex in the routing graph
type Node struct {
	ID        NodeID
	Kind      Kind
	Attrs     map[string]Value
	CreatedAt int64
	UpdatedAt int64
}

// Clone creates a deep copy of a node
func (n *Node) Clone() *Node {
	return &Node{
		ID:        n.ID,
		Kind:      n.Kind,
		Attrs:     CloneAttrs(n.Attrs),
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

// GetAttr gets an attribute value
func (n *Node) GetAttr(key string) (Value, bool) {
	val, ok := n.Attrs[key]
	return val, ok
}

// EdgeKey uniquely identifies an edge. Uniqueness is on the full key:
// the same relationship learned from two peers is two edges.
type EdgeKey struct {
	From NodeID
	To   NodeID
	Kind Kind
	Peer PeerID
}

func (k EdgeKey) String() string {
	if k.Peer == "" {
		return fmt.Sprintf("%s-[%s]->%s", k.From, k.Kind, k.To)
	}
	return fmt.Sprintf("%s-[%s@%s]->%s", k.From, k.Kind, k.Peer, k.To)
}

// Edge represents a typed relationship between nodes
type Edge struct {
	Key       EdgeKey
	Attrs     map[string]Value
	Seq       uint64 // bumped on every upsert of this key
	CreatedAt int64
	UpdatedAt int64
}

// Clone creates a deep copy of an edge
func (e *Edge) Clone() *Edge {
	return &Edge{
		Key:       e.Key,
		Attrs:     CloneAttrs(e.Attrs),
		Seq:       e.Seq,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// GetAttr gets an attribute value
func (e *Edge) GetAttr(key string) (Value, bool) {
	val, ok := e.Attrs[key]
	return val, ok
}

// ChangeEvent describes one committed mutation. Events are published on
// the change bus in commit order; subscribers see the version the commit
// produced.
type ChangeEvent struct {
	Version Version
	Op      MutationOp
	Node    *Node   // set for node operations
	NodeID  NodeID  // set for node operations
	Edge    *Edge   // set for edge operations
	EdgeKey EdgeKey // set for edge operations
	At      time.Time
}

// TopicChanges is the bus topic carrying every change event.
const TopicChanges = "graph.changes"
