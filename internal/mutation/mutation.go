package mutation

import (
	"fmt"
	"strconv"

	"github.com/roach88/vtree/internal/template"
)

// ElementID identifies one renderer-visible node.
type ElementID uint64

// Root is the host mount point.
const Root ElementID = 0

// Kind names a mutation.
type Kind uint8

const (
	KindRegisterTemplate Kind = iota + 1
	KindLoadTemplate
	KindAppendChildren
	KindAssignNodeID
	KindCreatePlaceholder
	KindCreateTextNode
	KindReplaceWith
	KindReplacePlaceholder
	KindInsertAfter
	KindInsertBefore
	KindSetAttribute
	KindRemoveAttribute
	KindSetText
	KindNewEventListener
	KindRemoveEventListener
	KindRemove
	KindPushRoot
)

var kindNames = map[Kind]string{
	KindRegisterTemplate:    "RegisterTemplate",
	KindLoadTemplate:        "LoadTemplate",
	KindAppendChildren:      "AppendChildren",
	KindAssignNodeID:        "AssignNodeId",
	KindCreatePlaceholder:   "CreatePlaceholder",
	KindCreateTextNode:      "CreateTextNode",
	KindReplaceWith:         "ReplaceWith",
	KindReplacePlaceholder:  "ReplacePlaceholder",
	KindInsertAfter:         "InsertAfter",
	KindInsertBefore:        "InsertBefore",
	KindSetAttribute:        "SetAttribute",
	KindRemoveAttribute:     "RemoveAttribute",
	KindSetText:             "SetText",
	KindNewEventListener:    "NewEventListener",
	KindRemoveEventListener: "RemoveEventListener",
	KindRemove:              "Remove",
	KindPushRoot:            "PushRoot",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind maps a mutation name back to its Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown mutation kind %q", name)
}

// Structural reports whether k changes tree shape rather than node content.
func (k Kind) Structural() bool {
	switch k {
	case KindSetAttribute, KindRemoveAttribute, KindSetText,
		KindNewEventListener, KindRemoveEventListener, KindRegisterTemplate:
		return false
	}
	return true
}

// Mutation is one renderer instruction. Which fields are meaningful depends
// on Kind.
type Mutation struct {
	Kind      Kind               `json:"kind" msgpack:"kind"`
	ID        ElementID          `json:"id,omitempty" msgpack:"id,omitempty"`
	M         int                `json:"m,omitempty" msgpack:"m,omitempty"`
	Path      template.Path      `json:"path,omitempty" msgpack:"path,omitempty"`
	Name      string             `json:"name,omitempty" msgpack:"name,omitempty"`
	Namespace string             `json:"namespace,omitempty" msgpack:"namespace,omitempty"`
	Index     int                `json:"index,omitempty" msgpack:"index,omitempty"`
	Text      string             `json:"text,omitempty" msgpack:"text,omitempty"`
	Value     Value              `json:"value" msgpack:"value"`
	Template  *template.Template `json:"template,omitempty" msgpack:"template,omitempty"`
}

func (m Mutation) String() string {
	switch m.Kind {
	case KindRegisterTemplate:
		return fmt.Sprintf("RegisterTemplate{%s}", m.Template.ID)
	case KindLoadTemplate:
		return fmt.Sprintf("LoadTemplate{name: %s, index: %d, id: %d}", m.Name, m.Index, m.ID)
	case KindAssignNodeID:
		return fmt.Sprintf("AssignNodeId{path: %s, id: %d}", m.Path, m.ID)
	case KindReplacePlaceholder:
		return fmt.Sprintf("ReplacePlaceholder{path: %s, m: %d}", m.Path, m.M)
	case KindCreatePlaceholder, KindRemove, KindPushRoot:
		return fmt.Sprintf("%s{id: %d}", m.Kind, m.ID)
	case KindCreateTextNode, KindSetText:
		return fmt.Sprintf("%s{value: %q, id: %d}", m.Kind, m.Text, m.ID)
	case KindSetAttribute:
		return fmt.Sprintf("SetAttribute{name: %s, value: %s, id: %d}", m.Name, m.Value, m.ID)
	case KindRemoveAttribute, KindNewEventListener, KindRemoveEventListener:
		return fmt.Sprintf("%s{name: %s, id: %d}", m.Kind, m.Name, m.ID)
	default:
		return fmt.Sprintf("%s{id: %d, m: %d}", m.Kind, m.ID, m.M)
	}
}

// RegisterTemplate announces a template shape to the renderer.
func RegisterTemplate(t *template.Template) Mutation {
	return Mutation{Kind: KindRegisterTemplate, Template: t}
}

// LoadTemplate clones root index of a registered template, assigns it id and
// pushes it.
func LoadTemplate(name template.ID, index int, id ElementID) Mutation {
	return Mutation{Kind: KindLoadTemplate, Name: string(name), Index: index, ID: id}
}

// AppendChildren pops m nodes and appends them to id.
func AppendChildren(id ElementID, m int) Mutation {
	return Mutation{Kind: KindAppendChildren, ID: id, M: m}
}

// AssignNodeID gives the node at path below the top of the stack an id.
func AssignNodeID(path template.Path, id ElementID) Mutation {
	return Mutation{Kind: KindAssignNodeID, Path: path, ID: id}
}

// CreatePlaceholder pushes an empty anchor node.
func CreatePlaceholder(id ElementID) Mutation {
	return Mutation{Kind: KindCreatePlaceholder, ID: id}
}

// CreateTextNode pushes a text node.
func CreateTextNode(text string, id ElementID) Mutation {
	return Mutation{Kind: KindCreateTextNode, Text: text, ID: id}
}

// ReplaceWith pops m nodes and puts them where id is, dropping id.
func ReplaceWith(id ElementID, m int) Mutation {
	return Mutation{Kind: KindReplaceWith, ID: id, M: m}
}

// ReplacePlaceholder pops m nodes and puts them in place of the template
// placeholder at path below the new top of the stack.
func ReplacePlaceholder(path template.Path, m int) Mutation {
	return Mutation{Kind: KindReplacePlaceholder, Path: path, M: m}
}

// InsertAfter pops m nodes and inserts them after id.
func InsertAfter(id ElementID, m int) Mutation {
	return Mutation{Kind: KindInsertAfter, ID: id, M: m}
}

// InsertBefore pops m nodes and inserts them before id.
func InsertBefore(id ElementID, m int) Mutation {
	return Mutation{Kind: KindInsertBefore, ID: id, M: m}
}

// SetAttribute sets an attribute on id.
func SetAttribute(name, namespace string, value Value, id ElementID) Mutation {
	return Mutation{Kind: KindSetAttribute, Name: name, Namespace: namespace, Value: value, ID: id}
}

// RemoveAttribute clears an attribute on id.
func RemoveAttribute(name, namespace string, id ElementID) Mutation {
	return Mutation{Kind: KindRemoveAttribute, Name: name, Namespace: namespace, ID: id}
}

// SetText replaces the content of text node id.
func SetText(text string, id ElementID) Mutation {
	return Mutation{Kind: KindSetText, Text: text, ID: id}
}

// NewEventListener attaches a listener for event name to id.
func NewEventListener(name string, id ElementID) Mutation {
	return Mutation{Kind: KindNewEventListener, Name: name, ID: id}
}

// RemoveEventListener detaches the listener for event name from id.
func RemoveEventListener(name string, id ElementID) Mutation {
	return Mutation{Kind: KindRemoveEventListener, Name: name, ID: id}
}

// Remove detaches id and its subtree.
func Remove(id ElementID) Mutation {
	return Mutation{Kind: KindRemove, ID: id}
}

// PushRoot pushes the existing node id, usually ahead of a move.
func PushRoot(id ElementID) Mutation {
	return Mutation{Kind: KindPushRoot, ID: id}
}
