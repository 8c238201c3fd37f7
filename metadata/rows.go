// Package metadata implements the in-memory metadata table store behind the
// emit.Emitter interface. The Writer issues tokens, records rows, and
// finalizes type definitions into handles; Tables snapshots the accumulated
// rows for inspection or JSON export.
package metadata

import "github.com/anvil-rt/anvil/emit"

// TypeDefRow is one type definition. Handle is zero until the type is
// finalized through CreateType.
type TypeDefRow struct {
	Token     emit.Token          `json:"token"`
	Namespace string              `json:"namespace,omitempty"`
	Name      string              `json:"name"`
	Attr      emit.TypeAttributes `json:"attr"`
	Parent    emit.Token          `json:"parent,omitempty"`    // Base type link, set at definition or via SetParent
	Enclosing emit.Token          `json:"enclosing,omitempty"` // Declaring type for nested definitions
	Handle    emit.TypeHandle     `json:"handle,omitempty"`
}

// TypeRefRow is one interned reference to an external type.
type TypeRefRow struct {
	Token     emit.Token `json:"token"`
	Namespace string     `json:"namespace,omitempty"`
	Name      string     `json:"name"`
}

// TypeSpecRow is one interned type shape described by a signature blob.
type TypeSpecRow struct {
	Token     emit.Token `json:"token"`
	Signature []byte     `json:"signature"`
}

// MethodRow is one method definition. Body is nil until the owning type is
// finalized.
type MethodRow struct {
	Token     emit.Token                `json:"token"`
	Parent    emit.Token                `json:"parent"`
	Name      string                    `json:"name"`
	Signature []byte                    `json:"signature"`
	Attr      emit.MethodAttributes     `json:"attr"`
	ImplFlags emit.MethodImplAttributes `json:"impl_flags,omitempty"`
	Body      *MethodBodyRow            `json:"body,omitempty"`
}

// MethodBodyRow is the finalized executable payload of a method.
type MethodBodyRow struct {
	InitLocals   bool                 `json:"init_locals"`
	IL           []byte               `json:"il"`
	LocalSig     []byte               `json:"local_sig,omitempty"`
	MaxStack     int                  `json:"max_stack"`
	Handlers     []emit.HandlerClause `json:"handlers,omitempty"`
	FixupOffsets []int                `json:"fixup_offsets,omitempty"` // IL offsets holding tokens, for relocating backends
}

// FieldRow is one field definition.
type FieldRow struct {
	Token     emit.Token           `json:"token"`
	Parent    emit.Token           `json:"parent"`
	Name      string               `json:"name"`
	Signature []byte               `json:"signature"`
	Attr      emit.FieldAttributes `json:"attr"`
}

// ParamRow is one parameter definition. Position zero names the return
// value.
type ParamRow struct {
	Token    emit.Token           `json:"token"`
	Method   emit.Token           `json:"method"`
	Position int                  `json:"position"`
	Name     string               `json:"name,omitempty"`
	Attr     emit.ParamAttributes `json:"attr,omitempty"`
}

// PropertyRow is one property definition.
type PropertyRow struct {
	Token     emit.Token              `json:"token"`
	Parent    emit.Token              `json:"parent"`
	Name      string                  `json:"name"`
	Signature []byte                  `json:"signature"`
	Attr      emit.PropertyAttributes `json:"attr,omitempty"`
}

// EventRow is one event definition.
type EventRow struct {
	Token     emit.Token           `json:"token"`
	Parent    emit.Token           `json:"parent"`
	Name      string               `json:"name"`
	Attr      emit.EventAttributes `json:"attr,omitempty"`
	EventType emit.Token           `json:"event_type"`
}

// MemberRefRow is one interned member reference.
type MemberRefRow struct {
	Token     emit.Token `json:"token"`
	Parent    emit.Token `json:"parent"`
	Name      string     `json:"name"`
	Signature []byte     `json:"signature"`
}

// SignatureRow is one interned standalone signature.
type SignatureRow struct {
	Token     emit.Token `json:"token"`
	Signature []byte     `json:"signature"`
}

// GenericParamRow is one generic parameter declaration under a type or
// method owner.
type GenericParamRow struct {
	Token       emit.Token                  `json:"token"`
	Owner       emit.Token                  `json:"owner"`
	Position    int                         `json:"position"`
	Name        string                      `json:"name"`
	Attr        emit.GenericParamAttributes `json:"attr,omitempty"`
	Constraints []emit.Token                `json:"constraints,omitempty"`
}

// MethodSpecRow is one interned generic method instantiation.
type MethodSpecRow struct {
	Token         emit.Token `json:"token"`
	Method        emit.Token `json:"method"`
	Instantiation []byte     `json:"instantiation"`
}

// InterfaceImplRow records that a type implements an interface.
type InterfaceImplRow struct {
	Token     emit.Token `json:"token"`
	Type      emit.Token `json:"type"`
	Interface emit.Token `json:"interface"`
}

// CustomAttributeRow is one custom attribute attachment.
type CustomAttributeRow struct {
	Token emit.Token `json:"token"`
	Owner emit.Token `json:"owner"`
	Ctor  emit.Token `json:"ctor"`
	Blob  []byte     `json:"blob,omitempty"`
}

// MethodSemanticsRow links a method to its role on a property or event.
type MethodSemanticsRow struct {
	Association emit.Token           `json:"association"`
	Semantics   emit.MethodSemantics `json:"semantics"`
	Method      emit.Token           `json:"method"`
}

// ConstantRow is a default value attached to a field, parameter or property.
type ConstantRow struct {
	Parent emit.Token       `json:"parent"`
	Kind   emit.ElementKind `json:"kind"`
	Value  any              `json:"value"`
}

// FieldLayoutRow is an explicit field offset.
type FieldLayoutRow struct {
	Field  emit.Token `json:"field"`
	Offset int        `json:"offset"`
}

// ClassLayoutRow records packing and total size for a type.
type ClassLayoutRow struct {
	Type      emit.Token `json:"type"`
	PackSize  int        `json:"pack_size"`
	ClassSize int        `json:"class_size"`
}

// ImplMapRow records the unmanaged import behind a method.
type ImplMapRow struct {
	Method     emit.Token             `json:"method"`
	DLLName    string                 `json:"dll_name"`
	EntryPoint string                 `json:"entry_point,omitempty"`
	Flags      emit.PInvokeAttributes `json:"flags,omitempty"`
}

// Tables is a snapshot of every table a Writer has accumulated. Row slices
// are copies; signature blobs inside rows are shared with the store and must
// be treated read-only. The whole snapshot marshals cleanly to JSON.
type Tables struct {
	TypeDefs         []TypeDefRow         `json:"type_defs,omitempty"`
	TypeRefs         []TypeRefRow         `json:"type_refs,omitempty"`
	TypeSpecs        []TypeSpecRow        `json:"type_specs,omitempty"`
	Methods          []MethodRow          `json:"methods,omitempty"`
	Fields           []FieldRow           `json:"fields,omitempty"`
	Params           []ParamRow           `json:"params,omitempty"`
	Properties       []PropertyRow        `json:"properties,omitempty"`
	Events           []EventRow           `json:"events,omitempty"`
	MemberRefs       []MemberRefRow       `json:"member_refs,omitempty"`
	Signatures       []SignatureRow       `json:"signatures,omitempty"`
	GenericParams    []GenericParamRow    `json:"generic_params,omitempty"`
	MethodSpecs      []MethodSpecRow      `json:"method_specs,omitempty"`
	InterfaceImpls   []InterfaceImplRow   `json:"interface_impls,omitempty"`
	CustomAttributes []CustomAttributeRow `json:"custom_attributes,omitempty"`
	MethodSemantics  []MethodSemanticsRow `json:"method_semantics,omitempty"`
	Constants        []ConstantRow        `json:"constants,omitempty"`
	FieldLayouts     []FieldLayoutRow     `json:"field_layouts,omitempty"`
	ClassLayouts     []ClassLayoutRow     `json:"class_layouts,omitempty"`
	ImplMaps         []ImplMapRow         `json:"impl_maps,omitempty"`
}
