// Package emit builds type and member metadata for a module at runtime.
//
// A ModuleBuilder owns a registry of in-progress types. TypeBuilder and the
// member builders (MethodBuilder, FieldBuilder, PropertyBuilder, EventBuilder,
// ConstructorBuilder) accumulate definitions in memory and drive two injected
// collaborators: an Emitter, which owns metadata tables and issues tokens, and
// a SignatureEncoder, which turns Type shapes into signature blobs. The
// package ships reference implementations of both (see the metadata and sig
// packages); alternative backends plug in through the same interfaces.
//
// Tokens are issued eagerly for types, fields, properties and events, and
// lazily in declaration-order batches for methods and constructors. Once a
// method token exists its signature is frozen.
//
// Every type passes through a two-phase lifecycle: an open phase where
// mutators are legal, and a created phase entered by CreateType, after which
// the builder answers introspection queries but rejects further mutation.
// CreateType is idempotent and safe to call from multiple goroutines;
// CreateAll bakes every registered type concurrently.
//
// Basic usage:
//
//	w := metadata.NewWriter()
//	mod, err := emit.NewModule("demo", w, sig.NewEncoder(), nil)
//	if err != nil { ... }
//	tb, err := mod.DefineType("Geometry.Point", emit.TypeAttrPublic|emit.TypeAttrSealed, nil)
//	if err != nil { ... }
//	fb, err := tb.DefineField("X", mod.Core().Int32, emit.FieldAttrPublic)
//	if err != nil { ... }
//	if _, err := tb.CreateType(); err != nil { ... }
//
// All builder mutators report failures with wrapped sentinel errors (ErrUsage,
// ErrState, ErrFormat, ErrResolution) so callers can classify them with
// errors.Is. Internal bookkeeping bugs panic instead; they are never part of
// the error contract.
package emit
