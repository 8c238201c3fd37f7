package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/anvil-rt/anvil/emit"
	"github.com/anvil-rt/anvil/internal/cli/ui"
	"github.com/anvil-rt/anvil/metadata"
)

// tableNames lists the metadata tables the CLI renders, in dump order.
var tableNames = []string{
	"TypeDef",
	"MethodDef",
	"FieldDef",
	"Param",
	"Property",
	"Event",
	"GenericParam",
	"TypeRef",
	"TypeSpec",
	"MemberRef",
	"Signature",
	"MethodSpec",
	"InterfaceImpl",
	"CustomAttribute",
	"MethodSemantics",
	"Constant",
	"FieldLayout",
	"ClassLayout",
	"ImplMap",
}

// matchTable resolves a user-supplied table name case-insensitively
func matchTable(name string) (string, bool) {
	for _, known := range tableNames {
		if strings.EqualFold(name, known) {
			return known, true
		}
	}
	return "", false
}

// tablePrinter renders metadata tables for the demo and inspect commands
type tablePrinter struct {
	noColor bool
	blobMax int
}

// RenderCounts renders a row-count summary across every table
func (p tablePrinter) RenderCounts(w io.Writer, tables metadata.Tables) {
	t := ui.NewTable(w, []string{"Table", "Rows"},
		&ui.TableOptions{NoColor: p.noColor, RightAlign: []int{1}})
	for _, name := range tableNames {
		t.AddRow(name, strconv.Itoa(p.rowCount(name, tables)))
	}
	t.Render()
}

// RenderAll renders every non-empty table, each under its own header
func (p tablePrinter) RenderAll(w io.Writer, tables metadata.Tables) {
	for _, name := range tableNames {
		if p.rowCount(name, tables) == 0 {
			continue
		}
		fmt.Fprintln(w)
		ui.Header(w, name, p.noColor)
		p.renderRows(w, name, tables)
	}
}

// RenderOne renders a single table by its canonical name
func (p tablePrinter) RenderOne(w io.Writer, name string, tables metadata.Tables) {
	ui.Header(w, name, p.noColor)
	if p.rowCount(name, tables) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return
	}
	p.renderRows(w, name, tables)
}

func (p tablePrinter) rowCount(name string, tables metadata.Tables) int {
	switch name {
	case "TypeDef":
		return len(tables.TypeDefs)
	case "MethodDef":
		return len(tables.Methods)
	case "FieldDef":
		return len(tables.Fields)
	case "Param":
		return len(tables.Params)
	case "Property":
		return len(tables.Properties)
	case "Event":
		return len(tables.Events)
	case "GenericParam":
		return len(tables.GenericParams)
	case "TypeRef":
		return len(tables.TypeRefs)
	case "TypeSpec":
		return len(tables.TypeSpecs)
	case "MemberRef":
		return len(tables.MemberRefs)
	case "Signature":
		return len(tables.Signatures)
	case "MethodSpec":
		return len(tables.MethodSpecs)
	case "InterfaceImpl":
		return len(tables.InterfaceImpls)
	case "CustomAttribute":
		return len(tables.CustomAttributes)
	case "MethodSemantics":
		return len(tables.MethodSemantics)
	case "Constant":
		return len(tables.Constants)
	case "FieldLayout":
		return len(tables.FieldLayouts)
	case "ClassLayout":
		return len(tables.ClassLayouts)
	case "ImplMap":
		return len(tables.ImplMaps)
	}
	return 0
}

func (p tablePrinter) renderRows(w io.Writer, name string, tables metadata.Tables) {
	opts := &ui.TableOptions{NoColor: p.noColor}

	switch name {
	case "TypeDef":
		t := ui.NewTable(w, []string{"Token", "Name", "Attr", "Parent", "Enclosing", "Handle"}, opts)
		for _, row := range tables.TypeDefs {
			t.AddRow(row.Token.String(), qualify(row.Namespace, row.Name),
				attrCell(uint32(row.Attr)), tokenCell(row.Parent),
				tokenCell(row.Enclosing), strconv.FormatUint(uint64(row.Handle), 10))
		}
		t.Render()

	case "MethodDef":
		t := ui.NewTable(w, []string{"Token", "Parent", "Name", "Attr", "Signature", "Body"}, opts)
		for _, row := range tables.Methods {
			body := "-"
			if row.Body != nil {
				body = strconv.Itoa(len(row.Body.IL)) + "B"
			}
			t.AddRow(row.Token.String(), tokenCell(row.Parent), row.Name,
				attrCell(uint32(row.Attr)), ui.FormatBlob(row.Signature, p.blobMax), body)
		}
		t.Render()

	case "FieldDef":
		t := ui.NewTable(w, []string{"Token", "Parent", "Name", "Attr", "Signature"}, opts)
		for _, row := range tables.Fields {
			t.AddRow(row.Token.String(), tokenCell(row.Parent), row.Name,
				attrCell(uint32(row.Attr)), ui.FormatBlob(row.Signature, p.blobMax))
		}
		t.Render()

	case "Param":
		t := ui.NewTable(w, []string{"Token", "Method", "Position", "Name"},
			&ui.TableOptions{NoColor: p.noColor, RightAlign: []int{2}})
		for _, row := range tables.Params {
			t.AddRow(row.Token.String(), tokenCell(row.Method),
				strconv.Itoa(row.Position), row.Name)
		}
		t.Render()

	case "Property":
		t := ui.NewTable(w, []string{"Token", "Parent", "Name", "Signature"}, opts)
		for _, row := range tables.Properties {
			t.AddRow(row.Token.String(), tokenCell(row.Parent), row.Name,
				ui.FormatBlob(row.Signature, p.blobMax))
		}
		t.Render()

	case "Event":
		t := ui.NewTable(w, []string{"Token", "Parent", "Name", "EventType"}, opts)
		for _, row := range tables.Events {
			t.AddRow(row.Token.String(), tokenCell(row.Parent), row.Name,
				tokenCell(row.EventType))
		}
		t.Render()

	case "GenericParam":
		t := ui.NewTable(w, []string{"Token", "Owner", "Position", "Name", "Constraints"},
			&ui.TableOptions{NoColor: p.noColor, RightAlign: []int{2}})
		for _, row := range tables.GenericParams {
			t.AddRow(row.Token.String(), tokenCell(row.Owner),
				strconv.Itoa(row.Position), row.Name, strconv.Itoa(len(row.Constraints)))
		}
		t.Render()

	case "TypeRef":
		t := ui.NewTable(w, []string{"Token", "Name"}, opts)
		for _, row := range tables.TypeRefs {
			t.AddRow(row.Token.String(), qualify(row.Namespace, row.Name))
		}
		t.Render()

	case "TypeSpec":
		t := ui.NewTable(w, []string{"Token", "Signature"}, opts)
		for _, row := range tables.TypeSpecs {
			t.AddRow(row.Token.String(), ui.FormatBlob(row.Signature, p.blobMax))
		}
		t.Render()

	case "MemberRef":
		t := ui.NewTable(w, []string{"Token", "Parent", "Name", "Signature"}, opts)
		for _, row := range tables.MemberRefs {
			t.AddRow(row.Token.String(), tokenCell(row.Parent), row.Name,
				ui.FormatBlob(row.Signature, p.blobMax))
		}
		t.Render()

	case "Signature":
		t := ui.NewTable(w, []string{"Token", "Signature"}, opts)
		for _, row := range tables.Signatures {
			t.AddRow(row.Token.String(), ui.FormatBlob(row.Signature, p.blobMax))
		}
		t.Render()

	case "MethodSpec":
		t := ui.NewTable(w, []string{"Token", "Method", "Instantiation"}, opts)
		for _, row := range tables.MethodSpecs {
			t.AddRow(row.Token.String(), tokenCell(row.Method),
				ui.FormatBlob(row.Instantiation, p.blobMax))
		}
		t.Render()

	case "InterfaceImpl":
		t := ui.NewTable(w, []string{"Token", "Type", "Interface"}, opts)
		for _, row := range tables.InterfaceImpls {
			t.AddRow(row.Token.String(), tokenCell(row.Type), tokenCell(row.Interface))
		}
		t.Render()

	case "CustomAttribute":
		t := ui.NewTable(w, []string{"Token", "Owner", "Ctor", "Blob"}, opts)
		for _, row := range tables.CustomAttributes {
			t.AddRow(row.Token.String(), tokenCell(row.Owner), tokenCell(row.Ctor),
				ui.FormatBlob(row.Blob, p.blobMax))
		}
		t.Render()

	case "MethodSemantics":
		t := ui.NewTable(w, []string{"Association", "Semantics", "Method"}, opts)
		for _, row := range tables.MethodSemantics {
			t.AddRow(tokenCell(row.Association), attrCell(uint32(row.Semantics)),
				tokenCell(row.Method))
		}
		t.Render()

	case "Constant":
		t := ui.NewTable(w, []string{"Parent", "Kind", "Value"}, opts)
		for _, row := range tables.Constants {
			t.AddRow(tokenCell(row.Parent), attrCell(uint32(row.Kind)),
				fmt.Sprintf("%v", row.Value))
		}
		t.Render()

	case "FieldLayout":
		t := ui.NewTable(w, []string{"Field", "Offset"},
			&ui.TableOptions{NoColor: p.noColor, RightAlign: []int{1}})
		for _, row := range tables.FieldLayouts {
			t.AddRow(tokenCell(row.Field), strconv.Itoa(row.Offset))
		}
		t.Render()

	case "ClassLayout":
		t := ui.NewTable(w, []string{"Type", "Pack", "Size"},
			&ui.TableOptions{NoColor: p.noColor, RightAlign: []int{1, 2}})
		for _, row := range tables.ClassLayouts {
			t.AddRow(tokenCell(row.Type), strconv.Itoa(row.PackSize),
				strconv.Itoa(row.ClassSize))
		}
		t.Render()

	case "ImplMap":
		t := ui.NewTable(w, []string{"Method", "DLL", "EntryPoint", "Flags"}, opts)
		for _, row := range tables.ImplMaps {
			t.AddRow(tokenCell(row.Method), row.DLLName, row.EntryPoint,
				attrCell(uint32(row.Flags)))
		}
		t.Render()
	}
}

func tokenCell(t emit.Token) string {
	if t.IsNil() {
		return "-"
	}
	return t.String()
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

func attrCell(v uint32) string {
	return fmt.Sprintf("0x%04X", v)
}
