package bitcode

import (
	"bytes"
	"fmt"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dshills/doccorpus/pkg/types"
)

// Writer encodes symbols into the fragment format. The first error is
// kept and every later call becomes a no-op.
type Writer struct {
	buf bytes.Buffer
	enc *msgpack.Encoder
	err error
}

// NewWriter starts a fragment: the signature followed by the version block
func NewWriter() *Writer {
	w := &Writer{}
	w.buf.Write(Magic[:])
	w.enc = msgpack.NewEncoder(&w.buf)

	w.enterBlock(BlockVersion)
	w.record(RecordVersion, []uint64{Version}, nil)
	w.endBlock()
	return w
}

// Bytes returns the encoded fragment, or the first error encountered
func (w *Writer) Bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}

// Serialize encodes one symbol as a complete fragment
func Serialize(info types.Info) ([]byte, error) {
	return SerializeAll(info)
}

// SerializeAll encodes several top-level symbols into one fragment
func SerializeAll(infos ...types.Info) ([]byte, error) {
	w := NewWriter()
	for _, info := range infos {
		w.WriteInfo(info)
	}
	return w.Bytes()
}

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) enterBlock(id BlockID) {
	if w.err != nil {
		return
	}
	if err := w.enc.EncodeArrayLen(2); err != nil {
		w.fail(err)
		return
	}
	if err := w.enc.EncodeUint(codeEnterSubblock); err != nil {
		w.fail(err)
		return
	}
	w.fail(w.enc.EncodeUint(uint64(id)))
}

func (w *Writer) endBlock() {
	if w.err != nil {
		return
	}
	if err := w.enc.EncodeArrayLen(1); err != nil {
		w.fail(err)
		return
	}
	w.fail(w.enc.EncodeUint(codeEndBlock))
}

func (w *Writer) record(id RecordID, fields []uint64, blob []byte) {
	if w.err != nil {
		return
	}
	enc := w.enc
	err := enc.EncodeArrayLen(4)
	if err == nil {
		err = enc.EncodeUint(codeRecord)
	}
	if err == nil {
		err = enc.EncodeUint(uint64(id))
	}
	if err == nil {
		err = enc.EncodeArrayLen(len(fields))
	}
	for i := 0; err == nil && i < len(fields); i++ {
		err = enc.EncodeUint(fields[i])
	}
	if err == nil {
		err = enc.EncodeBytes(blob)
	}
	if err != nil {
		w.fail(err)
	}
}

func (w *Writer) stringRecord(id RecordID, s string) {
	if s != "" {
		w.record(id, nil, []byte(s))
	}
}

func (w *Writer) boolRecord(id RecordID, v bool) {
	if v {
		w.record(id, []uint64{1}, nil)
	}
}

func (w *Writer) enumRecord(id RecordID, v uint8) {
	if v != 0 {
		w.record(id, []uint64{uint64(v)}, nil)
	}
}

func (w *Writer) locationRecord(id RecordID, loc types.Location) {
	line, err := safecast.Conv[uint64](loc.Line)
	if err != nil {
		w.fail(fmt.Errorf("location %s:%d: %w", loc.Filename, loc.Line, err))
		return
	}
	w.record(id, []uint64{line}, []byte(loc.Filename))
}

//------------------------------------------------

// WriteInfo appends one top-level symbol block
func (w *Writer) WriteInfo(info types.Info) {
	switch v := info.(type) {
	case *types.NamespaceInfo:
		w.enterBlock(BlockNamespace)
		w.writeInfoPart(&v.InfoBase)
		w.writeScope(&v.Children)
	case *types.RecordInfo:
		w.enterBlock(BlockRecord)
		w.writeInfoPart(&v.InfoBase)
		w.writeSymbolPart(&v.SymbolInfo)
		w.writeRecord(v)
	case *types.FunctionInfo:
		w.enterBlock(BlockFunction)
		w.writeInfoPart(&v.InfoBase)
		w.writeSymbolPart(&v.SymbolInfo)
		w.writeFunction(v)
	case *types.TypedefInfo:
		w.enterBlock(BlockTypedef)
		w.writeInfoPart(&v.InfoBase)
		w.writeSymbolPart(&v.SymbolInfo)
		w.boolRecord(RecordTypedefIsUsing, v.IsUsing)
		if !v.Underlying.Type.IsZero() {
			w.writeType(BlockType, v.Underlying.Type)
		}
	case *types.EnumInfo:
		w.enterBlock(BlockEnum)
		w.writeInfoPart(&v.InfoBase)
		w.writeSymbolPart(&v.SymbolInfo)
	case *types.VariableInfo:
		w.enterBlock(BlockVariable)
		w.writeInfoPart(&v.InfoBase)
		w.writeSymbolPart(&v.SymbolInfo)
	default:
		w.fail(fmt.Errorf("cannot serialize %T", info))
		return
	}
	w.endBlock()
}

func (w *Writer) writeInfoPart(b *types.InfoBase) {
	w.enterBlock(BlockInfoPart)
	w.record(RecordInfoPartID, nil, b.ID[:])
	w.stringRecord(RecordInfoPartName, b.Name)
	w.stringRecord(RecordInfoPartPath, b.Path)
	for _, ns := range b.Namespace {
		w.writeReference(ns, FieldNamespace)
	}
	w.writeJavadoc(b.Javadoc)
	w.endBlock()
}

func (w *Writer) writeSymbolPart(s *types.SymbolInfo) {
	if s.DefLoc == nil && len(s.Loc) == 0 {
		return
	}
	w.enterBlock(BlockSymbolPart)
	if s.DefLoc != nil {
		w.locationRecord(RecordSymbolPartLocDef, *s.DefLoc)
	}
	for _, loc := range s.Loc {
		w.locationRecord(RecordSymbolPartLoc, loc)
	}
	w.endBlock()
}

func (w *Writer) writeReference(ref types.Reference, field FieldID) {
	w.enterBlock(BlockReference)
	w.record(RecordReferenceUSR, nil, ref.ID[:])
	w.stringRecord(RecordReferenceName, ref.Name)
	w.enumRecord(RecordReferenceKind, uint8(ref.Kind))
	w.record(RecordReferenceField, []uint64{uint64(field)}, nil)
	w.stringRecord(RecordReferencePath, ref.Path)
	w.endBlock()
}

func (w *Writer) writeScope(s *types.Scope) {
	fields := []FieldID{FieldChildNamespace, FieldChildRecord, FieldChildFunction, FieldChildTypedef}
	for i, list := range s.Lists() {
		for _, ref := range *list {
			w.writeReference(ref, fields[i])
		}
	}
}

func (w *Writer) writeType(id BlockID, ref types.Reference) {
	w.enterBlock(id)
	w.writeReference(ref, FieldType)
	w.endBlock()
}

func (w *Writer) writeRecord(v *types.RecordInfo) {
	w.enumRecord(RecordRecordTagType, uint8(v.TagType))
	w.boolRecord(RecordRecordIsTypeDef, v.IsTypeDef)
	if v.Specs != 0 {
		w.record(RecordRecordSpecs, []uint64{uint64(v.Specs)}, nil)
	}
	if len(v.Friends) > 0 {
		blob := make([]byte, 0, len(v.Friends)*types.SymbolIDSize)
		for _, id := range v.Friends {
			blob = append(blob, id[:]...)
		}
		w.record(RecordRecordFriends, nil, blob)
	}

	w.writeScope(&v.Children)
	for _, ref := range v.Parents {
		w.writeReference(ref, FieldParent)
	}
	for _, ref := range v.VirtualParents {
		w.writeReference(ref, FieldVParent)
	}

	for _, base := range v.Bases {
		w.enterBlock(BlockBaseRecord)
		w.enumRecord(RecordBaseRecordTagType, uint8(base.TagType))
		w.boolRecord(RecordBaseRecordIsVirtual, base.IsVirtual)
		w.enumRecord(RecordBaseRecordAccess, uint8(base.Access))
		w.boolRecord(RecordBaseRecordIsParent, base.IsParent)
		w.writeReference(base.Type, FieldType)
		w.endBlock()
	}

	for _, m := range v.Members {
		w.enterBlock(BlockMemberType)
		w.stringRecord(RecordMemberTypeName, m.Name)
		w.enumRecord(RecordMemberTypeAccess, uint8(m.Access))
		w.writeReference(m.Type, FieldType)
		w.writeJavadoc(m.Javadoc)
		w.endBlock()
	}

	w.writeTemplate(v.Template)
}

func (w *Writer) writeFunction(v *types.FunctionInfo) {
	w.enumRecord(RecordFunctionAccess, uint8(v.Access))
	w.boolRecord(RecordFunctionIsMethod, v.IsMethod)
	if v.Specs0 != 0 || v.Specs1 != 0 {
		w.record(RecordFunctionSpecs, []uint64{uint64(v.Specs0), uint64(v.Specs1)}, nil)
	}
	if !v.Parent.IsZero() {
		w.writeReference(v.Parent, FieldParent)
	}
	if !v.ReturnType.Type.IsZero() {
		w.writeType(BlockType, v.ReturnType.Type)
	}
	for _, p := range v.Params {
		w.enterBlock(BlockFieldType)
		w.stringRecord(RecordFieldTypeName, p.Name)
		w.stringRecord(RecordFieldDefaultValue, p.DefaultValue)
		w.writeReference(p.Type, FieldType)
		w.endBlock()
	}
	w.writeTemplate(v.Template)
}

func (w *Writer) writeTemplateParams(params []types.TemplateParamInfo) {
	for _, p := range params {
		w.enterBlock(BlockTemplateParam)
		w.stringRecord(RecordTemplateParamContents, p.Contents)
		w.endBlock()
	}
}

func (w *Writer) writeTemplate(t *types.TemplateInfo) {
	if t == nil {
		return
	}
	w.enterBlock(BlockTemplate)
	w.writeTemplateParams(t.Params)
	if s := t.Specialization; s != nil {
		w.enterBlock(BlockTemplateSpecialization)
		w.record(RecordTemplateSpecializationOf, nil, s.SpecializationOf[:])
		w.writeTemplateParams(s.Params)
		w.endBlock()
	}
	w.endBlock()
}

//------------------------------------------------

func (w *Writer) writeJavadoc(jd *types.Javadoc) {
	if jd == nil {
		return
	}
	w.enterBlock(BlockJavadoc)
	w.writeNodeList(jd.Blocks)
	w.endBlock()
}

// writeNodeList emits a list whose kind is taken from its first node.
// Nodes of a list must share a category.
func (w *Writer) writeNodeList(nodes []*types.DocNode) {
	if len(nodes) == 0 {
		return
	}
	w.enterBlock(BlockJavadocList)
	w.enumRecord(RecordJavadocListKind, uint8(nodes[0].Kind))
	for _, n := range nodes {
		w.enterBlock(BlockJavadocNode)
		w.enumRecord(RecordJavadocNodeKind, uint8(n.Kind))
		w.stringRecord(RecordJavadocNodeString, n.String)
		w.enumRecord(RecordJavadocNodeStyle, uint8(n.Style))
		w.enumRecord(RecordJavadocNodeAdmonish, uint8(n.Admonish))
		w.writeNodeList(n.Children)
		w.endBlock()
	}
	w.endBlock()
}
