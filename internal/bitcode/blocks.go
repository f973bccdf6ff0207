package bitcode

import (
	"github.com/dshills/doccorpus/pkg/types"
)

//------------------------------------------------

type versionBlock struct {
	version uint32
	seen    bool
}

func (b *versionBlock) parseRecord(rec Record) error {
	switch rec.ID {
	case RecordVersion:
		if err := decodeUint32(rec, &b.version); err != nil {
			return err
		}
		if b.version != Version {
			return makeError("wrong version %d, want %d", b.version, Version)
		}
		b.seen = true
		return nil
	default:
		return unexpectedRecord(rec.ID)
	}
}

func (b *versionBlock) readSubBlock(id BlockID) error {
	return unexpectedSubBlock(id)
}

//------------------------------------------------

type referenceBlock struct {
	ref   types.Reference
	field FieldID
}

func (b *referenceBlock) parseRecord(rec Record) error {
	switch rec.ID {
	case RecordReferenceUSR:
		return decodeSymbolID(rec, &b.ref.ID)
	case RecordReferenceName:
		return decodeString(rec, &b.ref.Name)
	case RecordReferenceKind:
		return decodeEnum(rec, &b.ref.Kind, types.MaxInfoKind)
	case RecordReferenceField:
		return decodeEnum(rec, &b.field, MaxFieldID)
	case RecordReferencePath:
		return decodeString(rec, &b.ref.Path)
	default:
		return unexpectedRecord(rec.ID)
	}
}

func (b *referenceBlock) readSubBlock(id BlockID) error {
	return unexpectedSubBlock(id)
}

func (r *Reader) readReference() (types.Reference, FieldID, error) {
	var b referenceBlock
	if err := r.readBlock(&b, BlockReference); err != nil {
		return types.Reference{}, FieldNone, err
	}
	return b.ref, b.field, nil
}

//------------------------------------------------

type infoPartBlock struct {
	r    *Reader
	info *types.InfoBase
}

func (b *infoPartBlock) parseRecord(rec Record) error {
	switch rec.ID {
	case RecordInfoPartID:
		return decodeSymbolID(rec, &b.info.ID)
	case RecordInfoPartName:
		return decodeString(rec, &b.info.Name)
	case RecordInfoPartPath:
		return decodeString(rec, &b.info.Path)
	default:
		return unexpectedRecord(rec.ID)
	}
}

func (b *infoPartBlock) readSubBlock(id BlockID) error {
	switch id {
	case BlockReference:
		ref, field, err := b.r.readReference()
		if err != nil {
			return err
		}
		if field != FieldNamespace {
			return wrongField(field)
		}
		b.info.Namespace = append(b.info.Namespace, ref)
		return nil
	case BlockJavadoc:
		if b.info.Javadoc != nil {
			return makeError("duplicate javadoc")
		}
		jd, err := b.r.readJavadoc()
		if err != nil {
			return err
		}
		b.info.Javadoc = jd
		return nil
	default:
		return unexpectedSubBlock(id)
	}
}

//------------------------------------------------

type symbolPartBlock struct {
	sym *types.SymbolInfo
}

func (b *symbolPartBlock) parseRecord(rec Record) error {
	switch rec.ID {
	case RecordSymbolPartLocDef:
		var loc types.Location
		if err := decodeLocation(rec, &loc); err != nil {
			return err
		}
		b.sym.DefLoc = &loc
		return nil
	case RecordSymbolPartLoc:
		var loc types.Location
		if err := decodeLocation(rec, &loc); err != nil {
			return err
		}
		b.sym.Loc = append(b.sym.Loc, loc)
		return nil
	default:
		return unexpectedRecord(rec.ID)
	}
}

func (b *symbolPartBlock) readSubBlock(id BlockID) error {
	return unexpectedSubBlock(id)
}

//------------------------------------------------

type typeBlock struct {
	r     *Reader
	field FieldID
	info  types.TypeInfo
}

func (b *typeBlock) parseRecord(rec Record) error {
	return unexpectedRecord(rec.ID)
}

func (b *typeBlock) readSubBlock(id BlockID) error {
	switch id {
	case BlockReference:
		ref, field, err := b.r.readReference()
		if err != nil {
			return err
		}
		b.field = field
		b.info.Type = ref
		return nil
	default:
		return unexpectedSubBlock(id)
	}
}

//------------------------------------------------

type fieldTypeBlock struct {
	r     *Reader
	field FieldID
	info  types.FieldTypeInfo
}

func (b *fieldTypeBlock) parseRecord(rec Record) error {
	switch rec.ID {
	case RecordFieldTypeName:
		return decodeString(rec, &b.info.Name)
	case RecordFieldDefaultValue:
		return decodeString(rec, &b.info.DefaultValue)
	default:
		return unexpectedRecord(rec.ID)
	}
}

func (b *fieldTypeBlock) readSubBlock(id BlockID) error {
	switch id {
	case BlockReference:
		ref, field, err := b.r.readReference()
		if err != nil {
			return err
		}
		b.field = field
		b.info.Type = ref
		return nil
	default:
		return unexpectedSubBlock(id)
	}
}

//------------------------------------------------

type memberTypeBlock struct {
	r    *Reader
	info types.MemberTypeInfo
}

func (b *memberTypeBlock) parseRecord(rec Record) error {
	switch rec.ID {
	case RecordMemberTypeName:
		return decodeString(rec, &b.info.Name)
	case RecordMemberTypeAccess:
		return decodeEnum(rec, &b.info.Access, types.MaxAccess)
	default:
		return unexpectedRecord(rec.ID)
	}
}

func (b *memberTypeBlock) readSubBlock(id BlockID) error {
	switch id {
	case BlockReference:
		ref, field, err := b.r.readReference()
		if err != nil {
			return err
		}
		if field != FieldType {
			return wrongField(field)
		}
		b.info.Type = ref
		return nil
	case BlockJavadoc:
		if b.info.Javadoc != nil {
			return makeError("duplicate javadoc")
		}
		jd, err := b.r.readJavadoc()
		if err != nil {
			return err
		}
		b.info.Javadoc = jd
		return nil
	default:
		return unexpectedSubBlock(id)
	}
}

//------------------------------------------------

type baseRecordBlock struct {
	r    *Reader
	info types.BaseRecordInfo
}

func (b *baseRecordBlock) parseRecord(rec Record) error {
	switch rec.ID {
	case RecordBaseRecordTagType:
		return decodeEnum(rec, &b.info.TagType, types.MaxTag)
	case RecordBaseRecordIsVirtual:
		return decodeBool(rec, &b.info.IsVirtual)
	case RecordBaseRecordAccess:
		return decodeEnum(rec, &b.info.Access, types.MaxAccess)
	case RecordBaseRecordIsParent:
		return decodeBool(rec, &b.info.IsParent)
	default:
		return unexpectedRecord(rec.ID)
	}
}

func (b *baseRecordBlock) readSubBlock(id BlockID) error {
	switch id {
	case BlockReference:
		ref, field, err := b.r.readReference()
		if err != nil {
			return err
		}
		if field != FieldType {
			return wrongField(field)
		}
		b.info.Type = ref
		return nil
	default:
		return unexpectedSubBlock(id)
	}
}

//------------------------------------------------

// paramList collects template parameters. A param block is read by the
// enclosing handler itself, so contents records only make sense while one
// is open.
type paramList struct {
	params  *[]types.TemplateParamInfo
	inParam bool
}

func (p *paramList) parseContents(rec Record) error {
	if !p.inParam {
		return makeError("template parameter contents outside a parameter block")
	}
	last := &(*p.params)[len(*p.params)-1]
	return decodeString(rec, &last.Contents)
}

func (p *paramList) readParam(r *Reader, self blockReader) error {
	if p.inParam {
		return makeError("nested template parameter")
	}
	*p.params = append(*p.params, types.TemplateParamInfo{})
	p.inParam = true
	defer func() { p.inParam = false }()
	return r.readBlock(self, BlockTemplateParam)
}

type templateSpecializationBlock struct {
	r      *Reader
	info   types.TemplateSpecializationInfo
	params paramList
}

func (b *templateSpecializationBlock) parseRecord(rec Record) error {
	switch rec.ID {
	case RecordTemplateSpecializationOf:
		if b.params.inParam {
			return unexpectedRecord(rec.ID)
		}
		return decodeSymbolID(rec, &b.info.SpecializationOf)
	case RecordTemplateParamContents:
		return b.params.parseContents(rec)
	default:
		return unexpectedRecord(rec.ID)
	}
}

func (b *templateSpecializationBlock) readSubBlock(id BlockID) error {
	switch id {
	case BlockTemplateParam:
		return b.params.readParam(b.r, b)
	default:
		return unexpectedSubBlock(id)
	}
}

type templateBlock struct {
	r      *Reader
	info   types.TemplateInfo
	params paramList
}

func (b *templateBlock) parseRecord(rec Record) error {
	switch rec.ID {
	case RecordTemplateParamContents:
		return b.params.parseContents(rec)
	default:
		return unexpectedRecord(rec.ID)
	}
}

func (b *templateBlock) readSubBlock(id BlockID) error {
	switch id {
	case BlockTemplateParam:
		return b.params.readParam(b.r, b)
	case BlockTemplateSpecialization:
		if b.params.inParam {
			return unexpectedSubBlock(id)
		}
		if b.info.Specialization != nil {
			return makeError("duplicate template specialization")
		}
		sb := &templateSpecializationBlock{r: b.r}
		sb.params.params = &sb.info.Params
		if err := b.r.readBlock(sb, id); err != nil {
			return err
		}
		b.info.Specialization = &sb.info
		return nil
	default:
		return unexpectedSubBlock(id)
	}
}

func (r *Reader) readTemplate() (*types.TemplateInfo, error) {
	b := &templateBlock{r: r}
	b.params.params = &b.info.Params
	if err := r.readBlock(b, BlockTemplate); err != nil {
		return nil, err
	}
	return &b.info, nil
}

//------------------------------------------------

// topLevel holds what every top-level symbol block accepts: one info part,
// one symbol part for kinds with a location, and child references for
// kinds with a scope.
type topLevel struct {
	r            *Reader
	info         types.Info
	seenInfo     bool
	seenSymbol   bool
	seenTemplate bool
}

func (b *topLevel) parseRecord(rec Record) error {
	return unexpectedRecord(rec.ID)
}

func (b *topLevel) readSubBlock(id BlockID) error {
	kind := b.info.Base().Kind
	switch id {
	case BlockInfoPart:
		if b.seenInfo {
			return makeError("duplicate info part")
		}
		b.seenInfo = true
		// the kind is fixed by the enclosing block
		return b.r.readBlock(&infoPartBlock{r: b.r, info: b.info.Base()}, id)

	case BlockSymbolPart:
		sym, ok := b.info.(types.HasSymbol)
		if !ok || !kind.Capabilities().Has(types.CapSymbol) {
			break
		}
		if b.seenSymbol {
			return makeError("duplicate symbol part")
		}
		b.seenSymbol = true
		return b.r.readBlock(&symbolPartBlock{sym: sym.Symbol()}, id)

	case BlockReference:
		if _, ok := b.info.(types.HasScope); !ok {
			break
		}
		ref, field, err := b.r.readReference()
		if err != nil {
			return err
		}
		return b.insertChild(ref, field)
	}
	return unexpectedSubBlock(id)
}

// insertChild routes a child reference into the scope, checking that the
// symbol kind can hold that kind of child.
func (b *topLevel) insertChild(ref types.Reference, field FieldID) error {
	var (
		capability types.Capability
		list       func(*types.Scope) *[]types.Reference
	)
	switch field {
	case FieldChildNamespace:
		capability = types.CapChildNamespaces
		list = func(s *types.Scope) *[]types.Reference { return &s.Namespaces }
	case FieldChildRecord:
		capability = types.CapChildRecords
		list = func(s *types.Scope) *[]types.Reference { return &s.Records }
	case FieldChildFunction:
		capability = types.CapChildFunctions
		list = func(s *types.Scope) *[]types.Reference { return &s.Functions }
	case FieldChildTypedef:
		capability = types.CapChildTypedefs
		list = func(s *types.Scope) *[]types.Reference { return &s.Typedefs }
	default:
		return wrongField(field)
	}

	kind := b.info.Base().Kind
	scoped, ok := b.info.(types.HasScope)
	if !ok || !kind.Capabilities().Has(capability) {
		return makeError("%s cannot hold a %s reference", kind, field)
	}
	l := list(scoped.Scope())
	*l = append(*l, ref)
	return nil
}

func (b *topLevel) readTemplate(dst **types.TemplateInfo) error {
	if b.seenTemplate {
		return makeError("duplicate template")
	}
	b.seenTemplate = true
	t, err := b.r.readTemplate()
	if err != nil {
		return err
	}
	*dst = t
	return nil
}

func (b *topLevel) finish() error {
	if !b.seenInfo {
		return makeError("%s block without info part", b.info.Base().Kind)
	}
	return nil
}

//------------------------------------------------

type namespaceBlock struct {
	topLevel
}

type enumBlock struct {
	topLevel
}

type variableBlock struct {
	topLevel
}

//------------------------------------------------

type recordBlock struct {
	topLevel
	rec *types.RecordInfo
}

func (b *recordBlock) parseRecord(rec Record) error {
	switch rec.ID {
	case RecordRecordTagType:
		return decodeEnum(rec, &b.rec.TagType, types.MaxTag)
	case RecordRecordIsTypeDef:
		return decodeBool(rec, &b.rec.IsTypeDef)
	case RecordRecordSpecs:
		return decodeUint32(rec, &b.rec.Specs)
	case RecordRecordFriends:
		return decodeSymbolIDs(rec, &b.rec.Friends)
	default:
		return b.topLevel.parseRecord(rec)
	}
}

func (b *recordBlock) readSubBlock(id BlockID) error {
	switch id {
	case BlockMemberType:
		mb := &memberTypeBlock{r: b.r}
		if err := b.r.readBlock(mb, id); err != nil {
			return err
		}
		b.rec.Members = append(b.rec.Members, mb.info)
		return nil
	case BlockReference:
		ref, field, err := b.r.readReference()
		if err != nil {
			return err
		}
		switch field {
		case FieldParent:
			b.rec.Parents = append(b.rec.Parents, ref)
		case FieldVParent:
			b.rec.VirtualParents = append(b.rec.VirtualParents, ref)
		default:
			return b.insertChild(ref, field)
		}
		return nil
	case BlockBaseRecord:
		bb := &baseRecordBlock{r: b.r}
		if err := b.r.readBlock(bb, id); err != nil {
			return err
		}
		b.rec.Bases = append(b.rec.Bases, bb.info)
		return nil
	case BlockTemplate:
		return b.readTemplate(&b.rec.Template)
	default:
		return b.topLevel.readSubBlock(id)
	}
}

//------------------------------------------------

type functionBlock struct {
	topLevel
	fn         *types.FunctionInfo
	seenParent bool
	seenReturn bool
}

func (b *functionBlock) parseRecord(rec Record) error {
	switch rec.ID {
	case RecordFunctionAccess:
		return decodeEnum(rec, &b.fn.Access, types.MaxAccess)
	case RecordFunctionIsMethod:
		return decodeBool(rec, &b.fn.IsMethod)
	case RecordFunctionSpecs:
		return decodeUint32(rec, &b.fn.Specs0, &b.fn.Specs1)
	default:
		return b.topLevel.parseRecord(rec)
	}
}

func (b *functionBlock) readSubBlock(id BlockID) error {
	switch id {
	case BlockReference:
		ref, field, err := b.r.readReference()
		if err != nil {
			return err
		}
		if field != FieldParent {
			return wrongField(field)
		}
		if b.seenParent {
			return makeError("duplicate function parent")
		}
		b.seenParent = true
		b.fn.Parent = ref
		return nil
	case BlockType:
		tb := &typeBlock{r: b.r}
		if err := b.r.readBlock(tb, id); err != nil {
			return err
		}
		if tb.field != FieldType {
			return wrongField(tb.field)
		}
		if b.seenReturn {
			return makeError("duplicate return type")
		}
		b.seenReturn = true
		b.fn.ReturnType = tb.info
		return nil
	case BlockFieldType:
		fb := &fieldTypeBlock{r: b.r}
		if err := b.r.readBlock(fb, id); err != nil {
			return err
		}
		if fb.field != FieldType {
			return wrongField(fb.field)
		}
		b.fn.Params = append(b.fn.Params, fb.info)
		return nil
	case BlockTemplate:
		return b.readTemplate(&b.fn.Template)
	default:
		return b.topLevel.readSubBlock(id)
	}
}

//------------------------------------------------

type typedefBlock struct {
	topLevel
	td             *types.TypedefInfo
	seenUnderlying bool
}

func (b *typedefBlock) parseRecord(rec Record) error {
	switch rec.ID {
	case RecordTypedefIsUsing:
		return decodeBool(rec, &b.td.IsUsing)
	default:
		return b.topLevel.parseRecord(rec)
	}
}

func (b *typedefBlock) readSubBlock(id BlockID) error {
	switch id {
	case BlockType:
		tb := &typeBlock{r: b.r}
		if err := b.r.readBlock(tb, id); err != nil {
			return err
		}
		if tb.field != FieldType {
			return wrongField(tb.field)
		}
		if b.seenUnderlying {
			return makeError("duplicate underlying type")
		}
		b.seenUnderlying = true
		b.td.Underlying = tb.info
		return nil
	default:
		return b.topLevel.readSubBlock(id)
	}
}
