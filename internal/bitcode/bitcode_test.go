package bitcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dshills/doccorpus/pkg/types"
)

func testID(b byte) types.SymbolID {
	var id types.SymbolID
	id[0] = b
	id[types.SymbolIDSize-1] = b
	return id
}

// rawWriter returns a writer without the version block, for hand-built streams
func rawWriter() *Writer {
	w := &Writer{}
	w.buf.Write(Magic[:])
	w.enc = msgpack.NewEncoder(&w.buf)
	return w
}

func globalRef() types.Reference {
	return types.Reference{Kind: types.KindNamespace}
}

func sampleJavadoc() *types.Javadoc {
	return &types.Javadoc{Blocks: []*types.DocNode{
		{Kind: types.DocBrief, Children: []*types.DocNode{
			{Kind: types.DocText, String: "Returns the "},
			{Kind: types.DocStyled, String: "size", Style: types.StyleMono},
		}},
		{Kind: types.DocAdmonition, Admonish: types.AdmonishWarning, Children: []*types.DocNode{
			{Kind: types.DocText, String: "not thread safe"},
		}},
		{Kind: types.DocParam, String: "n"},
	}}
}

func sampleRecord() *types.RecordInfo {
	rec := types.NewInfo(types.KindRecord, testID(1)).(*types.RecordInfo)
	rec.Name = "vector"
	rec.Path = "std"
	rec.Namespace = []types.Reference{
		globalRef(),
		{ID: testID(2), Name: "std", Kind: types.KindNamespace},
	}
	rec.Javadoc = sampleJavadoc()
	rec.DefLoc = &types.Location{Line: 12, Filename: "vector.h"}
	rec.Loc = []types.Location{{Line: 3, Filename: "fwd.h"}}
	rec.Children.Records = []types.Reference{{ID: testID(3), Name: "iterator", Kind: types.KindRecord}}
	rec.Children.Functions = []types.Reference{{ID: testID(4), Name: "size", Kind: types.KindFunction}}
	rec.Children.Typedefs = []types.Reference{{ID: testID(5), Name: "value_type", Kind: types.KindTypedef}}
	rec.TagType = types.TagClass
	rec.Specs = 5
	rec.Parents = []types.Reference{{ID: testID(6), Name: "base", Kind: types.KindRecord}}
	rec.VirtualParents = []types.Reference{{ID: testID(7), Name: "vbase", Kind: types.KindRecord}}
	rec.Bases = []types.BaseRecordInfo{{
		Type:      types.Reference{ID: testID(6), Name: "base", Kind: types.KindRecord},
		TagType:   types.TagStruct,
		IsVirtual: true,
		Access:    types.AccessPublic,
		IsParent:  true,
	}}
	rec.Members = []types.MemberTypeInfo{{
		TypeInfo: types.TypeInfo{Type: types.Reference{Name: "int"}},
		Name:     "count",
		Access:   types.AccessPrivate,
		Javadoc:  &types.Javadoc{Blocks: []*types.DocNode{{Kind: types.DocParagraph}}},
	}}
	rec.Friends = []types.SymbolID{testID(8), testID(9)}
	rec.Template = &types.TemplateInfo{
		Params: []types.TemplateParamInfo{{Contents: "typename T"}},
		Specialization: &types.TemplateSpecializationInfo{
			SpecializationOf: testID(10),
			Params:           []types.TemplateParamInfo{{Contents: "int"}},
		},
	}
	return rec
}

func sampleFunction() *types.FunctionInfo {
	fn := types.NewInfo(types.KindFunction, testID(4)).(*types.FunctionInfo)
	fn.Name = "size"
	fn.Namespace = []types.Reference{globalRef()}
	fn.Loc = []types.Location{{Line: 40, Filename: "vector.h"}}
	fn.Access = types.AccessPublic
	fn.IsMethod = true
	fn.Specs0 = 3
	fn.Specs1 = 1
	fn.Parent = types.Reference{ID: testID(1), Name: "vector", Kind: types.KindRecord}
	fn.ReturnType = types.TypeInfo{Type: types.Reference{Name: "size_t"}}
	fn.Params = []types.FieldTypeInfo{
		{TypeInfo: types.TypeInfo{Type: types.Reference{Name: "int"}}, Name: "n", DefaultValue: "0"},
		{TypeInfo: types.TypeInfo{Type: types.Reference{ID: testID(3), Name: "iterator", Kind: types.KindRecord}}},
	}
	return fn
}

func TestRoundTrip(t *testing.T) {
	ns := types.NewInfo(types.KindNamespace, testID(2)).(*types.NamespaceInfo)
	ns.Name = "std"
	ns.Namespace = []types.Reference{globalRef()}
	ns.Children.Namespaces = []types.Reference{{ID: testID(11), Name: "detail", Kind: types.KindNamespace}}
	ns.Children.Records = []types.Reference{{ID: testID(1), Name: "vector", Kind: types.KindRecord}}

	td := types.NewInfo(types.KindTypedef, testID(5)).(*types.TypedefInfo)
	td.Name = "value_type"
	td.IsUsing = true
	td.Underlying = types.TypeInfo{Type: types.Reference{Name: "T"}}

	enum := types.NewInfo(types.KindEnum, testID(12)).(*types.EnumInfo)
	enum.Name = "color"
	enum.DefLoc = &types.Location{Line: 1, Filename: "color.h"}

	variable := types.NewInfo(types.KindVariable, testID(13)).(*types.VariableInfo)
	variable.Name = "npos"

	tests := []struct {
		name string
		info types.Info
	}{
		{"namespace", ns},
		{"record", sampleRecord()},
		{"function", sampleFunction()},
		{"typedef", td},
		{"enum", enum},
		{"variable", variable},
		{"empty namespace", types.NewInfo(types.KindNamespace, types.GlobalNamespaceID)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Serialize(tt.info)
			require.NoError(t, err)

			got, err := ReadInfo(data)
			require.NoError(t, err)
			assert.Equal(t, tt.info, got)
		})
	}
}

func TestReadInfos_MultipleBlocks(t *testing.T) {
	data, err := SerializeAll(sampleRecord(), sampleFunction())
	require.NoError(t, err)

	infos, err := ReadInfos(data)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, types.KindRecord, infos[0].Base().Kind)
	assert.Equal(t, types.KindFunction, infos[1].Base().Kind)
}

func TestReadInfos_VersionOnly(t *testing.T) {
	data, err := NewWriter().Bytes()
	require.NoError(t, err)

	infos, err := ReadInfos(data)
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestReadInfo_WrongCount(t *testing.T) {
	data, err := SerializeAll(sampleRecord(), sampleFunction())
	require.NoError(t, err)

	_, err = ReadInfo(data)
	assert.ErrorIs(t, err, types.ErrMalformedStream)
}

func TestReadInfos_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Writer
		wantMsg string
	}{
		{
			name: "bad signature",
			build: func() *Writer {
				w := &Writer{}
				w.buf.WriteString("JUNK")
				w.enc = msgpack.NewEncoder(&w.buf)
				return w
			},
			wantMsg: "bad signature",
		},
		{
			name:    "missing version",
			build:   rawWriter,
			wantMsg: "missing version block",
		},
		{
			name: "version block not first",
			build: func() *Writer {
				w := rawWriter()
				w.enterBlock(BlockNamespace)
				w.endBlock()
				return w
			},
			wantMsg: "does not start with a version block",
		},
		{
			name: "wrong version",
			build: func() *Writer {
				w := rawWriter()
				w.enterBlock(BlockVersion)
				w.record(RecordVersion, []uint64{Version + 1}, nil)
				w.endBlock()
				return w
			},
			wantMsg: "wrong version 2",
		},
		{
			name: "empty version block",
			build: func() *Writer {
				w := rawWriter()
				w.enterBlock(BlockVersion)
				w.endBlock()
				return w
			},
			wantMsg: "without version record",
		},
		{
			name: "unknown record id",
			build: func() *Writer {
				w := NewWriter()
				w.enterBlock(BlockNamespace)
				w.enterBlock(BlockInfoPart)
				w.record(RecordID(999), nil, nil)
				w.endBlock()
				w.endBlock()
				return w
			},
			wantMsg: "unexpected record with ID=999",
		},
		{
			name: "unknown top-level block",
			build: func() *Writer {
				w := NewWriter()
				w.enterBlock(BlockID(77))
				w.endBlock()
				return w
			},
			wantMsg: "unexpected sub-block with ID=77",
		},
		{
			name: "record at top level",
			build: func() *Writer {
				w := NewWriter()
				w.record(RecordInfoPartName, nil, []byte("x"))
				return w
			},
			wantMsg: "expected a top-level block",
		},
		{
			name: "info part missing",
			build: func() *Writer {
				w := NewWriter()
				w.enterBlock(BlockEnum)
				w.endBlock()
				return w
			},
			wantMsg: "enum block without info part",
		},
		{
			name: "short symbol id",
			build: func() *Writer {
				w := NewWriter()
				w.enterBlock(BlockNamespace)
				w.enterBlock(BlockInfoPart)
				w.record(RecordInfoPartID, nil, []byte{1, 2, 3})
				w.endBlock()
				w.endBlock()
				return w
			},
			wantMsg: "symbol id must be 20 bytes",
		},
		{
			name: "enum value out of range",
			build: func() *Writer {
				w := NewWriter()
				w.enterBlock(BlockFunction)
				w.record(RecordFunctionAccess, []uint64{uint64(types.MaxAccess) + 1}, nil)
				w.endBlock()
				return w
			},
			wantMsg: "out of range",
		},
		{
			name: "invalid boolean",
			build: func() *Writer {
				w := NewWriter()
				w.enterBlock(BlockFunction)
				w.record(RecordFunctionIsMethod, []uint64{2}, nil)
				w.endBlock()
				return w
			},
			wantMsg: "invalid boolean 2",
		},
		{
			name: "function with child namespace",
			build: func() *Writer {
				w := NewWriter()
				w.enterBlock(BlockFunction)
				w.writeReference(types.Reference{ID: testID(1)}, FieldChildNamespace)
				w.endBlock()
				return w
			},
			wantMsg: "unexpected FieldId=5",
		},
		{
			name: "record with child namespace",
			build: func() *Writer {
				w := NewWriter()
				w.enterBlock(BlockRecord)
				w.writeReference(types.Reference{ID: testID(1)}, FieldChildNamespace)
				w.endBlock()
				return w
			},
			wantMsg: "record cannot hold a child namespace reference",
		},
		{
			name: "enum with child reference",
			build: func() *Writer {
				w := NewWriter()
				w.enterBlock(BlockEnum)
				w.writeReference(types.Reference{ID: testID(1)}, FieldChildRecord)
				w.endBlock()
				return w
			},
			wantMsg: "unexpected sub-block with ID=17",
		},
		{
			name: "namespace with symbol part",
			build: func() *Writer {
				w := NewWriter()
				w.enterBlock(BlockNamespace)
				w.enterBlock(BlockSymbolPart)
				w.endBlock()
				w.endBlock()
				return w
			},
			wantMsg: "unexpected sub-block with ID=16",
		},
		{
			name: "info part namespace with wrong field",
			build: func() *Writer {
				w := NewWriter()
				w.enterBlock(BlockVariable)
				w.enterBlock(BlockInfoPart)
				w.writeReference(types.Reference{ID: testID(1)}, FieldParent)
				w.endBlock()
				w.endBlock()
				return w
			},
			wantMsg: "unexpected FieldId=3",
		},
		{
			name: "template contents outside param",
			build: func() *Writer {
				w := NewWriter()
				w.enterBlock(BlockRecord)
				w.enterBlock(BlockTemplate)
				w.record(RecordTemplateParamContents, nil, []byte("T"))
				w.endBlock()
				w.endBlock()
				return w
			},
			wantMsg: "outside a parameter block",
		},
		{
			name: "nested template param",
			build: func() *Writer {
				w := NewWriter()
				w.enterBlock(BlockFunction)
				w.enterBlock(BlockTemplate)
				w.enterBlock(BlockTemplateParam)
				w.enterBlock(BlockTemplateParam)
				w.endBlock()
				w.endBlock()
				w.endBlock()
				w.endBlock()
				return w
			},
			wantMsg: "nested template parameter",
		},
		{
			name: "duplicate javadoc",
			build: func() *Writer {
				w := NewWriter()
				w.enterBlock(BlockNamespace)
				w.enterBlock(BlockInfoPart)
				w.enterBlock(BlockJavadoc)
				w.endBlock()
				w.enterBlock(BlockJavadoc)
				w.endBlock()
				w.endBlock()
				w.endBlock()
				return w
			},
			wantMsg: "duplicate javadoc",
		},
		{
			name: "duplicate function parent",
			build: func() *Writer {
				w := NewWriter()
				w.enterBlock(BlockFunction)
				w.writeReference(types.Reference{ID: testID(1), Kind: types.KindRecord}, FieldParent)
				w.writeReference(types.Reference{ID: testID(2), Kind: types.KindRecord}, FieldParent)
				w.endBlock()
				return w
			},
			wantMsg: "duplicate function parent",
		},
		{
			name: "duplicate return type",
			build: func() *Writer {
				w := NewWriter()
				w.enterBlock(BlockFunction)
				w.writeType(BlockType, types.Reference{Name: "int"})
				w.writeType(BlockType, types.Reference{Name: "long"})
				w.endBlock()
				return w
			},
			wantMsg: "duplicate return type",
		},
		{
			name: "duplicate underlying type",
			build: func() *Writer {
				w := NewWriter()
				w.enterBlock(BlockTypedef)
				w.writeType(BlockType, types.Reference{Name: "int"})
				w.writeType(BlockType, types.Reference{Name: "int"})
				w.endBlock()
				return w
			},
			wantMsg: "duplicate underlying type",
		},
		{
			name: "unterminated block",
			build: func() *Writer {
				w := NewWriter()
				w.enterBlock(BlockNamespace)
				return w
			},
			wantMsg: "unexpected end of stream in namespace block",
		},
		{
			name: "unknown abbreviation",
			build: func() *Writer {
				w := NewWriter()
				_ = w.enc.EncodeArrayLen(1)
				_ = w.enc.EncodeUint(2)
				return w
			},
			wantMsg: "unknown abbreviation code 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.build().Bytes()
			require.NoError(t, err)

			infos, err := ReadInfos(data)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrMalformedStream)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Nil(t, infos)
		})
	}
}

func TestReadInfos_Truncated(t *testing.T) {
	data, err := Serialize(sampleRecord())
	require.NoError(t, err)

	header, err := NewWriter().Bytes()
	require.NoError(t, err)
	headerLen := len(header)

	for n := 0; n < len(data); n++ {
		if n == headerLen {
			// a fragment with no symbols is complete
			continue
		}
		infos, err := ReadInfos(data[:n])
		require.Error(t, err, "prefix of %d bytes", n)
		assert.ErrorIs(t, err, types.ErrMalformedStream, "prefix of %d bytes", n)
		assert.Nil(t, infos)
	}
}

func TestReadInfos_DepthLimit(t *testing.T) {
	w := NewWriter()
	w.enterBlock(BlockNamespace)
	w.enterBlock(BlockInfoPart)
	w.enterBlock(BlockJavadoc)
	w.enterBlock(BlockJavadocList)
	w.record(RecordJavadocListKind, []uint64{uint64(types.DocParagraph)}, nil)
	for i := 0; i < maxDepth; i++ {
		w.enterBlock(BlockJavadocNode)
		w.record(RecordJavadocNodeKind, []uint64{uint64(types.DocParagraph)}, nil)
		w.enterBlock(BlockJavadocList)
		w.record(RecordJavadocListKind, []uint64{uint64(types.DocParagraph)}, nil)
	}
	data, err := w.Bytes()
	require.NoError(t, err)

	_, err = ReadInfos(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested deeper than")
}
