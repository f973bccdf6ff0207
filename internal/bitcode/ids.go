package bitcode

import "fmt"

// Version is the only fragment format version this package reads and writes
const Version = 1

// Magic starts every fragment
var Magic = [4]byte{'D', 'O', 'C', 'S'}

// Abbreviation codes, the first element of every entry
const (
	codeEndBlock      = 0
	codeEnterSubblock = 1
	codeRecord        = 3
)

// maxDepth bounds block nesting
const maxDepth = 64

// BlockID identifies the kind of a block
type BlockID uint32

const (
	BlockVersion BlockID = iota + 8
	BlockNamespace
	BlockRecord
	BlockFunction
	BlockTypedef
	BlockEnum
	BlockVariable
	BlockInfoPart
	BlockSymbolPart
	BlockReference
	BlockType
	BlockFieldType
	BlockMemberType
	BlockBaseRecord
	BlockTemplate
	BlockTemplateSpecialization
	BlockTemplateParam
	BlockJavadoc
	BlockJavadocList
	BlockJavadocNode
)

var blockNames = map[BlockID]string{
	BlockVersion:                "version",
	BlockNamespace:              "namespace",
	BlockRecord:                 "record",
	BlockFunction:               "function",
	BlockTypedef:                "typedef",
	BlockEnum:                   "enum",
	BlockVariable:               "variable",
	BlockInfoPart:               "info part",
	BlockSymbolPart:             "symbol part",
	BlockReference:              "reference",
	BlockType:                   "type",
	BlockFieldType:              "field type",
	BlockMemberType:             "member type",
	BlockBaseRecord:             "base record",
	BlockTemplate:               "template",
	BlockTemplateSpecialization: "template specialization",
	BlockTemplateParam:          "template param",
	BlockJavadoc:                "javadoc",
	BlockJavadocList:            "javadoc list",
	BlockJavadocNode:            "javadoc node",
}

func (id BlockID) String() string {
	if name, ok := blockNames[id]; ok {
		return name
	}
	return fmt.Sprintf("block(%d)", uint32(id))
}

// RecordID identifies a record. Ids are unique across all blocks.
type RecordID uint32

const (
	RecordVersion RecordID = iota + 1

	RecordInfoPartID
	RecordInfoPartName
	RecordInfoPartPath

	RecordSymbolPartLocDef
	RecordSymbolPartLoc

	RecordReferenceUSR
	RecordReferenceName
	RecordReferenceKind
	RecordReferenceField
	RecordReferencePath

	RecordFieldTypeName
	RecordFieldDefaultValue

	RecordMemberTypeName
	RecordMemberTypeAccess

	RecordBaseRecordTagType
	RecordBaseRecordIsVirtual
	RecordBaseRecordAccess
	RecordBaseRecordIsParent

	RecordTemplateParamContents
	RecordTemplateSpecializationOf

	RecordRecordTagType
	RecordRecordIsTypeDef
	RecordRecordSpecs
	RecordRecordFriends

	RecordFunctionAccess
	RecordFunctionIsMethod
	RecordFunctionSpecs

	RecordTypedefIsUsing

	RecordJavadocListKind
	RecordJavadocNodeKind
	RecordJavadocNodeString
	RecordJavadocNodeStyle
	RecordJavadocNodeAdmonish
)

// FieldID tags which relationship a reference block encodes
type FieldID uint8

const (
	FieldNone FieldID = iota
	FieldType
	FieldNamespace
	FieldParent
	FieldVParent
	FieldChildNamespace
	FieldChildRecord
	FieldChildFunction
	FieldChildTypedef
)

// MaxFieldID is the largest valid FieldID
const MaxFieldID = FieldChildTypedef

func (f FieldID) String() string {
	switch f {
	case FieldNone:
		return "none"
	case FieldType:
		return "type"
	case FieldNamespace:
		return "namespace"
	case FieldParent:
		return "parent"
	case FieldVParent:
		return "vparent"
	case FieldChildNamespace:
		return "child namespace"
	case FieldChildRecord:
		return "child record"
	case FieldChildFunction:
		return "child function"
	case FieldChildTypedef:
		return "child typedef"
	default:
		return fmt.Sprintf("field(%d)", uint8(f))
	}
}
