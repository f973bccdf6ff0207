package bitcode

import (
	"fmt"
	"io"

	"github.com/dshills/doccorpus/pkg/types"
)

type decodeFunc func(r *Reader) (types.Info, error)

// topLevelDecoders maps each top-level block to the decoder for its kind
var topLevelDecoders = map[BlockID]decodeFunc{
	BlockNamespace: func(r *Reader) (types.Info, error) {
		b := &namespaceBlock{topLevel: newTopLevel(r, types.KindNamespace)}
		return readTopLevel(r, b, &b.topLevel, BlockNamespace)
	},
	BlockRecord: func(r *Reader) (types.Info, error) {
		tl := newTopLevel(r, types.KindRecord)
		b := &recordBlock{topLevel: tl, rec: tl.info.(*types.RecordInfo)}
		return readTopLevel(r, b, &b.topLevel, BlockRecord)
	},
	BlockFunction: func(r *Reader) (types.Info, error) {
		tl := newTopLevel(r, types.KindFunction)
		b := &functionBlock{topLevel: tl, fn: tl.info.(*types.FunctionInfo)}
		return readTopLevel(r, b, &b.topLevel, BlockFunction)
	},
	BlockTypedef: func(r *Reader) (types.Info, error) {
		tl := newTopLevel(r, types.KindTypedef)
		b := &typedefBlock{topLevel: tl, td: tl.info.(*types.TypedefInfo)}
		return readTopLevel(r, b, &b.topLevel, BlockTypedef)
	},
	BlockEnum: func(r *Reader) (types.Info, error) {
		b := &enumBlock{topLevel: newTopLevel(r, types.KindEnum)}
		return readTopLevel(r, b, &b.topLevel, BlockEnum)
	},
	BlockVariable: func(r *Reader) (types.Info, error) {
		b := &variableBlock{topLevel: newTopLevel(r, types.KindVariable)}
		return readTopLevel(r, b, &b.topLevel, BlockVariable)
	},
}

func newTopLevel(r *Reader, kind types.InfoKind) topLevel {
	return topLevel{r: r, info: types.NewInfo(kind, types.SymbolID{})}
}

func readTopLevel(r *Reader, b blockReader, tl *topLevel, id BlockID) (types.Info, error) {
	if err := r.readBlock(b, id); err != nil {
		return nil, err
	}
	if err := tl.finish(); err != nil {
		return nil, err
	}
	return tl.info, nil
}

// ReadInfos decodes every top-level block of one fragment. Nothing is
// returned unless the whole fragment decodes.
func ReadInfos(data []byte) ([]types.Info, error) {
	r, err := NewReader(data)
	if err != nil {
		return nil, err
	}
	if err := r.readVersion(); err != nil {
		return nil, err
	}

	var infos []types.Info
	for {
		e, err := r.next()
		if err == io.EOF {
			return infos, nil
		}
		if err != nil {
			return nil, err
		}
		if e.kind != entryEnter {
			return nil, makeError("expected a top-level block")
		}
		decode, ok := topLevelDecoders[e.block]
		if !ok {
			return nil, unexpectedSubBlock(e.block)
		}
		info, err := decode(r)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
}

func (r *Reader) readVersion() error {
	e, err := r.next()
	if err == io.EOF {
		return makeError("missing version block")
	}
	if err != nil {
		return err
	}
	if e.kind != entryEnter || e.block != BlockVersion {
		return makeError("stream does not start with a version block")
	}

	var b versionBlock
	if err := r.readBlock(&b, BlockVersion); err != nil {
		return err
	}
	if !b.seen {
		return makeError("version block without version record")
	}
	return nil
}

// ReadInfo decodes a fragment expected to hold exactly one symbol
func ReadInfo(data []byte) (types.Info, error) {
	infos, err := ReadInfos(data)
	if err != nil {
		return nil, err
	}
	if len(infos) != 1 {
		return nil, fmt.Errorf("%w: expected one symbol, got %d", types.ErrMalformedStream, len(infos))
	}
	return infos[0], nil
}
