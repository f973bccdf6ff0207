// Package merge combines the observations of one symbol made by different
// translation units.
package merge

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dshills/doccorpus/pkg/types"
)

// ErrNothingToMerge is returned by Merge for an empty input
var ErrNothingToMerge = errors.New("nothing to merge")

// Merge combines several observations of one symbol into a single Info.
// All inputs must share an id and a kind. The first element is used as
// the accumulator and returned.
//
// Unset scalars take the other side's value; two different set values are
// a conflict. Reference lists are unioned and ordered by id, locations by
// position. Bases, members and friends keep their source order when every
// input lists them alike; otherwise the union is ordered by base id, member
// name and friend id. The result only depends on the set of inputs.
func Merge(infos []types.Info) (types.Info, error) {
	if len(infos) == 0 {
		return nil, ErrNothingToMerge
	}

	acc := infos[0]
	m := &merger{id: acc.Base().ID, name: acc.Base().Name}
	for _, other := range infos[1:] {
		m.info(acc, other)
		if m.err != nil {
			return nil, m.err
		}
	}
	m.normalize(acc)
	if m.err != nil {
		return nil, m.err
	}
	return acc, nil
}

// merger keeps the first conflict; later calls are no-ops
type merger struct {
	id   types.SymbolID
	name string
	err  error
}

func (m *merger) conflict(field string, a, b any) {
	if m.err == nil {
		m.err = fmt.Errorf("%w: %s of %s (%s): %v != %v", types.ErrFieldConflict, field, m.name, m.id, a, b)
	}
}

func (m *merger) typeConflict(dst, src types.Info) {
	m.conflict("type", fmt.Sprintf("%T", dst), fmt.Sprintf("%T", src))
}

func scalar[T comparable](m *merger, field string, dst *T, src T) {
	var zero T
	switch {
	case src == zero || *dst == src:
	case *dst == zero:
		*dst = src
	default:
		m.conflict(field, *dst, src)
	}
}

func flag(m *merger, field string, dst *bool, src bool) {
	if *dst != src {
		m.conflict(field, *dst, src)
	}
}

func (m *merger) info(dst, src types.Info) {
	db, sb := dst.Base(), src.Base()
	if db.ID != sb.ID {
		m.conflict("ID", db.ID, sb.ID)
		return
	}
	if db.Kind != sb.Kind {
		m.conflict("Kind", db.Kind, sb.Kind)
		return
	}
	m.base(db, sb)

	switch d := dst.(type) {
	case *types.NamespaceInfo:
		s, ok := src.(*types.NamespaceInfo)
		if !ok {
			m.typeConflict(dst, src)
			return
		}
		mergeScope(&d.Children, &s.Children)

	case *types.RecordInfo:
		s, ok := src.(*types.RecordInfo)
		if !ok {
			m.typeConflict(dst, src)
			return
		}
		m.symbol(&d.SymbolInfo, &s.SymbolInfo)
		m.record(d, s)

	case *types.FunctionInfo:
		s, ok := src.(*types.FunctionInfo)
		if !ok {
			m.typeConflict(dst, src)
			return
		}
		m.symbol(&d.SymbolInfo, &s.SymbolInfo)
		m.function(d, s)

	case *types.TypedefInfo:
		s, ok := src.(*types.TypedefInfo)
		if !ok {
			m.typeConflict(dst, src)
			return
		}
		m.symbol(&d.SymbolInfo, &s.SymbolInfo)
		m.typeRef("Underlying", &d.Underlying.Type, s.Underlying.Type)
		flag(m, "IsUsing", &d.IsUsing, s.IsUsing)

	case *types.EnumInfo:
		s, ok := src.(*types.EnumInfo)
		if !ok {
			m.typeConflict(dst, src)
			return
		}
		m.symbol(&d.SymbolInfo, &s.SymbolInfo)

	case *types.VariableInfo:
		s, ok := src.(*types.VariableInfo)
		if !ok {
			m.typeConflict(dst, src)
			return
		}
		m.symbol(&d.SymbolInfo, &s.SymbolInfo)

	default:
		m.typeConflict(dst, src)
	}
}

func (m *merger) base(dst, src *types.InfoBase) {
	scalar(m, "Name", &dst.Name, src.Name)
	scalar(m, "Path", &dst.Path, src.Path)

	switch {
	case len(src.Namespace) == 0:
	case len(dst.Namespace) == 0:
		dst.Namespace = src.Namespace
	case !sameIDs(dst.Namespace, src.Namespace):
		m.conflict("Namespace", refNames(dst.Namespace), refNames(src.Namespace))
	default:
		for i := range dst.Namespace {
			m.reference("Namespace", &dst.Namespace[i], src.Namespace[i])
		}
	}

	m.javadoc("Javadoc", &dst.Javadoc, src.Javadoc)
}

func (m *merger) javadoc(field string, dst **types.Javadoc, src *types.Javadoc) {
	switch {
	case src == nil:
	case *dst == nil:
		*dst = src
	case !(*dst).Equal(src):
		m.conflict(field, (*dst).Brief(), src.Brief())
	}
}

func (m *merger) symbol(dst, src *types.SymbolInfo) {
	switch {
	case src.DefLoc == nil:
	case dst.DefLoc == nil:
		dst.DefLoc = src.DefLoc
	case *dst.DefLoc != *src.DefLoc:
		m.conflict("DefLoc", *dst.DefLoc, *src.DefLoc)
	}
	dst.Loc = append(dst.Loc, src.Loc...)
}

func (m *merger) record(dst, src *types.RecordInfo) {
	scalar(m, "TagType", &dst.TagType, src.TagType)
	flag(m, "IsTypeDef", &dst.IsTypeDef, src.IsTypeDef)
	scalar(m, "Specs", &dst.Specs, src.Specs)

	mergeScope(&dst.Children, &src.Children)
	dst.Parents = append(dst.Parents, src.Parents...)
	dst.VirtualParents = append(dst.VirtualParents, src.VirtualParents...)

	union(&dst.Bases, src.Bases,
		func(a, b types.BaseRecordInfo) int { return a.Type.ID.Compare(b.Type.ID) },
		func(d *types.BaseRecordInfo, s types.BaseRecordInfo) {
			m.reference("base", &d.Type, s.Type)
			scalar(m, "tag of base "+d.Type.Name, &d.TagType, s.TagType)
			scalar(m, "access of base "+d.Type.Name, &d.Access, s.Access)
			flag(m, "IsVirtual of base "+d.Type.Name, &d.IsVirtual, s.IsVirtual)
			flag(m, "IsParent of base "+d.Type.Name, &d.IsParent, s.IsParent)
		})

	union(&dst.Members, src.Members,
		func(a, b types.MemberTypeInfo) int { return strings.Compare(a.Name, b.Name) },
		func(d *types.MemberTypeInfo, s types.MemberTypeInfo) {
			m.typeRef("type of member "+s.Name, &d.Type, s.Type)
			scalar(m, "access of member "+s.Name, &d.Access, s.Access)
			m.javadoc("javadoc of member "+s.Name, &d.Javadoc, s.Javadoc)
		})

	union(&dst.Friends, src.Friends, types.SymbolID.Compare, func(*types.SymbolID, types.SymbolID) {})

	m.template(&dst.Template, src.Template)
}

func (m *merger) function(dst, src *types.FunctionInfo) {
	scalar(m, "Access", &dst.Access, src.Access)
	flag(m, "IsMethod", &dst.IsMethod, src.IsMethod)
	scalar(m, "Specs0", &dst.Specs0, src.Specs0)
	scalar(m, "Specs1", &dst.Specs1, src.Specs1)
	m.typeRef("Parent", &dst.Parent, src.Parent)
	m.typeRef("ReturnType", &dst.ReturnType.Type, src.ReturnType.Type)

	switch {
	case len(src.Params) == 0:
	case len(dst.Params) == 0:
		dst.Params = src.Params
	case len(dst.Params) != len(src.Params):
		m.conflict("Params", len(dst.Params), len(src.Params))
	default:
		for i := range dst.Params {
			d, s := &dst.Params[i], src.Params[i]
			m.typeRef(fmt.Sprintf("type of param %d", i), &d.Type, s.Type)
			scalar(m, fmt.Sprintf("name of param %d", i), &d.Name, s.Name)
			scalar(m, fmt.Sprintf("default of param %d", i), &d.DefaultValue, s.DefaultValue)
		}
	}

	m.template(&dst.Template, src.Template)
}

func (m *merger) template(dst **types.TemplateInfo, src *types.TemplateInfo) {
	switch {
	case src == nil:
		return
	case *dst == nil:
		*dst = src
		return
	}
	d := *dst
	m.templateParams("template params", &d.Params, src.Params)

	switch {
	case src.Specialization == nil:
	case d.Specialization == nil:
		d.Specialization = src.Specialization
	default:
		ds, ss := d.Specialization, src.Specialization
		scalar(m, "SpecializationOf", &ds.SpecializationOf, ss.SpecializationOf)
		m.templateParams("specialization params", &ds.Params, ss.Params)
	}
}

func (m *merger) templateParams(field string, dst *[]types.TemplateParamInfo, src []types.TemplateParamInfo) {
	switch {
	case len(src) == 0:
	case len(*dst) == 0:
		*dst = src
	case len(*dst) != len(src):
		m.conflict(field, len(*dst), len(src))
	default:
		for i := range *dst {
			scalar(m, field, &(*dst)[i].Contents, src[i].Contents)
		}
	}
}

// union merges src into dst, matching entries with compare and combining
// matches with same. When both lists hold the same keys in the same order
// dst keeps its order; otherwise the union is sorted by compare.
func union[T any](dst *[]T, src []T, compare func(a, b T) int, same func(d *T, s T)) {
	switch {
	case len(src) == 0:
		return
	case len(*dst) == 0:
		*dst = src
		return
	}

	inOrder := len(*dst) == len(src)
	for i, s := range src {
		j := slices.IndexFunc(*dst, func(d T) bool { return compare(d, s) == 0 })
		if j < 0 {
			*dst = append(*dst, s)
			inOrder = false
			continue
		}
		if j != i {
			inOrder = false
		}
		same(&(*dst)[j], s)
	}
	if !inOrder {
		slices.SortStableFunc(*dst, compare)
	}
}

// typeRef merges two optional references, which must name the same symbol
// when both are set
func (m *merger) typeRef(field string, dst *types.Reference, src types.Reference) {
	switch {
	case src.IsZero():
	case dst.IsZero():
		*dst = src
	case dst.ID != src.ID:
		m.conflict(field, dst.Name, src.Name)
	default:
		m.reference(field, dst, src)
	}
}

// reference fills the unset parts of a reference to the same symbol
func (m *merger) reference(field string, dst *types.Reference, src types.Reference) {
	scalar(m, field+" name", &dst.Name, src.Name)
	scalar(m, field+" path", &dst.Path, src.Path)
	scalar(m, field+" kind", &dst.Kind, src.Kind)
}

func mergeScope(dst, src *types.Scope) {
	dl, sl := dst.Lists(), src.Lists()
	for i := range dl {
		*dl[i] = append(*dl[i], *sl[i]...)
	}
}

//------------------------------------------------

// normalize removes duplicate references and locations and puts them in a
// fixed order.
func (m *merger) normalize(info types.Info) {
	if s, ok := info.(types.HasScope); ok {
		for _, list := range s.Scope().Lists() {
			*list = m.uniqueRefs("child", *list)
		}
	}
	if s, ok := info.(types.HasSymbol); ok {
		sym := s.Symbol()
		slices.SortFunc(sym.Loc, types.Location.Compare)
		sym.Loc = slices.Compact(sym.Loc)
	}
	if r, ok := info.(*types.RecordInfo); ok {
		r.Parents = m.uniqueRefs("parent", r.Parents)
		r.VirtualParents = m.uniqueRefs("virtual parent", r.VirtualParents)
	}
}

// uniqueRefs orders refs by id and coalesces references to the same
// symbol, filling empty names, paths and kinds from each other
func (m *merger) uniqueRefs(field string, refs []types.Reference) []types.Reference {
	slices.SortStableFunc(refs, func(a, b types.Reference) int {
		return a.ID.Compare(b.ID)
	})
	out := refs[:0]
	for _, r := range refs {
		if n := len(out); n > 0 && out[n-1].ID == r.ID {
			m.reference(field, &out[n-1], r)
			continue
		}
		out = append(out, r)
	}
	return out
}

func sameIDs(a, b []types.Reference) bool {
	return slices.EqualFunc(a, b, func(x, y types.Reference) bool {
		return x.ID == y.ID
	})
}

func refNames(refs []types.Reference) []string {
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.Name
	}
	return names
}
