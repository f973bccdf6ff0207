package corpus

import (
	"errors"
	"fmt"

	"github.com/dshills/doccorpus/pkg/types"
)

// Validate checks that every reference held by every symbol resolves to a
// symbol in the corpus. All failures are returned joined.
func (c *Corpus) Validate() error {
	var errs []error
	err := c.Walk(func(info types.Info) error {
		b := info.Base()
		for _, ref := range types.References(info) {
			if _, ok := c.Lookup(ref.ID); ok {
				continue
			}
			errs = append(errs, fmt.Errorf("%w: %s %q references %s %q (%s)",
				types.ErrUnresolvedReference, b.Kind, b.FullyQualifiedName(), ref.Kind, ref.Name, ref.ID))
		}
		return nil
	})
	if err != nil {
		return err
	}
	return errors.Join(errs...)
}
