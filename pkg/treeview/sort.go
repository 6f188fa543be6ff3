package treeview

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validation and ordering errors.
var (
	// ErrMalformedHierarchy means an item path branches off through a
	// segment that has no item of its own, so siblings cannot be ordered.
	ErrMalformedHierarchy = errors.New("malformed hierarchy")
	ErrEmptyPath          = errors.New("item has an empty path")
	ErrDuplicateKey       = errors.New("duplicate item key")
)

// CompareFunc orders two sibling items. It returns a negative number when a
// sorts before b, a positive number when after, and zero when equal.
type CompareFunc[T Item] func(a, b T) int

// Compare orders a and b for display. Items sharing a branch stay together:
// at the first segment where the two paths diverge, cmp is applied to the
// items owning the diverging segments rather than to a and b. An item always
// sorts before its descendants. When both paths are identical cmp decides
// directly.
//
// items is scanned for the owning items. ErrMalformedHierarchy is returned
// when one of them is missing.
func Compare[T Item](a, b T, items []T, cmp CompareFunc[T]) (int, error) {
	return compareWith(a, b, cmp, func(key string) (T, bool) {
		return ItemByKey(items, key)
	})
}

func compareWith[T Item](a, b T, cmp CompareFunc[T], lookup func(string) (T, bool)) (int, error) {
	ap, bp := a.ItemPath(), b.ItemPath()

	shared := 0
	for shared < len(ap) && shared < len(bp) && ap[shared] == bp[shared] {
		shared++
	}

	switch {
	case shared == len(ap) && shared == len(bp):
		return cmp(a, b), nil
	case shared == len(ap):
		return -1, nil
	case shared == len(bp):
		return 1, nil
	}

	aKey := PathKey(ap[:shared+1])
	bKey := PathKey(bp[:shared+1])
	aOwner, aOK := lookup(aKey)
	bOwner, bOK := lookup(bKey)
	if !aOK || !bOK {
		missing := aKey
		if aOK {
			missing = bKey
		}
		return 0, fmt.Errorf("%w: no item for %q (ordering %q and %q)",
			ErrMalformedHierarchy, missing, Key(a), Key(b))
	}

	if c := cmp(aOwner, bOwner); c != 0 {
		return c, nil
	}
	// Two sibling branches the comparator cannot tell apart would
	// otherwise interleave their descendants.
	return strings.Compare(ap[shared], bp[shared]), nil
}

// SortItems returns a sorted copy of items. The input slice is not modified.
// The first ordering error aborts the sort; no item is ever dropped or
// silently misplaced.
func SortItems[T Item](items []T, cmp CompareFunc[T]) ([]T, error) {
	if err := validate(items); err != nil {
		return nil, err
	}

	index := make(map[string]T, len(items))
	for _, item := range items {
		index[Key(item)] = item
	}
	lookup := func(key string) (T, bool) {
		item, ok := index[key]
		return item, ok
	}

	sorted := slices.Clone(items)
	var sortErr error
	slices.SortStableFunc(sorted, func(a, b T) int {
		if sortErr != nil {
			return 0
		}
		c, err := compareWith(a, b, cmp, lookup)
		if err != nil {
			sortErr = err
			return 0
		}
		return c
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return sorted, nil
}

func validate[T Item](items []T) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		path := item.ItemPath()
		if len(path) == 0 {
			return ErrEmptyPath
		}
		key := PathKey(path)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
		}
		seen[key] = struct{}{}
	}
	return nil
}
