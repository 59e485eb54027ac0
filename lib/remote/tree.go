package remote

import (
	"context"
)

// Lister is the subset of IRemoteStore needed to walk a directory tree
type Lister interface {
	List(ctx context.Context, dir string) ([]Entry, error)
}

// WalkTree lists root and all of its sub directories depth first.
// A missing root is reported as RetCNotFound, any other error aborts the walk.
// Implementations without a native recursive listing use it for ListTree.
func WalkTree(ctx context.Context, lister Lister, root string) ([]Entry, error) {
	entries, err := lister.List(ctx, root)
	if err != nil {
		return nil, err
	}

	var all []Entry
	for _, entry := range entries {
		all = append(all, entry)
		if !entry.IsDir {
			continue
		}
		children, err := WalkTree(ctx, lister, entry.Path)
		if err != nil {
			// directory vanished in between, nothing below it anymore
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		all = append(all, children...)
	}
	return all, nil
}
