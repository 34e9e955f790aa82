package sqlite

import "github.com/hobbyshelf/hobbyshelf-server/internal/store"

var _ store.Store = (*Store)(nil)
