package cli

import (
	"fmt"
	"strings"

	"github.com/franksunye/incentive-ledger/internal/ledger"
	"github.com/franksunye/incentive-ledger/internal/ledger/filestore"
	"github.com/franksunye/incentive-ledger/internal/ledger/sqlstore"
)

// OpenStore opens a ledger store from a backend spec string:
//
//	file:<dir>     delimited-file store rooted at dir
//	sqlite:<path>  SQLite store at path
func OpenStore(spec string) (ledger.Store, error) {
	backend, target, found := strings.Cut(spec, ":")
	if !found || target == "" {
		return nil, fmt.Errorf("store spec %q: want file:<dir> or sqlite:<path>", spec)
	}
	switch backend {
	case "file":
		return filestore.Open(target)
	case "sqlite":
		return sqlstore.Open(target)
	default:
		return nil, fmt.Errorf("unknown store backend %q: want file or sqlite", backend)
	}
}
