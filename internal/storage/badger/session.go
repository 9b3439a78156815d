package badger

import (
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/agenda/internal/common"
	"github.com/ternarybob/agenda/internal/interfaces"
)

// session implements interfaces.Session over a Badger read-write transaction.
// Each session is scoped to a single function-task invocation; the executor
// guarantees Discard on every exit path.
type session struct {
	txn  *badgerdb.Txn
	done bool
}

func newSession(db *BadgerDB) interfaces.Session {
	return &session{
		txn: db.Store().Badger().NewTransaction(true),
	}
}

func (s *session) Get(key string) ([]byte, error) {
	item, err := s.txn.Get([]byte("session:" + key))
	if err != nil {
		if err == badgerdb.ErrKeyNotFound {
			return nil, fmt.Errorf("%w: key %s", common.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return item.ValueCopy(nil)
}

func (s *session) Set(key string, value []byte) error {
	if err := s.txn.Set([]byte("session:"+key), value); err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

func (s *session) Commit() error {
	if s.done {
		return nil
	}
	s.done = true
	if err := s.txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// Discard releases the transaction; safe to call after Commit
func (s *session) Discard() {
	s.txn.Discard()
}
