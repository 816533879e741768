// Package inmemdb is an in-memory implementation of the repositories,
// used in development (Database.InMemory) and in tests.
package inmemdb

import (
	"context"
	"sort"
	"sync"

	"github.com/trezcool/shkola/core"
	"github.com/trezcool/shkola/core/school"
	"github.com/trezcool/shkola/core/user"
)

type (
	// table holds the rows of one entity by id. Ids are never reused.
	table[T any] struct {
		sync.RWMutex
		rows map[int]T
		seq  int
	}

	DB struct {
		txMu sync.Mutex // serializes transactions

		admins    *table[user.Person]
		teachers  *table[user.Person]
		parents   *table[user.Person]
		students  *table[user.Student]
		appUsers  *table[user.AppUser]
		classes   *table[school.Class]
		subjects  *table[school.Subject]
		schedules *table[school.Schedule]
		grades    *table[school.Grade]
		homeworks *table[school.Homework]
	}

	txKey struct{}
)

var _ core.Transactor = (*DB)(nil)

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[int]T)}
}

func Open() *DB {
	return &DB{
		admins:    newTable[user.Person](),
		teachers:  newTable[user.Person](),
		parents:   newTable[user.Person](),
		students:  newTable[user.Student](),
		appUsers:  newTable[user.AppUser](),
		classes:   newTable[school.Class](),
		subjects:  newTable[school.Subject](),
		schedules: newTable[school.Schedule](),
		grades:    newTable[school.Grade](),
		homeworks: newTable[school.Homework](),
	}
}

// nextID must be called with the table locked.
func (t *table[T]) nextID() int {
	t.seq++
	return t.seq
}

// all returns the rows ordered by id. It must be called with the table (read) locked.
func (t *table[T]) all(keep func(T) bool) []T {
	ids := make([]int, 0, len(t.rows))
	for id, row := range t.rows {
		if keep == nil || keep(row) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	res := make([]T, 0, len(ids))
	for _, id := range ids {
		res = append(res, t.rows[id])
	}
	return res
}

func (t *table[T]) get(id int) (T, error) {
	t.RLock()
	defer t.RUnlock()
	row, ok := t.rows[id]
	if !ok {
		return row, core.ErrNoRecord
	}
	return row, nil
}

func (t *table[T]) filter(keep func(T) bool) []T {
	t.RLock()
	defer t.RUnlock()
	return t.all(keep)
}

func (t *table[T]) find(keep func(T) bool) (T, error) {
	t.RLock()
	defer t.RUnlock()
	rows := t.all(keep)
	if len(rows) == 0 {
		var zero T
		return zero, core.ErrNoRecord
	}
	return rows[0], nil
}

func (t *table[T]) delete(id int) error {
	t.Lock()
	defer t.Unlock()
	if _, ok := t.rows[id]; !ok {
		return core.ErrNoRecord
	}
	delete(t.rows, id)
	return nil
}

func (t *table[T]) deleteWhere(match func(T) bool) {
	t.Lock()
	defer t.Unlock()
	for id, row := range t.rows {
		if match(row) {
			delete(t.rows, id)
		}
	}
}

// update applies fn to the matching rows.
func (t *table[T]) update(match func(T) bool, fn func(*T)) {
	t.Lock()
	defer t.Unlock()
	for id, row := range t.rows {
		if match(row) {
			fn(&row)
			t.rows[id] = row
		}
	}
}

// snapshot copies the rows and returns a func restoring the copy.
// The id sequence is not restored, like a database sequence.
func (t *table[T]) snapshot() func() {
	t.RLock()
	rows := make(map[int]T, len(t.rows))
	for id, row := range t.rows {
		rows[id] = row
	}
	t.RUnlock()

	return func() {
		t.Lock()
		t.rows = rows
		t.Unlock()
	}
}

// InTx runs fn with every table snapshotted beforehand; the snapshot is restored when fn fails.
// Transactions are serialized; writes made outside a transaction while one is running
// may be lost by a rollback.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(bool); ok {
		return fn(ctx)
	}

	db.txMu.Lock()
	defer db.txMu.Unlock()

	restores := []func(){
		db.admins.snapshot(),
		db.teachers.snapshot(),
		db.parents.snapshot(),
		db.students.snapshot(),
		db.appUsers.snapshot(),
		db.classes.snapshot(),
		db.subjects.snapshot(),
		db.schedules.snapshot(),
		db.grades.snapshot(),
		db.homeworks.snapshot(),
	}
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func copyIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
