package ledger

import (
	"context"
	"database/sql"
	"sync"

	"github.com/shopspring/decimal"

	accentity "github.com/ubudget/service-ledger-go/internal/account/entity"
	"github.com/ubudget/service-ledger-go/internal/ledger/entity"
)

// memStore is an in-memory Store for tests. A single mutex held for the
// whole WithinTx body stands in for the row locks the SQL store takes, so
// concurrent pipeline runs serialize the same way.
type memStore struct {
	mu           sync.Mutex
	users        map[string]bool
	accounts     map[string]*accentity.Account
	categories   map[string]*entity.Category
	transactions []*entity.Transaction
	nextID       int64
}

func newMemStore() *memStore {
	return &memStore{
		users:      make(map[string]bool),
		accounts:   make(map[string]*accentity.Account),
		categories: make(map[string]*entity.Category),
	}
}

func (m *memStore) addUser(ref string) { m.users[ref] = true }

func (m *memStore) addAccount(number, balance string, active bool) *accentity.Account {
	m.nextID++
	a := &accentity.Account{
		ID:            m.nextID,
		UserID:        1,
		Number:        number,
		Name:          "test " + number,
		Type:          accentity.TypeSavings,
		Currency:      accentity.CurrencyUSD,
		CachedBalance: decimal.RequireFromString(balance),
		IsActive:      active,
	}
	m.accounts[number] = a
	return a
}

func (m *memStore) balance(number string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[number].CachedBalance
}

func (m *memStore) UserExists(_ context.Context, ref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[ref], nil
}

func (m *memStore) GetAccount(_ context.Context, number string) (*accentity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[number]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) GetCategory(_ context.Context, name string) (*entity.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[name]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) WithinTx(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memTx{s: m})
}

type memTx struct {
	s *memStore
}

func (t *memTx) LockAccount(_ context.Context, number string) (*accentity.Account, error) {
	a, ok := t.s.accounts[number]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (t *memTx) FindOrCreateCategory(_ context.Context, name string, ctype entity.CategoryType) (*entity.Category, error) {
	if c, ok := t.s.categories[name]; ok {
		cp := *c
		return &cp, nil
	}
	t.s.nextID++
	c := &entity.Category{ID: t.s.nextID, Name: name, Type: ctype}
	t.s.categories[name] = c
	cp := *c
	return &cp, nil
}

func (t *memTx) InsertTransaction(_ context.Context, tr *entity.Transaction) error {
	t.s.nextID++
	tr.ID = t.s.nextID
	cp := *tr
	t.s.transactions = append(t.s.transactions, &cp)
	return nil
}

func (t *memTx) UpdateBalance(_ context.Context, accountID int64, balance decimal.Decimal) error {
	for _, a := range t.s.accounts {
		if a.ID == accountID {
			a.CachedBalance = balance
			return nil
		}
	}
	return sql.ErrNoRows
}
