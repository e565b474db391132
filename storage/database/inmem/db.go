// Package inmemdb keeps every record in process memory.
// It backs tests and local development; nothing survives a restart.
package inmemdb

import (
	"sync"

	"github.com/gvpclubconnect/clubconnect/core"
	"github.com/gvpclubconnect/clubconnect/core/account"
	"github.com/gvpclubconnect/clubconnect/core/club"
	"github.com/gvpclubconnect/clubconnect/core/event"
)

type (
	DB struct {
		account *accountTable
		club    *clubTable
		event   *eventTable
		token   *tokenTable
	}

	accountTable struct {
		table map[string]*account.Account // {id: account}
		mutex sync.RWMutex
	}

	clubTable struct {
		table map[string]*club.Club // {name: club}
		mutex sync.RWMutex
	}

	eventTable struct {
		table map[string]*event.Event // {id: event}
		mutex sync.RWMutex
	}

	tokenTable struct {
		table map[string]map[string]core.Token // {namespace: {key: token}}
		mutex sync.Mutex
	}
)

func Open() *DB {
	return &DB{
		account: &accountTable{table: make(map[string]*account.Account)},
		club:    &clubTable{table: make(map[string]*club.Club)},
		event:   &eventTable{table: make(map[string]*event.Event)},
		token:   &tokenTable{table: make(map[string]map[string]core.Token)},
	}
}

func copyStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append(make([]string, 0, len(s)), s...)
}

func addToSet(set []string, val string) ([]string, bool) {
	if core.ContainsString(set, val) {
		return set, false
	}
	return append(set, val), true
}

func removeFromSet(set []string, val string) ([]string, bool) {
	out := make([]string, 0, len(set))
	for _, s := range set {
		if s != val {
			out = append(out, s)
		}
	}
	return out, len(out) != len(set)
}
