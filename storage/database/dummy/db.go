package dummydb

import (
	"sync"

	"github.com/trezcool/bulletin/core/result"
)

type (
	DB struct {
		result *resultTable
	}

	resultTable struct {
		sync.RWMutex
		table map[resultKey]*result.Record
	}

	resultKey struct {
		studentID string
		examID    string
	}
)

func Open() (*DB, error) {
	db := &DB{
		result: &resultTable{table: make(map[resultKey]*result.Record)},
	}
	return db, nil
}
