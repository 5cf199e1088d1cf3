package testfixtures

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"
)

// ErrInjected is returned by inserts failed through FailNthCreate.
var ErrInjected = errors.New("injected insert failure")

// FailNthCreate makes the nth insert into table (counting from 1) fail with
// ErrInjected. Earlier inserts succeed, so a write fails mid-transaction.
func FailNthCreate(tb testing.TB, db *gorm.DB, table string, n int) {
	tb.Helper()
	seen := 0
	name := fmt.Sprintf("testfixtures:fail_%s_%d", table, n)
	err := db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table != table {
			return
		}
		seen++
		if seen == n {
			tx.AddError(ErrInjected)
		}
	})
	if err != nil {
		tb.Fatalf("failed to register create callback: %v", err)
	}
}
