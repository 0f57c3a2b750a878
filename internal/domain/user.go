package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// UserTable is the table every stream reads from.
const UserTable = "user_data"

// User is one row of user_data, mapped by column name.
type User struct {
	UserID string `db:"user_id" json:"user_id"`
	Name   string `db:"name" json:"name"`
	Email  string `db:"email" json:"email"`
	Age    Age    `db:"age" json:"age"`
}

// Age is the DECIMAL(3,0) age column. Drivers hand it back in different
// shapes (int64, float64, text, driver decimals), so it scans all of them.
type Age int

// Scan implements sql.Scanner.
func (a *Age) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*a = Age(v)
		return nil
	case float64:
		return a.setFloat(v)
	case []byte:
		return a.parse(string(v))
	case string:
		return a.parse(v)
	case nil:
		return fmt.Errorf("scan age: unexpected NULL")
	case interface{ Float64() float64 }:
		return a.setFloat(v.Float64())
	default:
		return fmt.Errorf("scan age: unsupported type %T", src)
	}
}

func (a *Age) parse(s string) error {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*a = Age(n)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("scan age %q: %w", s, err)
	}
	return a.setFloat(f)
}

func (a *Age) setFloat(f float64) error {
	if f != math.Trunc(f) {
		return fmt.Errorf("scan age: %v is not a whole number", f)
	}
	*a = Age(f)
	return nil
}
