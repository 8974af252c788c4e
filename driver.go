package docudb

import (
	"database/sql"
	"regexp"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// driverName is the database/sql driver this package registers: the
// stock sqlite3 driver with a REGEXP implementation installed on
// every new connection.
const driverName = "sqlite3_docudb"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("regexp", regexpMatch, true)
		},
	})
}

// regexpMatch backs the REGEXP operator. SQLite rewrites
// `text REGEXP pattern` into regexp(pattern, text). An invalid
// pattern fails the statement that evaluates it.
func regexpMatch(pattern, text string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(text), nil
}
