// Package sql connects database/sql results to a rowmap.Registry.
//
// # Driver
//
// Driver wraps a *sql.DB and implements dialect.Driver. Query fills a
// *Rows, which scans each record into a reusable rowmap.Record:
//
//	drv, err := sql.Open(dialect.Postgres, "postgres://...")
//	rows := &sql.Rows{}
//	if err := drv.Query(ctx, "SELECT id, name FROM users", []any{}, rows); err != nil {
//	    return err
//	}
//	defer rows.Close()
//	for rows.Next() {
//	    u, err := rowmap.Map[User](rows.Row(), rowmap.NewContext(reg))
//	    ...
//	}
//
// MySQL sources opened with Open always have parseTime enabled.
//
// # Mapping Results
//
// All, One and ScanAll map whole results. Row mappers that implement
// rowmap.Specializer are specialized once per result:
//
//	s := sql.NewScanner(reg, sql.WithSlowMapLog(logger))
//	users, err := sql.All[User](ctx, s, drv, "SELECT id, name FROM users WHERE active = $1", true)
//	u, err := sql.One[*User](ctx, s, drv, "SELECT id, name FROM users WHERE id = $1", id)
//	if sql.IsNoRows(err) {
//	    ...
//	}
//
// # Statistics
//
// Every Scanner counts mapped results, rows, built plans and errors:
//
//	fmt.Println(s.MapStats().Stats())
//	// results=12 rows=340 plans=3 duration=2.1ms avg=175µs slow=0 errors=0
package sql
