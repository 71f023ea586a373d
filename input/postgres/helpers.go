package postgres

// QueryMarkerSQL - Prefixed to every query so they can be told apart in
// pg_stat_activity and the server logs
const QueryMarkerSQL = "/* pgbloat */ "
