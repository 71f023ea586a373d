package state

type Oid uint64
