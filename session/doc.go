// Package session implements vector session tokens and the per-collection
// session bookkeeping built on top of them.
//
// A session token proves that a client has observed a partition's writes up
// to a certain point, per region, so subsequent reads can be pinned to a
// replica that is at least that fresh. Tokens have the textual form
//
//	{version}#{globalLsn}#{regionId1}={localLsn1}#...#{regionIdN}={localLsnN}
//
// where 'version' is the partition's configuration number (incremented on
// topology changes such as region add/remove or failover), 'globalLsn' is
// the partition-wide write counter, and each region segment carries that
// region's replication watermark. The '#' and '=' separators are reserved
// by this format; tokens for different partition key ranges are joined by
// Container using ':' and ','.
//
// Token is an immutable value type: any number of goroutines may hold and
// query the same Token concurrently without synchronization. Container is
// the one mutable holder in this package and is safe for concurrent use.
package session
