// Copyright (c) twitterScraper Authors.
// Licensed under the MIT License.

/*
Package ratelimit paces outbound platform calls.

Every call is appended to a CallLedger partitioned by collector id. The
Limiter counts calls in a trailing window (15 minutes by default) and
applies two cooldown tiers after an action: the soft tier at Threshold
calls and the hard tier at Max calls. LogCall enforces a minimum spacing
between consecutive calls of one collector, and PreCallCheck guards bursts
of account fetches.

Three ledgers are provided: GormLedger (the api_calls table), RedisLedger
(one sorted set per collector) and MemoryLedger.
*/
package ratelimit
