// Copyright (c) twitterScraper Authors.
// Licensed under the MIT License.

// Package store persists collected platform data through gorm.
//
// The schema covers users, tweets, the outbound call ledger, mentions,
// threads, token mentions, following edges, engagement markers, hashtags
// and the search cache. Inserts of already-known rows are ignored, and
// every timestamp is written in UTC so range filters compare correctly on
// sqlite, postgres and mysql alike.
package store
