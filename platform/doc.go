// Copyright (c) twitterScraper Authors.
// Licensed under the MIT License.

// Package platform defines the social-platform client the collector drives.
//
// Client is the narrow surface used by the workflow handlers: sign-in with
// an optional verification round, paginated timelines, account tweets,
// profiles, followings, replies, follows and search. Simulated is a
// deterministic implementation used for dry runs and tests. ProxyConfig
// builds the per-collector proxy URL and transport.
package platform
