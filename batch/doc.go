// Package batch splits a collector's account list into fixed-size batches
// and rotates through them.
package batch
