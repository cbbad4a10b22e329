// Package scheduler implements the multi-interval stream scheduler.
//
// The scheduler:
//   - Groups tracked entries into one bucket per timeframe
//   - Keeps a single next-trigger time per bucket, advanced as it fires
//   - Exposes the minimum trigger across buckets as the global wake time
//   - Blocks the orchestrator in WaitForDue until a bucket is due,
//     distinguishing schedule-changed wakes from shutdown wakes
//
// The bucket map and the flat entry iterator are two explicit views over
// one owned store; neither is overloaded to mean the other.
package scheduler
