// Package feed implements the live streaming layer: the subscription
// registry, per-consumer delivery channels, and the refresh orchestrator.
//
// One orchestrator goroutine waits on the scheduler, refreshes every due
// subscription, and fans fresh bars out to consumer queues. Each consumer
// runs its callback on its own goroutine behind an unbounded FIFO, so a
// slow or failing consumer never blocks the orchestrator or its siblings.
package feed
