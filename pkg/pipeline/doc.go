// Package pipeline provides a concurrent processing pipeline made of independent stages.
//
// A pipeline is a chain of stages connected by channels. Each stage owns a relay, which drains the stage inbound
// channel into a private FIFO queue, and a worker, which pops packages from that queue, hands them to a Processor and
// forwards them to the stage outbound channel. The outbound channel of the last stage is drained by a results relay
// into a store keyed by package identity, from which callers take finished packages with Result.
//
// A Package carries a stack of layers: layer 0 is the input and every stage appends the layer it produced, so the
// last layer is the output of the whole chain. A package is owned by exactly one stage at any time; once handed to a
// channel the sender must not touch it again.
//
// Shutdown is cooperative. Stop sends a Shutdown message into the pipeline; every relay and worker forwards it
// downstream before exiting, so the pipeline drains in order without a broadcast. Terminate is the hard stop: it
// cancels every relay and worker and leaves the pipeline unusable.
//
// Processing failures are not isolated by the stage. An error or a panic out of a Processor kills the stage
// worker. The failure is logged, recorded and reported to observers; the worker is then restarted if a restart
// policy allows it, otherwise the stage drops every package it still receives until the shutdown message passes.
package pipeline
