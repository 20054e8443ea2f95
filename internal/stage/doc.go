// Package stage defines the pipeline stage contract: the handler interface
// each stage implements, the ordered registry of stage descriptors, and the
// status bookkeeping that ties stages to the document state machine.
package stage
