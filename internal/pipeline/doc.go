// Package pipeline drives documents through the stage sequence. The
// one-shot Runner walks an explicit set of documents identifier-major; the
// daemon Manager runs claim-loop workers with lease heartbeats and stale
// claim recovery. Both persist through the same stage execution helper, so
// a document moves identically no matter which driver touched it.
package pipeline
