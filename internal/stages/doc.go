// Package stages holds the five pipeline stage processors: fetch,
// sanitize, sections, structure, normalize. Each processor implements
// stage.Handler, reads only the columns its stage needs, and returns the
// columns it produces so the runner can commit them conditionally.
package stages
