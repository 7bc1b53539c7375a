// Package task provides the executors running on pool workers.
//
// One executor exists per task kind:
//
//   - file-validation: digests uploaded content, evaluates the upload
//     policies against it, and caches the verdict by digest.
//   - file-processing: derives normalized metadata (digest, sniffed
//     type, text statistics) for a file, cached by digest.
//   - image-resize: decodes PNG or JPEG content and scales it down to
//     fit a bounding box.
//   - data-processing: aggregates numeric fields across a JSON record
//     set.
//
// Executors are pure computation over their payload plus the injected
// collaborators (policy engine, digest cache). They are registered on
// a pool before it starts:
//
//	for _, ex := range task.Executors(engine, store, logger) {
//	    if err := p.Register(ex); err != nil {
//	        return err
//	    }
//	}
package task
