// Package pipeline runs file-level disassembly and assembly jobs.
//
// Each job reads its input from disk, drives the codec and writes its output
// directory or bundle file. Jobs never panic or return bare errors; they
// return a [Result] carrying a status, the ordered progress log and the
// error, if any. Progress lines are also delivered as they happen through
// [Options.Progress] and mirrored to the package zap logger.
//
//	res := pipeline.Disassemble(ctx, "index.android.bundle", "out", pipeline.Options{})
//	if res.Status != pipeline.StatusSuccess {
//	    log.Fatal(res.Err)
//	}
//
// [Batch] runs independent jobs concurrently with bounded parallelism.
package pipeline
