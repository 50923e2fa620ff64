// Package workflow models the declarative job graph handed to the external
// planner: logical files, jobs with input and output file sets, and the
// workflow that collects them.
//
// Jobs never name their parents. Ordering is implied by file names: a job
// that reads a file depends on the one job that writes it. The planner does
// that inference itself; this package repeats it only to render the graph
// and to check the workflow before submission.
//
// Aggregate jobs, which gain one input per row of some table, are assembled
// with a JobBuilder and emitted as an immutable Job once the loop is over.
package workflow
