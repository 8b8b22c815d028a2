// Package cli implements the vtree command line.
//
// Commands:
//
//	vtree run <scenario.yaml>    render one scenario frame by frame
//	vtree test <dir>             run every scenario under dir
//	vtree validate <dir>         compile and lint CUE templates
//	vtree trace [session]        list recorded sessions or one session's batches
//	vtree replay [session]       re-apply a recorded session and print the document
//
// Global flags select the output format, the vtree.toml directory, the
// trace database and the batch encoding. Commands return *ExitError so
// main can map failures to exit codes.
package cli
