// Package protofile implements files that don't appear in the
// filesystem namespace before they are complete.
//
// On Linux flag O_TMPFILE is used, and the nameless file gets linked
// into its directory on Persist. Where that is not available,
// a dot-file in the destination directory is written and renamed instead.
//
// Unlike with traditional files with {Create, Write, Close},
// these have a lifecycle described by {IntentNew, Write, Persist or Zap}.
// A file that already exists under the final name gets replaced.
package protofile // import "blitznote.com/src/png.upload/protofile"
