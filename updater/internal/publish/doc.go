// Package publish persists the ranked artifact and reads it back.
//
// FileStore writes the artifact with a temp-file-then-rename discipline: the
// JSON is written and fsynced to a sibling temp file, which is then renamed
// over the target. Readers see either the previous artifact or the new one,
// never a partial file. ReadLast treats a missing or corrupt artifact as "no
// previous data" and never fails.
//
// Publisher combines the FileStore with an optional Mirror (S3Mirror uploads a
// copy to an S3-compatible bucket). The local file is authoritative: mirror
// failures are logged and do not fail the write.
package publish
