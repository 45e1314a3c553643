// Package extract discovers embedded raster images in HTTP bodies.
//
// Extract works on canonical (already decompressed) bytes and never trusts
// declared metadata alone. It runs a fixed sequence of strategies:
//
//  1. Body: the whole body, when it starts with a known image signature.
//  2. Data URI: data:image/<subtype>;base64,<payload> in text bodies.
//  3. Data URI (raw): data:image/<subtype>,<percent-encoded payload>.
//  4. Embedded base64: bare base64 runs of 96+ characters whose decoded
//     bytes start with a known image signature.
//
// Strategies 2-4 run only when the body looks like text, and only over its
// first 2 MiB. Every decoded payload passes one acceptance gate: non-empty,
// at most 8 MiB, not already seen in this scan (see Fingerprint), and the
// candidate cap (24 by default) not yet reached.
//
// # Ordering
//
// Results are ordered by strategy priority, then by position in the body.
// Labels are numbered per strategy, counting every match that decoded,
// including those the gate then dropped: a duplicate between two data URIs
// leaves "Data URI #1", "Data URI #3".
//
// # Error Handling
//
// Extract does not return errors. A payload that fails to decode
// (ErrMalformedCandidate) or fails the gate (ErrCandidateRejected) is logged
// at debug level and skipped, so one bad match never hides the rest.
package extract
