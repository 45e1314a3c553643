// Package scan coordinates image scans for a viewer.
//
// A Session accepts response bodies, runs the decompress, extract and decode
// pipeline on a background worker, and publishes the outcome to a View. The
// caller never does pipeline work itself; Submit only queues it.
//
// # Versions
//
// Every Submit increments the session version and cancels the scan in
// flight. A finished scan is published only if its version is still the
// current one when it completes, checked under the same lock that applies
// the update. Cancellation is cooperative and may not stop a scan early;
// the version check alone decides what is shown.
//
// # Status Lines
//
//   - "No response to render." after a nil Submit
//   - "Rendering images..." while a scan is pending
//   - "Found N image(s)." when the gallery is not empty
//   - "No supported image found in response body." when it is
//   - "Unable to render images: <error>" when the pipeline failed or
//     panicked
package scan
