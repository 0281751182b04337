// Package domain contains the entities and value objects of the capture
// agent: frames, upload requests and their outcomes, power states, reset
// reasons and the monotonic millisecond counter.
//
// This package has no dependencies on hardware, network or logging and can
// be tested without fakes.
//
// # Entities
//
//   - [Frame]: one captured JPEG buffer, released exactly once
//   - [UploadRequest]: immutable description of one object upload
//   - [Outcome]: pass/fail result of the upload pipeline
//   - [PowerState]: Active, LightSleepWindow, DeepSleepPending, DeepSleep
//   - [BootRecord]: what the previous boot left behind, used to derive the reset reason
package domain
