// Package governor implements ecodemand, a hybrid frequency governor that
// combines a frequency-invariant load metric with conservative, step-wise
// actuation. One Policy manages one frequency domain (a group of units that
// share an operating frequency) and re-evaluates it on a fixed sampling rate.
//
// # Pipeline
//
// Every tick runs, in order:
//
//  1. Sample: read cumulative (idle, wall) time per unit from the TimeSource,
//     take deltas against the previous tick, and aggregate busy/wall totals
//     across the domain. Units with zero or negative wall deltas (counter
//     reset, clock anomaly) are silently skipped for that tick.
//
//  2. Normalize: load = (busy/wall * 100) * cur/max. Scaling by the
//     current-to-maximum frequency ratio makes the metric reflect absolute
//     work done, so a half-speed CPU running flat out reports 50, not 100.
//
//  3. Bias: effective = clamp(load - PowersaveBias, 0, 100).
//
//  4. Decide: above UpThreshold, request cur+step (AtLeast) immediately;
//     below DownThreshold, count SamplingDownFactor consecutive ticks before
//     requesting cur-step (AtMost); between the thresholds, hold and clear
//     the counter. step = max*FreqStep/100, with a 1 MHz floor.
//
//  5. Actuate: hand the request to the Actuator. Rejections are not retried;
//     the next tick re-evaluates from fresh bounds.
//
// The asymmetry is deliberate: upward demand is serviced on the first
// qualifying tick, downward transitions are debounced so transient idle dips
// do not cause thrashing.
//
// # Collaborators
//
// TimeSource and Actuator are the only externals. pkg/system/cputime provides
// TimeSources over /proc/stat and cpuidle sysfs (compose them with Fallback);
// pkg/system/cpufreq provides an Actuator over cpufreq sysfs domains. Any
// pair of fakes works for tests.
//
// # Concurrency
//
// Each Policy runs on its own goroutine. The tick body, SetTuners and Stop
// share one mutex, so reconfiguration never observes a half-made decision and
// Stop returns only after the in-flight tick (if any) has completed and the
// loop is disarmed. Policies for distinct domains are fully independent.
//
// # Failure model
//
// The tick path cannot fail. Sampling anomalies under-report load, unusable
// bounds hold the current frequency, and actuator rejections surface only as
// a debug log plus a counter. The observable worst case is a governor that is
// momentarily less responsive.
package governor
