// Package diagnostics checks host resources before agent runs and reports
// system information for the doctor command.
//
//   - Preflight: refuses to spawn an agent when free memory or file
//     descriptors are below the configured minimum.
//
//   - CollectSystemInfo: a one-shot snapshot of CPU, memory, disk and load.
//
// Preflight is controlled by the execution.preflight section of the
// configuration file.
package diagnostics
