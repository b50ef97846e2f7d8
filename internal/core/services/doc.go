// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Selection itself is delegated to the sensor package; services add
// candidate identity, configured defaults, logging and parallel batches.
package services
