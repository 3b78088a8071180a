// Package output provides structured output and exit codes for the stencil
// CLI.
//
// Every command writes through a Printer, which renders either styled text
// for people or JSON for scripts and agents:
//
//	printer := output.NewPrinter(cmd.OutOrStdout(), jsonFlag, output.IsTTY(cmd.OutOrStdout()))
//	printer.Success(map[string]any{"message": "Template saved", "id": t.ID})
//	printer.Error(err)
//
// # Exit Codes
//
//	output.ExitSuccess     // 0: success
//	output.ExitUserError   // 1: bad input, invalid template or bindings, not found
//	output.ExitSystemError // 2: I/O or database failure
//	output.ExitConflict    // 3: finalized template or stale revision
//
// Classify maps errors from the stencil package onto these codes.
package output
